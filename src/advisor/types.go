package advisor

import (
	"time"

	"github.com/grantpath/grantpath/src/analysis"
)

// State names one phase of a pipeline run.
type State string

const (
	StatePending   State = "pending"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateRanking   State = "ranking"
	StateComposing State = "composing"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether a state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Candidate is one ranked funder with its score inputs and rationale.
type Candidate struct {
	Identity          string   `json:"identity"`
	Score             float64  `json:"score"`
	TotalAmount       float64  `json:"total_amount"`
	GrantCount        int      `json:"grant_count"`
	SupportingTaskIDs []string `json:"supporting_task_ids"`
	Rationale         string   `json:"rationale"`
}

// Section is one narrative block of the report.
type Section struct {
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	CitedTaskIDs []string `json:"cited_task_ids"`
}

// Report is the terminal output of a completed run.
type Report struct {
	Sections   []Section         `json:"sections"`
	Candidates []Candidate       `json:"candidates"`
	Results    []analysis.Result `json:"results"`
	Duration   time.Duration     `json:"duration"`
	Cancelled  bool              `json:"cancelled"`
	Degraded   bool              `json:"degraded"`
	Generated  int               `json:"generated_count"`
	Fallback   int               `json:"fallback_count"`
	FunderNote string            `json:"funder_note,omitempty"`
}

// Snapshot is one immutable progress observation. Readers always see a
// complete snapshot; updates replace the whole value, never fields.
type Snapshot struct {
	RunID      string    `json:"run_id"`
	State      State     `json:"state"`
	Stage      string    `json:"stage"`
	TasksTotal int       `json:"tasks_total"`
	TasksDone  int       `json:"tasks_done"`
	Percent    float64   `json:"percent"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
	Log        []string  `json:"log"`
	UpdatedAt  time.Time `json:"updated_at"`
}
