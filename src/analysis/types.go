package analysis

import (
	"fmt"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/grantpath/grantpath/src/dataset"
)

// Kind identifies which aggregate operation a task requests.
type Kind string

const (
	KindDescribe    Kind = "describe"
	KindValueCounts Kind = "value_counts"
	KindGroupedSum  Kind = "grouped_sum"
	KindPivotTable  Kind = "pivot_table"
	KindTopN        Kind = "top_n"
)

// Task is one planned aggregate computation. Tasks are immutable once
// planned; the ID is a stable content hash so identical plans produce
// identical IDs across runs.
type Task struct {
	ID          string
	Kind        Kind
	Title       string
	Column      string
	GroupColumn string
	ColColumn   string
	N           int
	TopK        int
	Filter      dataset.Filter
}

// NewTask fills in the content-derived ID.
func NewTask(kind Kind, title, column, groupCol, colCol string, n, topK int, filter dataset.Filter) Task {
	t := Task{
		Kind:        kind,
		Title:       title,
		Column:      column,
		GroupColumn: groupCol,
		ColColumn:   colCol,
		N:           n,
		TopK:        topK,
		Filter:      filter,
	}
	h := xxhash.New64()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%d|%s", t.Kind, t.Column, t.GroupColumn, t.ColColumn, t.N, t.TopK, t.Filter.Key())
	t.ID = fmt.Sprintf("%016x", h.Sum64())
	return t
}

// Source tags which path produced a result.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Row is one (label, value) pair of a result.
type Row struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Result is the normalized output of one executed task. Both the generated
// and the fallback path resolve to this shape. Empty Rows is a valid result
// and distinct from "not yet computed" (which is simply the absence of a
// Result for the task).
type Result struct {
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Source      Source    `json:"source"`
	Rows        []Row     `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}
