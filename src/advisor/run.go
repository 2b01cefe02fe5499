package advisor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

// ErrEmptyPlan is the invariant violation raised when the planner yields no
// tasks. It always ends the run as Failed.
var ErrEmptyPlan = fmt.Errorf("empty plan")

// Run is one pipeline execution. The worker goroutine is the sole mutator
// of progress; readers only ever load the current immutable snapshot.
type Run struct {
	ID      string
	table   *dataset.Table
	profile dataset.Profile
	filter  dataset.Filter
	cfg     Config
	exec    *analysis.Executor

	snapshot  atomic.Value // Snapshot
	cancelled atomic.Bool
	done      chan struct{}

	mu      sync.Mutex
	tasks   []analysis.Task
	results []analysis.Result
	report  *Report
	runErr  error
}

func newRun(id string, tab *dataset.Table, profile dataset.Profile, filter dataset.Filter, svc analysis.GenerationService, cfg Config) *Run {
	cfg.setDefaults()
	r := &Run{
		ID:      id,
		table:   tab,
		profile: profile,
		filter:  filter,
		cfg:     cfg,
		exec:    &analysis.Executor{Service: svc, Timeout: cfg.TaskTimeout},
		done:    make(chan struct{}),
	}
	r.snapshot.Store(Snapshot{RunID: id, State: StatePending, Stage: "queued", UpdatedAt: time.Now().UTC()})
	return r
}

// Progress returns the latest immutable progress snapshot.
func (r *Run) Progress() Snapshot {
	return r.snapshot.Load().(Snapshot)
}

// Cancel sets the monotonic cancellation flag. It cannot be unset.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Done is closed once the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Results returns the analysis results completed so far. After a
// cancellation this is exactly the prefix finished before the flag was
// observed.
func (r *Run) Results() []analysis.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analysis.Result, len(r.results))
	copy(out, r.results)
	return out
}

// Report returns the terminal report, nil unless the run Completed.
func (r *Run) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Err returns the terminal failure, nil unless the run Failed.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

// publish replaces the progress snapshot atomically. The previous log is
// carried forward with the new line appended.
func (r *Run) publish(state State, stage string, done, total int, degraded bool, errMsg string) {
	prev := r.Progress()
	logLines := make([]string, len(prev.Log), len(prev.Log)+1)
	copy(logLines, prev.Log)
	logLines = append(logLines, stage)
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	if state == StateCompleted {
		percent = 100
	}
	r.snapshot.Store(Snapshot{
		RunID:      r.ID,
		State:      state,
		Stage:      stage,
		TasksTotal: total,
		TasksDone:  done,
		Percent:    percent,
		Degraded:   degraded || prev.Degraded,
		Error:      errMsg,
		Log:        logLines,
		UpdatedAt:  time.Now().UTC(),
	})
}

// work executes the full stage sequence. It runs on its own goroutine; the
// caller gets the handle back immediately.
func (r *Run) work(ctx context.Context) {
	defer close(r.done)
	started := time.Now()

	r.publish(StatePlanning, "planning analysis tasks", 0, 0, false, "")
	tasks := analysis.Plan(r.table.Schema(), r.profile, r.filter)
	if len(tasks) == 0 {
		r.fail("planning", ErrEmptyPlan)
		return
	}
	r.mu.Lock()
	r.tasks = tasks
	r.mu.Unlock()
	log.Printf("advisor: run %s planned %d tasks", r.ID, len(tasks))

	degraded := false
	generated, fellBack := 0, 0
	for i, task := range tasks {
		if r.cancelled.Load() {
			r.finishCancelled(i, len(tasks))
			return
		}
		res, ferr := r.exec.Execute(ctx, task, r.table, r.profile)
		if ferr != nil {
			log.Printf("advisor: run %s task %d/%d fell back: %v", r.ID, i+1, len(tasks), ferr)
		}
		if res.Source == analysis.SourceFallback {
			fellBack++
			degraded = true
		} else {
			generated++
		}
		r.mu.Lock()
		r.results = append(r.results, res)
		r.mu.Unlock()
		r.publish(StateExecuting, fmt.Sprintf("completed task %d of %d: %s", i+1, len(tasks), task.Title),
			i+1, len(tasks), degraded, "")
	}

	if r.cancelled.Load() {
		r.finishCancelled(len(tasks), len(tasks))
		return
	}
	r.publish(StateRanking, "ranking funder candidates", len(tasks), len(tasks), degraded, "")
	var candidates []Candidate
	var funderNote string
	if err := runStage("ranking", func() {
		candidates, funderNote = Rank(tasks, r.Results(), r.profile, r.cfg)
	}); err != nil {
		r.fail("ranking", err)
		return
	}

	if r.cancelled.Load() {
		r.finishCancelled(len(tasks), len(tasks))
		return
	}
	r.publish(StateComposing, "composing report sections", len(tasks), len(tasks), degraded, "")
	var sections []Section
	if err := runStage("composing", func() {
		sections = Compose(tasks, r.Results(), candidates, funderNote, r.profile)
	}); err != nil {
		r.fail("composing", err)
		return
	}

	report := &Report{
		Sections:   sections,
		Candidates: candidates,
		Results:    r.Results(),
		Duration:   time.Since(started),
		Degraded:   degraded,
		Generated:  generated,
		Fallback:   fellBack,
		FunderNote: funderNote,
	}
	r.mu.Lock()
	r.report = report
	r.mu.Unlock()
	r.publish(StateCompleted, "report ready", len(tasks), len(tasks), degraded, "")
	log.Printf("advisor: run %s completed in %s (degraded=%v, fallback=%d/%d)",
		r.ID, report.Duration.Round(time.Millisecond), degraded, fellBack, len(tasks))
}

func (r *Run) finishCancelled(done, total int) {
	r.publish(StateCancelled, fmt.Sprintf("cancelled after %d of %d tasks", done, total), done, total, false, "")
	log.Printf("advisor: run %s cancelled after %d of %d tasks", r.ID, done, total)
}

func (r *Run) fail(stage string, err error) {
	wrapped := fmt.Errorf("stage %s: %w", stage, err)
	r.mu.Lock()
	r.runErr = wrapped
	r.mu.Unlock()
	prev := r.Progress()
	r.publish(StateFailed, "run failed during "+stage, prev.TasksDone, prev.TasksTotal, prev.Degraded, wrapped.Error())
	log.Printf("advisor: run %s failed: %v", r.ID, wrapped)
}

// runStage converts a panic inside a stage into an error so partial results
// survive for diagnostics.
func runStage(name string, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s: %v", name, rec)
		}
	}()
	fn()
	return nil
}
