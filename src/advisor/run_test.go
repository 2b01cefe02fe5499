package advisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

func waitDone(t *testing.T, run *Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not reach a terminal state")
	}
}

func advisorTable(t *testing.T) *dataset.Table {
	t.Helper()
	tab, err := dataset.NewTable(nil, advisorRows())
	require.NoError(t, err)
	return tab
}

func TestRunCompletesWithoutService(t *testing.T) {
	m := NewManager(nil, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{Region: "Austin"})

	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	report, snap, err := m.Result(id)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 100.0, snap.Percent)

	// No service handle: every result is fallback-sourced, run is degraded.
	assert.True(t, report.Degraded)
	assert.Zero(t, report.Generated)
	assert.Equal(t, len(report.Results), report.Fallback)
	for _, res := range report.Results {
		assert.Equal(t, analysis.SourceFallback, res.Source)
	}
	assert.Len(t, report.Sections, 8)
}

func TestRunScenarioAustinRanking(t *testing.T) {
	// FunderA $100K/2 grants, FunderB $50K/5 grants, all tagged Texas; a
	// profile region of Austin must still match through alias expansion
	// and FunderB must rank first under equal weights.
	m := NewManager(nil, Config{WeightAmount: 0.5, WeightCount: 0.5})
	id := m.Start(advisorTable(t), dataset.Profile{Region: "Austin"})

	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	report, _, err := m.Result(id)
	require.NoError(t, err)
	require.NotNil(t, report)

	for _, res := range report.Results {
		assert.NotEmpty(t, res.Rows, "geography-filtered task %s returned no rows", res.Title)
	}
	require.GreaterOrEqual(t, len(report.Candidates), 2)
	assert.Equal(t, "FunderB", report.Candidates[0].Identity)
	assert.InDelta(t, 0.75, report.Candidates[0].Score, 1e-9)
	assert.Equal(t, "FunderA", report.Candidates[1].Identity)
	assert.InDelta(t, 0.70, report.Candidates[1].Score, 1e-9)
}

// blockingService blocks its Nth call until released, so tests can hold a
// run mid-execution at a known task boundary.
type blockingService struct {
	mu       sync.Mutex
	calls    int
	blockAt  int
	started  chan struct{}
	release  chan struct{}
	response string
}

func (s *blockingService) Available() bool { return true }

func (s *blockingService) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n == s.blockAt {
		close(s.started)
		<-s.release
	}
	return s.response, nil
}

func TestRunCancellationKeepsCompletedPrefix(t *testing.T) {
	svc := &blockingService{
		blockAt:  3,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		response: `[{"label":"x","value":1}]`,
	}
	m := NewManager(svc, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{})

	run, err := m.Get(id)
	require.NoError(t, err)

	// Cancel while task 3 is in flight: the flag is observed at the top of
	// the next iteration, so exactly 3 results survive.
	<-svc.started
	_, err = m.Cancel(id)
	require.NoError(t, err)
	close(svc.release)
	waitDone(t, run)

	snap := run.Progress()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Len(t, run.Results(), 3)
	assert.Nil(t, run.Report(), "no ranking or composing after cancellation")

	report, snap, err := m.Result(id)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, StateCancelled, snap.State)
}

func TestRunCancelFlagIsMonotonic(t *testing.T) {
	m := NewManager(nil, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{})
	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	// Cancelling a terminal run does not rewind its state.
	_, err = m.Cancel(id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run.Progress().State)
}

type timeoutService struct{}

func (timeoutService) Available() bool { return true }

func (timeoutService) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunAllTimeoutsStillCompletes(t *testing.T) {
	// Service present but every call times out: the run must complete in
	// degraded mode with 100% fallback results, never fail.
	m := NewManager(timeoutService{}, Config{TaskTimeout: 20 * time.Millisecond})
	id := m.Start(advisorTable(t), dataset.Profile{})

	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	report, snap, err := m.Result(id)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, StateCompleted, snap.State)
	assert.True(t, report.Degraded)
	assert.Zero(t, report.Generated)
	for _, res := range report.Results {
		assert.Equal(t, analysis.SourceFallback, res.Source)
	}
}

func TestRunEmptyPlanFails(t *testing.T) {
	schema := dataset.Schema{{Name: "unrelated_column", Type: dataset.TypeText}}
	tab, err := dataset.NewTable(schema, nil)
	require.NoError(t, err)

	m := NewManager(nil, Config{})
	id := m.Start(tab, dataset.Profile{})
	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	snap := run.Progress()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "empty plan")
	require.Error(t, run.Err())
}

func TestRunStageCapturesPanic(t *testing.T) {
	err := runStage("ranking", func() { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranking")
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, runStage("composing", func() {}))
}

func TestManagerUnknownRun(t *testing.T) {
	m := NewManager(nil, Config{})
	_, err := m.Progress("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, err = m.Cancel("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, _, err = m.Result("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestManagerResultWhileActive(t *testing.T) {
	svc := &blockingService{
		blockAt:  1,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		response: "[]",
	}
	m := NewManager(svc, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{})

	<-svc.started
	_, _, err := m.Result(id)
	assert.ErrorIs(t, err, ErrRunActive)
	close(svc.release)

	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)
}

func TestManagerConsumeDestroysRun(t *testing.T) {
	m := NewManager(nil, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{})
	run, err := m.Get(id)
	require.NoError(t, err)
	waitDone(t, run)

	report, _, err := m.Consume(id)
	require.NoError(t, err)
	require.NotNil(t, report)

	_, _, err = m.Consume(id)
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestProgressSnapshotsAreAtomic(t *testing.T) {
	m := NewManager(nil, Config{})
	id := m.Start(advisorTable(t), dataset.Profile{})
	run, err := m.Get(id)
	require.NoError(t, err)

	// Hammer the snapshot from readers while the worker publishes.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snap := run.Progress()
				assert.Equal(t, id, snap.RunID)
				if snap.TasksTotal > 0 {
					assert.LessOrEqual(t, snap.TasksDone, snap.TasksTotal)
				}
				if snap.State.Terminal() {
					return
				}
			}
		}()
	}
	wg.Wait()
	waitDone(t, run)
}

func TestBuildFilterAliasExpansion(t *testing.T) {
	tab := advisorTable(t)
	m := NewManager(nil, Config{})
	f := buildFilter(m.resolver, tab, dataset.Profile{Region: "Austin"})
	assert.False(t, f.IsZero())
	assert.Equal(t, tab.Len(), tab.CountMatching(f))
}

func TestBuildFilterDropsDimensionThatMatchesNothing(t *testing.T) {
	tab := advisorTable(t)
	m := NewManager(nil, Config{})
	f := buildFilter(m.resolver, tab, dataset.Profile{
		Region:   "Austin",
		Subjects: []string{"basket weaving"},
	})
	// The subject filter would eliminate every row, so only geography holds.
	assert.Empty(t, f.Subjects)
	assert.NotEmpty(t, f.Geographies)
	assert.Equal(t, tab.Len(), tab.CountMatching(f))
}
