package advisor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/grantpath/grantpath/src/alias"
	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

var (
	// ErrUnknownRun is returned for handles that were never issued or whose
	// run has already been consumed.
	ErrUnknownRun = errors.New("advisor: unknown run")
	// ErrRunActive is returned when a terminal artifact is requested from a
	// run that is still working.
	ErrRunActive = errors.New("advisor: run still in progress")
)

// Manager owns the live runs. Callers submit a dataset and profile, get a
// handle back immediately, and poll or cancel through it; the worker
// goroutine belongs to the run itself.
type Manager struct {
	mu       sync.RWMutex
	runs     map[string]*Run
	resolver *alias.Resolver
	service  analysis.GenerationService
	cfg      Config
}

// NewManager wires a manager to an optional generation service (nil means
// every result will be fallback-sourced).
func NewManager(service analysis.GenerationService, cfg Config) *Manager {
	cfg.setDefaults()
	return &Manager{
		runs:     make(map[string]*Run),
		resolver: alias.NewResolver(),
		service:  service,
		cfg:      cfg,
	}
}

// Start accepts a run and returns its handle without blocking on any stage.
func (m *Manager) Start(tab *dataset.Table, profile dataset.Profile) string {
	id := uuid.NewString()
	filter := buildFilter(m.resolver, tab, profile)
	run := newRun(id, tab, profile, filter, m.service, m.cfg)

	m.mu.Lock()
	m.runs[id] = run
	m.mu.Unlock()

	go run.work(context.Background())
	return id
}

// Get returns the live run for a handle.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrUnknownRun
	}
	return run, nil
}

// Progress returns the current snapshot for a handle.
func (m *Manager) Progress(id string) (Snapshot, error) {
	run, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return run.Progress(), nil
}

// Cancel requests cancellation. Cancelling an already-terminal run is a
// no-op on the flag but still reported to the caller.
func (m *Manager) Cancel(id string) (Snapshot, error) {
	run, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	run.Cancel()
	return run.Progress(), nil
}

// Result returns the terminal report (Completed), or the terminal snapshot
// alone (Cancelled / Failed). ErrRunActive is returned while the worker is
// still going.
func (m *Manager) Result(id string) (*Report, Snapshot, error) {
	run, err := m.Get(id)
	if err != nil {
		return nil, Snapshot{}, err
	}
	snap := run.Progress()
	if !snap.State.Terminal() {
		return nil, snap, ErrRunActive
	}
	return run.Report(), snap, nil
}

// Consume is Result plus destruction of the run: once a terminal result or
// cancellation has been handed to the caller the handle is forgotten.
func (m *Manager) Consume(id string) (*Report, Snapshot, error) {
	report, snap, err := m.Result(id)
	if err != nil {
		return report, snap, err
	}
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
	return report, snap, nil
}
