package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/grantpath/grantpath/src/dataset"
)

// Fallback triggers. These never abort a run; they only explain why a
// result carries the fallback source tag.
var (
	ErrServiceUnavailable       = errors.New("generation service unavailable")
	ErrServiceTimeout           = errors.New("generation service timeout")
	ErrMalformedServiceResponse = errors.New("malformed generation service response")
)

// GenerationService is the narrow view of the external text-generation
// collaborator. A nil service means no handle was supplied for the run.
type GenerationService interface {
	// Available reports whether the service is currently usable. A service
	// that has declared itself down is skipped without a network call.
	Available() bool
	// Generate answers a grounded analysis prompt. The response contract is
	// a JSON array of {"label": string, "value": number} objects.
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultTaskTimeout bounds one generation-service call.
const DefaultTaskTimeout = 8 * time.Second

// Executor resolves a task to a Result, preferring the generation service
// and falling back to local computation. Both paths produce the identical
// row shape so downstream stages never branch on the source.
type Executor struct {
	Service GenerationService
	Timeout time.Duration
}

// Execute runs one task. The returned error, when non-nil, names the
// fallback trigger (ErrServiceUnavailable, ErrServiceTimeout or
// ErrMalformedServiceResponse); the Result is valid either way.
func (e *Executor) Execute(ctx context.Context, task Task, tab *dataset.Table, profile dataset.Profile) (Result, error) {
	if e.Service == nil || !e.Service.Available() {
		return Fallback(task, tab), ErrServiceUnavailable
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := e.Service.Generate(callCtx, buildPrompt(task, tab.Schema(), profile))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			log.Printf("analysis: task %s timed out after %s, using fallback", task.ID, timeout)
			return Fallback(task, tab), fmt.Errorf("%w: %v", ErrServiceTimeout, err)
		}
		log.Printf("analysis: task %s service call failed (%v), using fallback", task.ID, err)
		return Fallback(task, tab), fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	rows, err := parseServiceRows(raw)
	if err != nil {
		log.Printf("analysis: task %s returned malformed response, using fallback", task.ID)
		return Fallback(task, tab), fmt.Errorf("%w: %v", ErrMalformedServiceResponse, err)
	}
	return Result{
		TaskID:      task.ID,
		Title:       task.Title,
		Source:      SourceGenerated,
		Rows:        rows,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildPrompt assembles the grounded context for one task: the operation,
// its columns, the active filter and a compact schema description.
func buildPrompt(task Task, schema dataset.Schema, profile dataset.Profile) string {
	var b strings.Builder
	b.WriteString("Compute the following aggregate over the grants dataset and reply with ONLY a JSON array of {\"label\": string, \"value\": number} objects.\n\n")
	fmt.Fprintf(&b, "Operation: %s\n", task.Kind)
	if task.Column != "" {
		fmt.Fprintf(&b, "Value column: %s\n", task.Column)
	}
	if task.GroupColumn != "" {
		fmt.Fprintf(&b, "Group column: %s\n", task.GroupColumn)
	}
	if task.ColColumn != "" {
		fmt.Fprintf(&b, "Cross column: %s\n", task.ColColumn)
	}
	if task.N > 0 {
		fmt.Fprintf(&b, "N: %d\n", task.N)
	}
	fmt.Fprintf(&b, "Filter: %s\n", task.Filter.Key())
	cols := make([]string, 0, len(schema))
	for _, c := range schema {
		cols = append(cols, c.Name+":"+c.Type)
	}
	fmt.Fprintf(&b, "Schema: %s\n", strings.Join(cols, ", "))
	if profile.Goal != "" {
		fmt.Fprintf(&b, "Project goal: %s\n", profile.Goal)
	}
	return b.String()
}

// parseServiceRows validates the response contract. Anything that does not
// decode to a non-nil array of label/value pairs is malformed.
func parseServiceRows(raw string) ([]Row, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var rows []Row
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rows); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r.Label == "" {
			return nil, fmt.Errorf("row %d: empty label", i)
		}
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}
