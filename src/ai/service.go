package ai

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/grantpath/grantpath/src/ai/core"
)

const analysisSystemPrompt = "You are a grants data analyst. You receive one aggregate computation request " +
	"over a philanthropic grants dataset and respond with ONLY a JSON array of {\"label\": string, \"value\": number} objects. " +
	"No prose, no markdown fences."

// maxConsecutiveFailures trips the availability latch: after this many hard
// failures in a row the service declares itself down and the executor stops
// paying the call cost until a success or a manual reset.
const maxConsecutiveFailures = 3

// Service adapts a provider client to the query executor's generation
// contract, adding the self-declared availability latch.
type Service struct {
	client   core.Client
	opts     core.Options
	down     atomic.Bool
	failures atomic.Int32
}

// NewService wraps a provider client. A nil client yields a nil *Service,
// which the executor treats as "no handle".
func NewService(client core.Client, opts core.Options) *Service {
	if client == nil {
		return nil
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = analysisSystemPrompt
	}
	return &Service{client: client, opts: opts}
}

// Available reports whether the service considers itself usable. Safe on a
// nil receiver so a typed-nil handle behaves like an absent one.
func (s *Service) Available() bool {
	return s != nil && !s.down.Load()
}

// MarkUnavailable declares the service down until Reset.
func (s *Service) MarkUnavailable() {
	s.down.Store(true)
}

// Reset clears the availability latch and failure streak.
func (s *Service) Reset() {
	s.failures.Store(0)
	s.down.Store(false)
}

// Generate answers one grounded analysis prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.client.Complete(ctx, prompt, s.opts)
	if err != nil {
		if n := s.failures.Add(1); n >= maxConsecutiveFailures {
			if !s.down.Swap(true) {
				log.Printf("ai: generation service marked unavailable after %d consecutive failures", n)
			}
		}
		return "", err
	}
	s.failures.Store(0)
	return text, nil
}
