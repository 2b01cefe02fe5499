package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Client is a provider-agnostic interface for the text-generation calls the
// advisor needs.
type Client interface {
	// Complete answers a single grounded prompt and returns the raw model
	// text.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}
