// Package llm talks to the chat completion endpoint that performs the
// prescription analysis.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model answers without any content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNoModel is returned when none of the candidate models is available.
	ErrNoModel = errors.New("no suitable model found")

	// ErrMissingAPIKey is returned when the client is built without credentials.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")
)

// Completer sends a single prompt and returns the model's raw text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
