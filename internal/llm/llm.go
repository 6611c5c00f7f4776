// Package llm abstracts the language-model collaborator that generates
// practice questions and grades submissions. Callers depend on the
// Provider interface, never on a concrete client.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors for provider failures.
var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrInferenceTimeout    = errors.New("llm inference timeout")
	ErrInvalidResponse     = errors.New("llm provider returned invalid response")
)

// Provider is the core interface all LLM integrations implement.
type Provider interface {
	// Complete sends a system prompt plus a user message and returns the
	// assistant's text response.
	Complete(ctx context.Context, system, user string) (string, error)
	// Name returns the provider identifier (e.g., "groq", "openai").
	Name() string
}
