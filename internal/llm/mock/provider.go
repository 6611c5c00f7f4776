// Package mock provides an llm.Provider for tests and local development.
package mock

import (
	"context"

	"github.com/querydojo/querydojo/internal/llm"
)

// Provider satisfies llm.Provider with injectable behavior.
type Provider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, system, user string) (string, error)
}

func (p *Provider) Name() string { return p.Name_ }

func (p *Provider) Complete(ctx context.Context, system, user string) (string, error) {
	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, system, user)
	}
	return "", nil
}

// NewProvider returns a Provider that answers every prompt with a
// well-formed practice question, so the parsing path works end to end
// without a real API key.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _, _ string) (string, error) {
			return "Question: SELECT all rows FROM the sample_users table WHERE age is greater than 30.\n\n" +
				"Category: Basic SQL Syntax\n\n" +
				"Tables: sample_users\n\n" +
				"Hint: Use a WHERE clause with a numeric comparison.", nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until the context is
// cancelled.
func NewTimeoutProvider() *Provider {
	return &Provider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", llm.ErrInferenceTimeout
		},
	}
}

// Compile-time check that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)
