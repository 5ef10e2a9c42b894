package ai

import (
	"context"
	"errors"
)

// Provider is one LLM backend. Implementations are tried in configured
// priority order; a failure means the next provider gets the same prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNoProviders is returned by a chain with nothing configured. Callers
// treat it like any other provider failure and fall back to the rule-based
// path.
var ErrNoProviders = errors.New("no ai providers configured")
