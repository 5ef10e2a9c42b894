package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Chain tries providers sequentially, each with its own timeout. The first
// success wins; the caller falls back to rule-based estimation when every
// provider fails.
type Chain struct {
	Providers []Provider
	Timeout   time.Duration
	Logger    zerolog.Logger
}

func (c Chain) Name() string { return "chain" }

// Complete returns the first successful completion along with the name of
// the provider that produced it.
func (c Chain) Complete(ctx context.Context, prompt string) (string, error) {
	text, _, err := c.CompleteWithProvider(ctx, prompt)
	return text, err
}

func (c Chain) CompleteWithProvider(ctx context.Context, prompt string) (string, string, error) {
	if len(c.Providers) == 0 {
		return "", "", ErrNoProviders
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var errs []error
	for _, p := range c.Providers {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := p.Complete(attemptCtx, prompt)
		cancel()
		if err == nil {
			return text, p.Name(), nil
		}
		c.Logger.Warn().Str("provider", p.Name()).Err(err).Msg("provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return "", "", errors.Join(errs...)
}
