// Package retry runs an operation a fixed number of times with a constant
// pause between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Do. MaxAttempts counts the first call; values below 1
// are treated as 1. There is no jitter and no growth between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Logger receives one WARN line per failed attempt that will be retried.
	Logger *slog.Logger
	// Operation names the call in log lines.
	Operation string
}

// Default mirrors the lookup behaviour of the chat assistant: two attempts,
// two seconds apart.
func Default() Policy {
	return Policy{MaxAttempts: 2, Delay: 2 * time.Second}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls op until it succeeds or the policy is exhausted. The final error
// is returned unchanged so callers can match it with errors.Is. A cancelled
// ctx stops the wait; the result then joins ctx.Err() with the last error op
// returned, so both stay matchable.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	var lastErr error
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.attempts()-1)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		if p.Logger == nil {
			return
		}
		p.Logger.Warn("attempt failed, retrying",
			"operation", p.Operation,
			"attempt", attempt,
			"max_attempts", p.attempts(),
			"wait_ms", wait.Milliseconds(),
			"error", err)
	}

	res, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(ctx)
		lastErr = err
		return v, err
	}, b, notify)
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		return res, errors.Join(err, lastErr)
	}
	return res, err
}
