// Package backoff computes exponential retry delays with jitter. The LLM
// provider adapters use it to retry upstream calls; tool invocations are
// not retried.
package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy parameterizes exponential backoff with jitter.
type Policy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// Default is a general-purpose policy: quick first retry, capped at 30s.
// Nothing in this module uses it; the LLM adapters use Provider.
func Default() Policy {
	return Policy{InitialMs: 100, MaxMs: 30000, Factor: 2, Jitter: 0.1}
}

// Provider is used for LLM provider failover retries: longer ceiling since
// rate-limit resets are typically on the order of tens of seconds.
func Provider() Policy {
	return Policy{InitialMs: 250, MaxMs: 60000, Factor: 2.5, Jitter: 0.2}
}

// Compute returns the delay for the given attempt (1-indexed) using a
// process-global random source.
func Compute(p Policy, attempt int) time.Duration {
	return ComputeWithRand(p, attempt, rand.Float64()) // #nosec G404 -- jitter, not security sensitive
}

// ComputeWithRand is Compute with an injected random sample in [0, 1) for
// deterministic tests.
func ComputeWithRand(p Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := p.InitialMs * math.Pow(p.Factor, exp)
	jitter := base * p.Jitter * randomValue
	total := math.Min(p.MaxMs, base+jitter)
	return time.Duration(math.Round(total)) * time.Millisecond
}

// Sleep blocks for duration or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("backoff: all attempts exhausted")

// Result captures the outcome of a Retry call.
type Result[T any] struct {
	Value     T
	Attempts  int
	LastError error
}

// Retry runs fn up to maxAttempts times, sleeping per Policy between
// attempts and honoring ctx cancellation. fn receives the 1-indexed
// attempt number.
func Retry[T any](ctx context.Context, p Policy, maxAttempts int, fn func(attempt int) (T, error)) (Result[T], error) {
	var res Result[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			return res, err
		}
		value, err := fn(attempt)
		if err == nil {
			res.Value = value
			return res, nil
		}
		res.LastError = err
		if attempt < maxAttempts {
			if serr := Sleep(ctx, Compute(p, attempt)); serr != nil {
				return res, serr
			}
		}
	}
	return res, ErrExhausted
}
