// Package resilience provides fault-tolerance patterns for the completion
// clients: retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
)

// Config holds resilience parameters.
// MaxRetries is the number of extra attempts; 0 means a single attempt.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// Calls abandoned by their caller do not count against the provider.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.As(err, &gone)
		},
	})
}

// callerGoneError marks a failure that happened after the caller's context
// was cancelled or timed out. It is unwrapped before Guard returns.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a bulkhead with the given max concurrency (minimum 1).
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(maxConcurrency))}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}

// Policy bundles the three patterns so a client can apply them in one call.
// Breaker and Bulkhead are optional.
type Policy struct {
	Config   Config
	Breaker  *gobreaker.CircuitBreaker
	Bulkhead *Bulkhead
}

// Guard runs fn behind the bulkhead, then the circuit breaker, then the retry
// loop. An open breaker is reported as *domain.ErrCircuitOpen.
func Guard[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if p.Bulkhead != nil {
		if err := p.Bulkhead.Acquire(ctx); err != nil {
			return zero, err
		}
		defer p.Bulkhead.Release()
	}

	run := func() (any, error) {
		var out T
		err := RetryWithBackoff(ctx, p.Config, func() error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGoneError{err: err}
			}
			return nil, err
		}
		return out, nil
	}

	if p.Breaker == nil {
		res, err := run()
		if err != nil {
			return zero, unwrapCallerGone(err)
		}
		return res.(T), nil
	}

	res, err := p.Breaker.Execute(run)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &domain.ErrCircuitOpen{Service: p.Breaker.Name()}
		}
		return zero, unwrapCallerGone(err)
	}
	return res.(T), nil
}

func unwrapCallerGone(err error) error {
	var gone *callerGoneError
	if errors.As(err, &gone) {
		return gone.err
	}
	return err
}
