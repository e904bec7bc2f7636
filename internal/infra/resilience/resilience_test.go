package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroRetriesIsSingleAttempt(t *testing.T) {
	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{}, func() error {
		callCount++
		return errors.New("unavailable")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroBackoffDoesNotPanic(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	callCount := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("unavailable")
	})

	if callCount != 3 {
		t.Errorf("expected 3 attempts, got %d", callCount)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block; test with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestGuard_ReturnsValue(t *testing.T) {
	p := resilience.Policy{
		Breaker:  resilience.NewCircuitBreaker("test-ok"),
		Bulkhead: resilience.NewBulkhead(1),
	}

	got, err := resilience.Guard(context.Background(), p, func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "done" {
		t.Errorf("expected 'done', got %q", got)
	}
}

func TestGuard_OpensCircuit(t *testing.T) {
	p := resilience.Policy{Breaker: resilience.NewCircuitBreaker("test-trip")}
	failing := func(context.Context) (int, error) { return 0, errors.New("boom") }

	for i := 0; i < 5; i++ {
		if _, err := resilience.Guard(context.Background(), p, failing); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	calls := 0
	_, err := resilience.Guard(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Service != "test-trip" {
		t.Errorf("expected service 'test-trip', got %q", open.Service)
	}
	if calls != 0 {
		t.Errorf("expected fn not to run while open, ran %d times", calls)
	}
}

func TestGuard_BulkheadFull(t *testing.T) {
	bh := resilience.NewBulkhead(1)
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	defer bh.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := resilience.Guard(ctx, resilience.Policy{Bulkhead: bh}, func(context.Context) (int, error) {
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGuard_CallerCancellationDoesNotTripCircuit(t *testing.T) {
	p := resilience.Policy{Breaker: resilience.NewCircuitBreaker("test-cancel")}

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := resilience.Guard(ctx, p, func(ctx context.Context) (int, error) {
			cancel()
			return 0, ctx.Err()
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, _ = resilience.Guard(ctx, p, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, errors.New("upstream aborted")
		})
		cancel()
	}

	if state := p.Breaker.State(); state != gobreaker.StateClosed {
		t.Fatalf("expected breaker to stay closed, got %s", state)
	}

	calls := 0
	_, err := resilience.Guard(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if err != nil || calls != 1 {
		t.Errorf("expected the provider to still be called, got err=%v calls=%d", err, calls)
	}
}
