package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithResultSucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	out, err := RetryWithResult(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Fatalf("got out=%q calls=%d", out, calls)
	}
}

func TestRetryWithResultExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	_, err := RetryWithResult(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryIfStopsOnNonRetryable(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	_, err := RetryIfWithResult(context.Background(), cfg, func(error) bool { return false }, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{ErrCircuitOpen, false},
		{errors.New("unexpected status 404"), false},
		{errors.New("unexpected status 429"), true},
		{errors.New("connection reset by peer"), true},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst tokens should be available")
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "sina",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	fail := func(ctx context.Context) (int, error) { return 0, errors.New("upstream down") }
	ok := func(ctx context.Context) (int, error) { return 1, nil }

	ctx := context.Background()
	_, _ = ExecuteWithResult(cb, ctx, fail)
	_, _ = ExecuteWithResult(cb, ctx, fail)

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	if _, err := ExecuteWithResult(cb, ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	time.Sleep(15 * time.Millisecond)

	if _, err := ExecuteWithResult(cb, ctx, ok); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerIgnoresContexterrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "x", FailureThreshold: 1})

	_, _ = ExecuteWithResult(cb, context.Background(), func(ctx context.Context) (int, error) {
		return 0, context.DeadlineExceeded
	})

	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}
}
