package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result, err := RetryWithBackoff(context.Background(), Backoff{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 99, nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if result != 99 || calls != 3 {
		t.Fatalf("RetryWithBackoff() got = %d after %d calls, want 99 after 3", result, calls)
	}
}

func TestRetryWithBackoff_PersistentFailure(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), Backoff{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("persistent")
	})
	if err == nil || err.Error() != "persistent" {
		t.Fatalf("RetryWithBackoff() error = %v, want persistent", err)
	}
	if calls != 3 {
		t.Fatalf("calls got = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_MaxTriesZeroOrNegative(t *testing.T) {
	for _, tries := range []int{0, -1} {
		calls := 0
		_, _ = RetryWithBackoff(context.Background(), Backoff{Attempts: tries}, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		if calls != 1 {
			t.Fatalf("maxTries=%d: calls got = %d, want 1", tries, calls)
		}
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithBackoff(ctx, Backoff{Attempts: 5}, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithBackoff() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls got = %d, want 0", calls)
	}
}

func TestRetryWithBackoff_FunctionReturnsContextError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), Backoff{Attempts: 5}, func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RetryWithBackoff() error = %v, want DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Fatalf("calls got = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_WaitsBetweenAttempts(t *testing.T) {
	var stamps []time.Time
	start := time.Now()
	_, err := RetryWithBackoff(context.Background(), Backoff{Attempts: 3, Initial: 10 * time.Millisecond, Max: 15 * time.Millisecond},
		func(context.Context) (int, error) {
			stamps = append(stamps, time.Now())
			return 0, errors.New("fail")
		})
	if err == nil {
		t.Fatal("RetryWithBackoff() expected error")
	}
	if len(stamps) != 3 {
		t.Fatalf("attempts got = %d, want 3", len(stamps))
	}
	// 10ms, then capped at 15ms
	if elapsed := stamps[2].Sub(start); elapsed < 25*time.Millisecond {
		t.Fatalf("elapsed got = %v, want at least 25ms", elapsed)
	}
}

func TestRetryWithBackoff_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := RetryWithBackoff(ctx, Backoff{Attempts: 5, Initial: time.Second}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RetryWithBackoff() error = %v, want DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Fatalf("calls got = %d, want 1", calls)
	}
}
