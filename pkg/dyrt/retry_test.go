package dyrt

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetryConfig keeps the retry envelope shape but with millisecond
// backoffs so tests stay quick.
func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func transient(error) ErrorClass { return ErrorClassServer }

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", config.MaxAttempts)
	}
	if config.InitialBackoff != 2*time.Second {
		t.Errorf("InitialBackoff = %v, want 2s", config.InitialBackoff)
	}
	if config.MaxBackoff != 20*time.Second {
		t.Errorf("MaxBackoff = %v, want 20s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		callCount++
		return nil
	}, transient)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessBeforeExhaustion(t *testing.T) {
	// Fails three times, succeeds on the fourth attempt, within the
	// 5-attempt budget.
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		callCount++
		if callCount < 4 {
			return errors.New("temporary error")
		}
		return nil
	}, transient)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 4 {
		t.Errorf("Expected 4 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_Exhaustion(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		callCount++
		return errors.New("persistent error")
	}, transient)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 5 {
		t.Errorf("Expected exactly 5 attempts, got %d", callCount)
	}
}

func TestRetryWithBackoff_NoRetryForNonTransient(t *testing.T) {
	tests := []struct {
		name  string
		class ErrorClass
	}{
		{name: "client error", class: ErrorClassClient},
		{name: "decode error", class: ErrorClassDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			wantErr := errors.New("not transient")
			err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
				callCount++
				return wantErr
			}, func(error) ErrorClass { return tt.class })

			if !errors.Is(err, wantErr) {
				t.Errorf("Expected original error, got %v", err)
			}
			if callCount != 1 {
				t.Errorf("Expected 1 call, got %d", callCount)
			}
		})
	}
}

func TestRetryWithBackoff_BackoffStrictlyIncreasesToCap(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    2 * time.Millisecond,
		MaxBackoff:        6 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	var gaps []time.Duration
	last := time.Now()
	attempt := 0
	_ = retryWithBackoff(context.Background(), config, func() error {
		now := time.Now()
		if attempt > 0 {
			gaps = append(gaps, now.Sub(last))
		}
		last = now
		attempt++
		return errors.New("persistent error")
	}, transient)

	if len(gaps) != 4 {
		t.Fatalf("Expected 4 backoff gaps, got %d", len(gaps))
	}
	// 2ms, 4ms, then capped at 6ms: gaps must not shrink.
	if gaps[1] < gaps[0] {
		t.Errorf("Backoff decreased: %v then %v", gaps[0], gaps[1])
	}
	if gaps[3] > 4*config.MaxBackoff {
		t.Errorf("Backoff %v far beyond cap %v", gaps[3], config.MaxBackoff)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig()
	config.InitialBackoff = time.Second

	callCount := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, config, func() error {
		callCount++
		return errors.New("temporary error")
	}, transient)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}
