package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/property-radar/crawl/internal/errs"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errs.TransientFetch("flaky", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times", calls)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("always down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoNeverRetriesPolicyRefusal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errs.BlockedByPolicy("https://example.com", nil)
	})
	if !errs.HasCode(err, errs.CodeBlockedByPolicy) {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Errorf("policy refusal retried: %d calls", calls)
	}
}

func TestDoNeverRetriesConfigError(t *testing.T) {
	calls := 0
	Do(context.Background(), fastConfig(), func() error {
		calls++
		return errs.Config("bad sites file", nil)
	})
	if calls != 1 {
		t.Errorf("config error retried: %d calls", calls)
	}
}

func TestOnceRetriesExactlyOnce(t *testing.T) {
	calls := 0
	err := Once(context.Background(), time.Millisecond, func() error {
		calls++
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want first attempt + one retry", calls)
	}
}

func TestOnceSkipsRetryOnSuccess(t *testing.T) {
	calls := 0
	err := Once(context.Background(), time.Minute, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("calls=%d err=%v", calls, err)
	}
}

func TestOnceHonorsCancellationDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := Once(ctx, time.Minute, func() error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn ran during cancelled cooldown: %d calls", calls)
	}
}
