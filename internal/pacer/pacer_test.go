package pacer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var errBusy = errors.New("busy")

func newTestPacer(retryable func(error) bool) (*Pacer, *[]time.Duration) {
	var slept []time.Duration
	p := New(10*time.Millisecond, 20*time.Millisecond, retryable, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.BaseBackoff = time.Second
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, &slept
}

func TestDelayWithinBounds(t *testing.T) {
	p, _ := newTestPacer(nil)
	for i := 0; i < 200; i++ {
		d := p.Delay()
		if d < p.MinDelay || d > p.MaxDelay {
			t.Fatalf("Delay() = %v outside [%v, %v]", d, p.MinDelay, p.MaxDelay)
		}
	}
	p.MaxDelay = p.MinDelay
	if d := p.Delay(); d != p.MinDelay {
		t.Errorf("Delay() = %v, want %v", d, p.MinDelay)
	}
}

func TestRetry_Backoff(t *testing.T) {
	p, slept := newTestPacer(func(err error) bool { return errors.Is(err, errBusy) })
	calls := 0
	err := p.Retry(context.Background(), "insert", func() error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetry_GivesUp(t *testing.T) {
	p, _ := newTestPacer(func(error) bool { return true })
	calls := 0
	err := p.Retry(context.Background(), "insert", func() error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Errorf("err = %v, want errBusy", err)
	}
	if calls != p.MaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, p.MaxRetries+1)
	}
}

func TestRetry_NotRetryable(t *testing.T) {
	p, slept := newTestPacer(func(err error) bool { return errors.Is(err, errBusy) })
	calls := 0
	other := errors.New("bad request")
	if err := p.Retry(context.Background(), "insert", func() error {
		calls++
		return other
	}); !errors.Is(err, other) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 || len(*slept) != 0 {
		t.Errorf("calls=%d slept=%v, want 1 call and no sleep", calls, *slept)
	}
}

func TestWait_Cancelled(t *testing.T) {
	p := New(time.Hour, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}
