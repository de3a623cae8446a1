package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidTimezone(t *testing.T) {
	if _, err := New("Not/AZone", quietLogger()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestAddJob(t *testing.T) {
	s, err := New("UTC", quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	noop := func(context.Context) error { return nil }

	if err := s.AddJob("sync", "@every 8m", noop); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob("sync", "@every 8m", noop); err == nil {
		t.Error("expected error for duplicate job name")
	}
	if err := s.AddJob("bad", "not a schedule", noop); err == nil {
		t.Error("expected error for invalid schedule")
	}

	jobs := s.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != "sync" {
		t.Fatalf("ListJobs = %+v", jobs)
	}

	s.RemoveJob("sync")
	if len(s.ListJobs()) != 0 {
		t.Error("job still listed after RemoveJob")
	}
}

func TestRunNow_ReturnsJobError(t *testing.T) {
	s, err := New("", quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := errors.New("boom")
	got := s.RunNow(context.Background(), "sync", func(context.Context) error { return want })
	if !errors.Is(got, want) {
		t.Errorf("RunNow = %v, want %v", got, want)
	}
}

func TestRun_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	s, err := New("UTC", quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	job := func(context.Context) error {
		runs.Add(1)
		cancel()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "sync", "@every 1h", job) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if runs.Load() != 1 {
		t.Errorf("job ran %d times, want 1", runs.Load())
	}
}
