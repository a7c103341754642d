package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls   atomic.Int32
	cleared int64
	err     error
}

func (p *countingPurger) ClearExpiredConfirmationCodes(_ context.Context, _ time.Time) (int64, error) {
	p.calls.Add(1)
	return p.cleared, p.err
}

func TestPurgeExpiredCodes(t *testing.T) {
	purger := &countingPurger{cleared: 3}
	s := New(purger, "")

	cleared, err := s.PurgeExpiredCodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("expected 3 cleared codes, got %d", cleared)
	}
	if s.schedule != DefaultPurgeSchedule {
		t.Errorf("expected default schedule, got %q", s.schedule)
	}
}

func TestPurgeExpiredCodesPropagatesError(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	if _, err := New(purger, "").PurgeExpiredCodes(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := New(&countingPurger{}, "not a cron spec")
	if err := s.Start(); err == nil {
		t.Fatal("expected invalid schedule to fail")
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	purger := &countingPurger{}
	s := New(purger, "@every 1s")
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for purger.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("purge job did not run")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
