package drain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingCycler struct {
	calls   atomic.Int64
	release chan struct{}
}

func (c *countingCycler) Cycle(ctx context.Context) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestParseSchedule(t *testing.T) {
	for _, tc := range []struct {
		spec    string
		wantErr bool
	}{
		{DefaultSchedule, false},
		{"*/30 * * * * *", false},
		{"@every 1m", false},
		{"*/2 * * * *", true}, // five fields
		{"not a schedule", true},
	} {
		_, err := ParseSchedule(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
		}
	}
}

func TestParseSchedule_EveryTwoMinutes(t *testing.T) {
	s, err := ParseSchedule(DefaultSchedule)
	if err != nil {
		t.Fatal(err)
	}
	from := time.Date(2024, 5, 1, 10, 0, 30, 0, time.UTC)
	next := s.Next(from)
	if want := time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
	if want := time.Date(2024, 5, 1, 10, 4, 0, 0, time.UTC); !s.Next(next).Equal(want) {
		t.Errorf("Next after = %v, want %v", s.Next(next), want)
	}
}

func TestSchedulerStartStop_RunsOnStart(t *testing.T) {
	c := &countingCycler{}
	s, err := NewScheduler(c, "@every 1h", true, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start(context.Background())
	waitFor(t, func() bool { return c.calls.Load() >= 1 })
	s.Stop()

	if got := c.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSchedulerStart_NoRunOnStart(t *testing.T) {
	c := &countingCycler{}
	s, err := NewScheduler(c, "@every 1h", false, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	if got := c.calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	c := &countingCycler{release: make(chan struct{})}
	s, err := NewScheduler(c, "* * * * * *", true, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start(context.Background())

	waitFor(t, func() bool { return c.calls.Load() >= 1 })
	// at least two per-second ticks fire while the first cycle is blocked
	time.Sleep(2200 * time.Millisecond)
	if got := c.calls.Load(); got != 1 {
		t.Errorf("calls while running = %d, want 1", got)
	}

	close(c.release)
	s.Stop()
}

func TestSchedulerStop_CancelsRunningCycle(t *testing.T) {
	c := &countingCycler{release: make(chan struct{})}
	s, err := NewScheduler(c, "@every 1h", true, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start(context.Background())
	waitFor(t, func() bool { return c.calls.Load() >= 1 })

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after cancelling the cycle")
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	s, err := NewScheduler(&countingCycler{}, DefaultSchedule, false, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Stop()
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	if _, err := NewScheduler(&countingCycler{}, "bogus", false, nil); err == nil {
		t.Error("expected error")
	}
}
