package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"netmatch/internal/model"
)

func TestSchedulerRunOnce(t *testing.T) {
	t.Parallel()

	s := &stubStore{users: []string{"u1", "u2", "u3"}}
	gen := &stubInsights{}
	cs := &stubColdStart{failFor: "u2"}

	sched := NewScheduler(s, gen, cs, Config{Interval: "1h", Timeout: "5s", Concurrency: 2}, zaptest.NewLogger(t))
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return fixed }

	report, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if report.Users != 3 || report.Refreshed != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Insights != 3 {
		t.Fatalf("expected 3 insights, got %d", report.Insights)
	}
	if gen.calls.Load() != 3 {
		t.Fatalf("expected generator called for every user, got %d", gen.calls.Load())
	}
	if want := fixed.Add(-24 * time.Hour); !s.since.Equal(want) {
		t.Fatalf("expected active window since %v, got %v", want, s.since)
	}
}

func TestSchedulerListFailure(t *testing.T) {
	t.Parallel()

	s := &stubStore{err: errors.New("db down")}
	sched := NewScheduler(s, &stubInsights{}, nil, Config{}, zaptest.NewLogger(t))
	if _, err := sched.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error when listing users fails")
	}
}

func TestSchedulerNoOverlap(t *testing.T) {
	t.Parallel()

	tickCh := make(chan time.Time, 4)
	st := &stubTicker{ch: tickCh}

	s := &stubStore{users: []string{"u1"}}
	gen := &stubInsights{block: make(chan struct{})}

	sched := NewScheduler(s, gen, nil, Config{Interval: "100ms", Timeout: "5s"}, zaptest.NewLogger(t))
	sched.newTicker = func(d time.Duration) ticker { return st }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Start(ctx)
	}()

	// First tick blocks inside the generator until released.
	tickCh <- time.Now()
	time.Sleep(20 * time.Millisecond)

	// Queued while the first run is still in progress; drained afterwards.
	tickCh <- time.Now()

	close(gen.block)

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if gen.calls.Load() != 1 {
		t.Fatalf("expected generator called once due to overlap prevention, got %d", gen.calls.Load())
	}
	if s.calls.Load() != 1 {
		t.Fatalf("expected store called once, got %d", s.calls.Load())
	}
}

func TestSchedulerSkipsConcurrentRun(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(&stubStore{}, &stubInsights{}, nil, Config{}, zaptest.NewLogger(t))
	sched.running.Store(true)
	report, err := sched.RunOnce(context.Background())
	if err != nil || !report.Skipped {
		t.Fatalf("expected skipped run, got %+v, %v", report, err)
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	if d, c := parseSchedule("30m", time.Hour); d != 30*time.Minute || c != nil {
		t.Fatalf("expected 30m interval, got %v %v", d, c)
	}
	if d, c := parseSchedule("not a schedule", time.Hour); d != time.Hour || c != nil {
		t.Fatalf("expected fallback, got %v %v", d, c)
	}
	_, c := parseSchedule("*/15 8-18 * * 1-5", time.Hour)
	if c == nil {
		t.Fatalf("expected cron schedule")
	}

	// Friday 2024-05-03 17:50 -> 18:00 same day; 18:50 -> Monday 08:00.
	next, err := c.next(time.Date(2024, 5, 3, 17, 50, 0, 0, time.UTC))
	if err != nil || !next.Equal(time.Date(2024, 5, 3, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next: %v %v", next, err)
	}
	next, err = c.next(time.Date(2024, 5, 3, 18, 50, 0, 0, time.UTC))
	if err != nil || !next.Equal(time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next after hours: %v %v", next, err)
	}
}

func TestParseCronFieldRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "60", "*/0", "5-2", "a"} {
		if _, err := parseCronField(expr, 0, 59); err == nil {
			t.Fatalf("expected error for %q", expr)
		}
	}
}

// --- stubs ---

type stubStore struct {
	users []string
	err   error
	calls atomic.Int32
	mu    sync.Mutex
	since time.Time
}

func (s *stubStore) ActiveUsers(_ context.Context, since time.Time, _ int) ([]string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.since = since
	s.mu.Unlock()
	return s.users, s.err
}

type stubInsights struct {
	calls atomic.Int32
	block chan struct{}
}

func (s *stubInsights) Generate(ctx context.Context, userID string) ([]model.AlgorithmInsight, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return []model.AlgorithmInsight{{UserID: userID, Type: model.InsightActivityPattern}}, nil
}

type stubColdStart struct {
	failFor string
}

func (c *stubColdStart) Refresh(_ context.Context, userID string) (*model.ColdStartProfile, error) {
	if userID == c.failFor {
		return nil, errors.New("save failed")
	}
	return &model.ColdStartProfile{UserID: userID, Phase: model.PhaseLearning}, nil
}

type stubTicker struct {
	ch chan time.Time
}

func (s *stubTicker) C() <-chan time.Time { return s.ch }
func (s *stubTicker) Stop()               {}
