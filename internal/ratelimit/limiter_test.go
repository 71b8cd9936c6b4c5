package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()
	l := New(cfg, zerolog.Nop())
	t.Cleanup(l.Close)
	return l
}

// pinClock fixes the limiter's clock and realigns the window marks.
func pinClock(l *Limiter, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = func() time.Time { return at }
	l.hourMark = at.UnixMilli() / hourMillis
	l.dayMark = at.UnixMilli() / dayMillis
	l.quotaStart = at
}

func TestCheckLimit_MinuteWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerMinute = 3
	l := newTestLimiter(t, cfg)

	// 15 seconds into a minute, so the retry-after is 45s.
	at := time.UnixMilli(1_700_000_000_000).Truncate(time.Minute).Add(15 * time.Second)
	pinClock(l, at)

	for i := 0; i < 3; i++ {
		if _, err := l.CheckLimit(); err != nil {
			t.Fatalf("request %d: CheckLimit failed: %v", i+1, err)
		}
		l.RecordRequest()
		l.CompleteRequest()
	}

	_, err := l.CheckLimit()
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("CheckLimit error = %v, want *LimitError", err)
	}
	if le.Condition != ConditionMinute {
		t.Errorf("Condition = %q, want %q", le.Condition, ConditionMinute)
	}
	if le.RetryAfter <= 0 || le.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want in (0, 60s]", le.RetryAfter)
	}
	if le.RetryAfter != 45*time.Second {
		t.Errorf("RetryAfter = %v, want 45s", le.RetryAfter)
	}
}

func TestCheckLimit_MinuteWindowRolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerMinute = 1
	l := newTestLimiter(t, cfg)

	at := time.UnixMilli(1_700_000_000_000).Truncate(time.Minute)
	pinClock(l, at)
	l.RecordRequest()
	l.CompleteRequest()

	if _, err := l.CheckLimit(); err == nil {
		t.Fatal("expected minute-window rejection")
	}

	pinClock(l, at.Add(time.Minute))
	if _, err := l.CheckLimit(); err != nil {
		t.Errorf("CheckLimit after window rolled: %v", err)
	}
}

func TestCheckLimit_HourWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerHour = 2
	l := newTestLimiter(t, cfg)
	pinClock(l, time.UnixMilli(1_700_000_000_000))

	for i := 0; i < 2; i++ {
		l.RecordRequest()
		l.CompleteRequest()
	}

	_, err := l.CheckLimit()
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("CheckLimit error = %v, want *LimitError", err)
	}
	if le.Condition != ConditionHour {
		t.Errorf("Condition = %q, want %q", le.Condition, ConditionHour)
	}
	if le.RetryAfter <= 0 || le.RetryAfter > time.Hour {
		t.Errorf("RetryAfter = %v, want in (0, 1h]", le.RetryAfter)
	}
}

func TestCheckLimit_QuotaRollsAfterHour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuotaPerHour = 1
	l := newTestLimiter(t, cfg)

	at := time.UnixMilli(1_700_000_000_000)
	pinClock(l, at)
	l.RecordRequest()
	l.CompleteRequest()

	_, err := l.CheckLimit()
	var le *LimitError
	if !errors.As(err, &le) || le.Condition != ConditionQuota {
		t.Fatalf("CheckLimit error = %v, want quota rejection", err)
	}

	l.mu.Lock()
	l.now = func() time.Time { return at.Add(time.Hour + time.Second) }
	l.mu.Unlock()
	if _, err := l.CheckLimit(); err != nil {
		t.Errorf("CheckLimit after quota window rolled: %v", err)
	}
}

func TestCheckLimit_Concurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	l := newTestLimiter(t, cfg)

	l.RecordRequest()

	_, err := l.CheckLimit()
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("CheckLimit error = %v, want *LimitError", err)
	}
	if le.Condition != ConditionConcurrency {
		t.Errorf("Condition = %q, want %q", le.Condition, ConditionConcurrency)
	}
	if le.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v, want 0 for concurrency", le.RetryAfter)
	}

	l.CompleteRequest()
	if _, err := l.CheckLimit(); err != nil {
		t.Errorf("CheckLimit after completion: %v", err)
	}
}

func TestExecute_NoOverlapWithConcurrencyOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	l := newTestLimiter(t, cfg)

	var inFlight atomic.Int32
	var overlapped atomic.Bool

	op := func(context.Context) error {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Execute(context.Background(), 0, op); err != nil {
				t.Errorf("Execute failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlapped.Load() {
		t.Error("operations overlapped despite concurrency cap of 1")
	}
}

func TestExecute_DrainsByPriority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	l := newTestLimiter(t, cfg)

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Execute(context.Background(), 0, func(context.Context) error {
			<-gate
			return nil
		})
	}()

	// Wait until the gated op holds the only slot.
	waitFor(t, func() bool { return l.Stats().ActiveRequests == 1 })

	for i, prio := range []int{1, 5, 3} {
		prio := prio
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Execute(context.Background(), prio, func(context.Context) error {
				mu.Lock()
				order = append(order, prio)
				mu.Unlock()
				return nil
			})
		}()
		// Each submission must be enqueued before the next, so
		// arrival order is deterministic.
		want := i + 1
		waitFor(t, func() bool { return l.Stats().QueuedRequests == want })
	}

	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []int{5, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("ran %d queued ops, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drain order = %v, want %v", order, want)
		}
	}
}

func TestExecute_QueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	cfg.QueueSize = 1
	l := newTestLimiter(t, cfg)

	gate := make(chan struct{})
	defer close(gate)

	go l.Execute(context.Background(), 0, func(context.Context) error {
		<-gate
		return nil
	})
	waitFor(t, func() bool { return l.Stats().ActiveRequests == 1 })

	go l.Execute(context.Background(), 0, func(context.Context) error { return nil })
	waitFor(t, func() bool { return l.Stats().QueuedRequests == 1 })

	err := l.Execute(context.Background(), 0, func(context.Context) error { return nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Execute error = %v, want ErrQueueFull", err)
	}
}

func TestExecute_OperationErrorPropagates(t *testing.T) {
	l := newTestLimiter(t, DefaultConfig())

	opErr := errors.New("boom")
	err := l.Execute(context.Background(), 0, func(context.Context) error { return opErr })
	if !errors.Is(err, opErr) {
		t.Errorf("Execute error = %v, want %v", err, opErr)
	}

	// The failed operation must still release its slot.
	if got := l.Stats().ActiveRequests; got != 0 {
		t.Errorf("ActiveRequests = %d, want 0", got)
	}
}

func TestExecute_CanceledWhileQueued(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	l := newTestLimiter(t, cfg)

	gate := make(chan struct{})
	defer close(gate)

	go l.Execute(context.Background(), 0, func(context.Context) error {
		<-gate
		return nil
	})
	waitFor(t, func() bool { return l.Stats().ActiveRequests == 1 })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Execute(ctx, 0, func(context.Context) error { return nil })
	}()
	waitFor(t, func() bool { return l.Stats().QueuedRequests == 1 })

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}

func TestStats(t *testing.T) {
	l := newTestLimiter(t, DefaultConfig())
	pinClock(l, time.UnixMilli(1_700_000_000_000))

	l.RecordRequest()
	l.RecordRequest()

	got := l.Stats()
	if got.ActiveRequests != 2 {
		t.Errorf("ActiveRequests = %d, want 2", got.ActiveRequests)
	}
	if got.MinuteRequests != 2 {
		t.Errorf("MinuteRequests = %d, want 2", got.MinuteRequests)
	}
	if got.HourlyRequests != 2 || got.DailyRequests != 2 || got.QuotaUsed != 2 {
		t.Errorf("counters = %+v, want all 2", got)
	}
}

func TestReset(t *testing.T) {
	l := newTestLimiter(t, DefaultConfig())
	l.RecordRequest()
	l.RecordRequest()

	l.Reset()

	got := l.Stats()
	if got.ActiveRequests != 0 || got.MinuteRequests != 0 || got.QuotaUsed != 0 {
		t.Errorf("stats after Reset = %+v, want zeroes", got)
	}
}

func TestReset_WhileRequestInFlight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	l := newTestLimiter(t, cfg)

	l.RecordRequest()
	l.Reset()
	// The completion of the pre-Reset request must not push the
	// in-flight counter below zero.
	l.CompleteRequest()

	if got := l.Stats().ActiveRequests; got != 0 {
		t.Fatalf("ActiveRequests = %d, want 0", got)
	}

	// A negative counter would admit two requests past a cap of 1.
	l.RecordRequest()
	_, err := l.CheckLimit()
	var le *LimitError
	if !errors.As(err, &le) || le.Condition != ConditionConcurrency {
		t.Errorf("CheckLimit error = %v, want concurrency rejection", err)
	}
}

func TestRateLimitInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerMinute = 10
	l := newTestLimiter(t, cfg)
	at := time.UnixMilli(1_700_000_000_000)
	pinClock(l, at)

	l.RecordRequest()
	l.RecordRequest()
	l.RecordRequest()

	info := l.RateLimitInfo()
	if info.Remaining != 7 {
		t.Errorf("Remaining = %d, want 7", info.Remaining)
	}
	if info.Limit != 10 {
		t.Errorf("Limit = %d, want 10", info.Limit)
	}
	if !info.Reset.After(at) {
		t.Errorf("Reset = %v, want after %v", info.Reset, at)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
