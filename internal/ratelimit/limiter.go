// Package ratelimit gates every outbound API call behind per-minute,
// per-hour and per-day request ceilings, a rolling-hour quota, and a
// concurrency cap. Calls rejected by a ceiling are queued by priority
// and replayed as capacity frees up.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Condition names the ceiling that rejected a request.
type Condition string

const (
	// ConditionMinute means the per-minute request ceiling was hit.
	ConditionMinute Condition = "minute"
	// ConditionHour means the per-hour request ceiling was hit.
	ConditionHour Condition = "hour"
	// ConditionDay means the per-day request ceiling was hit.
	ConditionDay Condition = "day"
	// ConditionQuota means the rolling-hour quota was exhausted.
	ConditionQuota Condition = "quota"
	// ConditionConcurrency means too many requests are in flight.
	ConditionConcurrency Condition = "concurrency"
)

// ErrQueueFull is returned by Execute when the deferred-operation queue
// has reached its configured bound.
var ErrQueueFull = errors.New("ratelimit: queue full")

// LimitError reports a rejected request along with when it is worth
// retrying. Concurrency rejections carry no RetryAfter; they clear when
// an in-flight request completes, not on a timer.
type LimitError struct {
	// Condition is the ceiling that fired.
	Condition Condition
	// Limit is the configured ceiling value.
	Limit int
	// Reset is when the window rolls over. Zero for concurrency.
	Reset time.Time
	// RetryAfter is how long until the window rolls over. Zero for
	// concurrency.
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.Condition == ConditionConcurrency {
		return fmt.Sprintf("rate limit: maximum concurrent requests reached (limit %d)", e.Limit)
	}
	return fmt.Sprintf("rate limit: %s window exceeded (limit %d), retry after %s", e.Condition, e.Limit, e.RetryAfter)
}

// Config holds the limiter's ceilings.
type Config struct {
	// RequestsPerMinute caps requests inside one wall-clock minute
	// bucket.
	RequestsPerMinute int
	// RequestsPerHour caps requests inside one wall-clock hour bucket.
	RequestsPerHour int
	// RequestsPerDay caps requests inside one wall-clock day bucket.
	RequestsPerDay int
	// QuotaPerHour caps requests inside a rolling hour that starts at
	// the first request after the previous quota window lapsed.
	QuotaPerHour int
	// MaxConcurrent caps in-flight requests.
	MaxConcurrent int
	// QueueSize bounds the deferred-operation queue. Zero means the
	// default of 100.
	QueueSize int
}

// DefaultConfig returns the ceilings used against the Todoist API.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		RequestsPerDay:    10000,
		QuotaPerHour:      1000,
		MaxConcurrent:     10,
		QueueSize:         100,
	}
}

// Info is a snapshot of the per-minute window, the most granular one.
type Info struct {
	Remaining int
	Reset     time.Time
	Limit     int
}

// QuotaInfo is a snapshot of the rolling-hour quota window.
type QuotaInfo struct {
	Remaining int
	Limit     int
	Reset     time.Time
	Used      int
}

// Stats exposes the limiter's live counters for health checks.
type Stats struct {
	ActiveRequests int `json:"activeRequests"`
	QueuedRequests int `json:"queuedRequests"`
	MinuteRequests int `json:"minuteRequests"`
	HourlyRequests int `json:"hourlyRequests"`
	DailyRequests  int `json:"dailyRequests"`
	QuotaUsed      int `json:"quotaUsed"`
}

const (
	minuteMillis = 60_000
	hourMillis   = 3_600_000
	dayMillis    = 86_400_000

	sweepInterval = time.Minute
)

// Limiter is the process-wide gate. A mutex serializes every counter
// and queue mutation; the wrapped operations themselves run outside
// the lock.
type Limiter struct {
	mu sync.Mutex

	cfg Config
	log zerolog.Logger

	timestamps []time.Time
	hourly     int
	daily      int
	hourMark   int64
	dayMark    int64

	quotaUsed  int
	quotaStart time.Time

	active int
	queue  *opQueue

	now  func() time.Time
	stop chan struct{}
}

// New builds a Limiter and starts its background sweep, which prunes
// stale timestamps and rolls the quota window once a minute. Call Close
// to stop the sweep.
func New(cfg Config, log zerolog.Logger) *Limiter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	l := &Limiter{
		cfg:        cfg,
		log:        log,
		queue:      newOpQueue(),
		now:        time.Now,
		stop:       make(chan struct{}),
		quotaStart: time.Now(),
	}
	l.hourMark = l.now().UnixMilli() / hourMillis
	l.dayMark = l.now().UnixMilli() / dayMillis
	go l.sweep()
	return l
}

// CheckLimit reports whether a request may proceed right now. On
// rejection it returns a *LimitError naming the ceiling; on success it
// returns the per-minute window snapshot.
func (l *Limiter) CheckLimit() (Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked()
}

func (l *Limiter) checkLocked() (Info, error) {
	now := l.now()
	l.pruneLocked(now)
	l.rollQuotaLocked(now)

	ms := now.UnixMilli()
	minuteBucket := ms / minuteMillis
	hourBucket := ms / hourMillis
	dayBucket := ms / dayMillis

	minuteCount := l.minuteCountLocked(minuteBucket)
	if minuteCount >= l.cfg.RequestsPerMinute {
		return Info{}, l.windowError(ConditionMinute, l.cfg.RequestsPerMinute, (minuteBucket+1)*minuteMillis, ms)
	}

	if hourBucket != l.hourMark {
		l.hourly = 0
		l.hourMark = hourBucket
	}
	if l.hourly >= l.cfg.RequestsPerHour {
		return Info{}, l.windowError(ConditionHour, l.cfg.RequestsPerHour, (hourBucket+1)*hourMillis, ms)
	}

	if dayBucket != l.dayMark {
		l.daily = 0
		l.dayMark = dayBucket
	}
	if l.daily >= l.cfg.RequestsPerDay {
		return Info{}, l.windowError(ConditionDay, l.cfg.RequestsPerDay, (dayBucket+1)*dayMillis, ms)
	}

	if l.quotaUsed >= l.cfg.QuotaPerHour {
		reset := l.quotaStart.Add(time.Hour)
		return Info{}, &LimitError{
			Condition:  ConditionQuota,
			Limit:      l.cfg.QuotaPerHour,
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}
	}

	if l.active >= l.cfg.MaxConcurrent {
		return Info{}, &LimitError{Condition: ConditionConcurrency, Limit: l.cfg.MaxConcurrent}
	}

	return Info{
		Remaining: l.cfg.RequestsPerMinute - minuteCount,
		Reset:     time.UnixMilli((minuteBucket + 1) * minuteMillis),
		Limit:     l.cfg.RequestsPerMinute,
	}, nil
}

func (l *Limiter) windowError(cond Condition, limit int, resetMillis, nowMillis int64) *LimitError {
	err := &LimitError{
		Condition:  cond,
		Limit:      limit,
		Reset:      time.UnixMilli(resetMillis),
		RetryAfter: time.Duration(resetMillis-nowMillis) * time.Millisecond,
	}
	l.log.Warn().
		Str("window", string(cond)).
		Int("limit", limit).
		Dur("retry_after", err.RetryAfter).
		Msg("rate limit exceeded")
	return err
}

// RecordRequest charges the current instant against every window and
// marks one request in flight.
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked()
}

func (l *Limiter) recordLocked() {
	now := l.now()
	l.timestamps = append(l.timestamps, now)
	l.hourly++
	l.daily++
	l.quotaUsed++
	l.active++
	l.pruneLocked(now)
}

// CompleteRequest releases one in-flight slot and kicks the queue.
func (l *Limiter) CompleteRequest() {
	l.mu.Lock()
	l.releaseLocked()
	l.mu.Unlock()
	go l.drain()
}

// releaseLocked frees one in-flight slot. Clamped at zero so a Reset
// racing an in-flight operation cannot leave the counter negative and
// over-admit past the concurrency cap.
func (l *Limiter) releaseLocked() {
	if l.active > 0 {
		l.active--
	}
}

// Execute runs op under the limiter. If a ceiling rejects the call, it
// is queued at the given priority (higher drains first) and Execute
// blocks until the queued attempt runs or ctx is done. Failures of op
// itself propagate immediately and are never queued.
func (l *Limiter) Execute(ctx context.Context, priority int, op func(context.Context) error) error {
	l.mu.Lock()
	_, err := l.checkLocked()
	if err == nil {
		l.recordLocked()
		l.mu.Unlock()
		return l.runInline(ctx, op)
	}

	var le *LimitError
	if !errors.As(err, &le) {
		l.mu.Unlock()
		return err
	}
	if l.queue.len() >= l.cfg.QueueSize {
		l.mu.Unlock()
		return ErrQueueFull
	}
	it := &queuedOp{ctx: ctx, op: op, priority: priority, done: make(chan error, 1)}
	l.queue.push(it)
	queued := l.queue.len()
	l.mu.Unlock()

	l.log.Debug().
		Int("priority", priority).
		Int("queued", queued).
		Str("window", string(le.Condition)).
		Msg("request queued")
	go l.drain()

	select {
	case opErr := <-it.done:
		return opErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) runInline(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	l.mu.Lock()
	l.releaseLocked()
	l.mu.Unlock()
	go l.drain()
	return err
}

// drain replays queued operations while capacity lasts. An item that
// still cannot pass the check goes back to the FRONT of the queue so
// priority order survives, and draining stops until capacity frees up.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if l.queue.len() == 0 || l.active >= l.cfg.MaxConcurrent {
			l.mu.Unlock()
			return
		}
		it := l.queue.popFront()
		if it.ctx.Err() != nil {
			l.mu.Unlock()
			it.done <- it.ctx.Err()
			continue
		}
		if _, err := l.checkLocked(); err != nil {
			var le *LimitError
			if errors.As(err, &le) {
				l.queue.pushFront(it)
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			it.done <- err
			continue
		}
		l.recordLocked()
		l.mu.Unlock()

		go func(it *queuedOp) {
			err := it.op(it.ctx)
			l.mu.Lock()
			l.releaseLocked()
			l.mu.Unlock()
			it.done <- err
			l.drain()
		}(it)
	}
}

// Stats returns the live counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		ActiveRequests: l.active,
		QueuedRequests: l.queue.len(),
		MinuteRequests: l.minuteCountLocked(l.now().UnixMilli() / minuteMillis),
		HourlyRequests: l.hourly,
		DailyRequests:  l.daily,
		QuotaUsed:      l.quotaUsed,
	}
}

// RateLimitInfo returns the per-minute window snapshot without
// consuming capacity.
func (l *Limiter) RateLimitInfo() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	minuteBucket := l.now().UnixMilli() / minuteMillis
	count := l.minuteCountLocked(minuteBucket)
	remaining := l.cfg.RequestsPerMinute - count
	if remaining < 0 {
		remaining = 0
	}
	return Info{
		Remaining: remaining,
		Reset:     time.UnixMilli((minuteBucket + 1) * minuteMillis),
		Limit:     l.cfg.RequestsPerMinute,
	}
}

// QuotaUsage returns the rolling-hour quota snapshot.
func (l *Limiter) QuotaUsage() QuotaInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollQuotaLocked(l.now())
	remaining := l.cfg.QuotaPerHour - l.quotaUsed
	if remaining < 0 {
		remaining = 0
	}
	return QuotaInfo{
		Remaining: remaining,
		Limit:     l.cfg.QuotaPerHour,
		Reset:     l.quotaStart.Add(time.Hour),
		Used:      l.quotaUsed,
	}
}

// Reset clears every counter and drops the queue. Queued callers are
// failed with the context error if their context is done, otherwise
// they are abandoned; intended for tests and manual recovery only.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.timestamps = nil
	l.hourly = 0
	l.daily = 0
	l.quotaUsed = 0
	l.active = 0
	l.queue = newOpQueue()
	l.hourMark = now.UnixMilli() / hourMillis
	l.dayMark = now.UnixMilli() / dayMillis
	l.quotaStart = now
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	close(l.stop)
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			l.pruneLocked(now)
			l.rollQuotaLocked(now)
			l.mu.Unlock()
			go l.drain()
		case <-l.stop:
			return
		}
	}
}

// pruneLocked drops timestamps older than one hour. Entries inside the
// current minute are always newer than that, so minute counting stays
// correct.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}

func (l *Limiter) rollQuotaLocked(now time.Time) {
	if now.Sub(l.quotaStart) >= time.Hour {
		l.quotaUsed = 0
		l.quotaStart = now
	}
}

func (l *Limiter) minuteCountLocked(minuteBucket int64) int {
	count := 0
	for _, ts := range l.timestamps {
		if ts.UnixMilli()/minuteMillis == minuteBucket {
			count++
		}
	}
	return count
}
