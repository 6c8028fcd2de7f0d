package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	benclock "github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
	"microstep/internal/platform/clock"
	"microstep/internal/platform/id"
)

const (
	DefaultFlushInterval  = 5 * time.Second
	DefaultFlushThreshold = 10
)

type Options struct {
	// Location decides which calendar day an event belongs to.
	Location       *time.Location
	FlushInterval  time.Duration
	FlushThreshold int
}

type Stats struct {
	Buffered      int
	Tracked       int
	Flushed       int
	FailedAppends int
	LastError     string
	LastFlushAt   time.Time
}

// EventTracker buffers events in memory and persists them by date. Delivery
// is at least once: a group whose append fails goes back to the front of the
// buffer and is retried by the next flush.
type EventTracker struct {
	clock  clock.Ticking
	idGen  id.Generator
	store  trackingout.EventStore
	logger *zap.Logger
	opts   Options

	mu           sync.Mutex
	buffer       []domain.TrackEvent
	running      bool
	flushPending bool
	cancel       context.CancelFunc
	loopDone     chan struct{}
	stats        Stats

	flushMu  sync.Mutex
	inflight sync.WaitGroup
}

func NewEventTracker(clk clock.Ticking, idGen id.Generator, store trackingout.EventStore, logger *zap.Logger, opts Options) *EventTracker {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = DefaultFlushThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventTracker{clock: clk, idGen: idGen, store: store, logger: logger, opts: opts}
}

// Track stamps and buffers an event. It never blocks on the store.
func (t *EventTracker) Track(payload domain.Payload) domain.TrackEvent {
	now := t.clock.Now()
	event := domain.TrackEvent{
		ID:        t.idGen.New(),
		Type:      payload.Type(),
		Timestamp: now,
		Date:      domain.DateOf(now, t.opts.Location),
		Payload:   payload,
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, event)
	t.stats.Tracked++
	trigger := t.running && !t.flushPending && len(t.buffer) >= t.opts.FlushThreshold
	if trigger {
		t.flushPending = true
		t.inflight.Add(1)
	}
	t.mu.Unlock()

	if trigger {
		go func() {
			defer t.inflight.Done()
			_ = t.Flush(context.Background())
		}()
	}
	return event
}

// Init starts the interval flush loop. The loop flushes once more when ctx
// is cancelled, so cancelling the process context drains the buffer.
func (t *EventTracker) Init(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	ticker := t.clock.Ticker(t.opts.FlushInterval)
	t.cancel = cancel
	t.loopDone = make(chan struct{})
	t.running = true
	go t.loop(loopCtx, ticker, t.loopDone)
}

func (t *EventTracker) loop(ctx context.Context, ticker *benclock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = t.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			_ = t.Flush(context.WithoutCancel(ctx))
		}
	}
}

// Destroy stops the loop, waits for pending flushes and flushes what is
// left. It is safe to call more than once.
func (t *EventTracker) Destroy(ctx context.Context) error {
	t.mu.Lock()
	cancel, done := t.cancel, t.loopDone
	t.running = false
	t.cancel = nil
	t.loopDone = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	t.inflight.Wait()
	return t.Flush(ctx)
}

// Flush drains the buffer into the store grouped by date. Groups keep the
// order their dates were first seen and events keep append order.
func (t *EventTracker) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	batch := t.buffer
	t.buffer = nil
	t.flushPending = false
	t.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	dates := lo.Uniq(lo.Map(batch, func(e domain.TrackEvent, _ int) string { return e.Date }))
	groups := lo.GroupBy(batch, func(e domain.TrackEvent) string { return e.Date })

	var (
		failed  []domain.TrackEvent
		errs    []error
		flushed int
	)
	for _, date := range dates {
		group := groups[date]
		if err := t.store.Append(ctx, date, group); err != nil {
			failed = append(failed, group...)
			errs = append(errs, fmt.Errorf("append %s: %w", date, err))
			t.logger.Warn("event append failed, requeued",
				zap.String("date", date),
				zap.Int("events", len(group)),
				zap.Error(err),
			)
			continue
		}
		flushed += len(group)
	}

	t.mu.Lock()
	if len(failed) > 0 {
		t.buffer = append(failed, t.buffer...)
		t.stats.FailedAppends += len(errs)
		t.stats.LastError = errs[len(errs)-1].Error()
	}
	t.stats.Flushed += flushed
	if flushed > 0 {
		t.stats.LastFlushAt = t.clock.Now()
	}
	t.mu.Unlock()

	if flushed > 0 {
		t.logger.Debug("events flushed", zap.Int("events", flushed), zap.Int("requeued", len(failed)))
	}
	return errors.Join(errs...)
}

func (t *EventTracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.Buffered = len(t.buffer)
	return stats
}

// Pending returns a copy of the events not yet persisted.
func (t *EventTracker) Pending() []domain.TrackEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.TrackEvent(nil), t.buffer...)
}
