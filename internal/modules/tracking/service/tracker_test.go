package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"microstep/internal/modules/tracking/domain"
)

type seqID struct {
	mu sync.Mutex
	n  int
}

func (g *seqID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("evt-%d", g.n)
}

// flakyStore fails the first failures appends and records the rest.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	appends  []string
	days     map[string][]domain.TrackEvent
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, days: map[string][]domain.TrackEvent{}}
}

func (s *flakyStore) Append(_ context.Context, date string, events []domain.TrackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	s.appends = append(s.appends, date)
	s.days[date] = append(s.days[date], events...)
	return nil
}

func (s *flakyStore) Read(_ context.Context, date string) ([]domain.TrackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TrackEvent{}, s.days[date]...), nil
}

func (s *flakyStore) Dates(context.Context) ([]string, error) {
	return nil, nil
}

func (s *flakyStore) count(date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days[date])
}

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return mock
}

func newTracker(mock *clock.Mock, store *flakyStore, threshold int) *EventTracker {
	return NewEventTracker(mock, &seqID{}, store, zap.NewNop(), Options{
		Location:       time.UTC,
		FlushInterval:  5 * time.Second,
		FlushThreshold: threshold,
	})
}

func started(label string) domain.MicroStarted {
	return domain.MicroStarted{StepRef: domain.StepRef{SessionID: "s1", TaskID: "t1", TaskTitle: "Write report", MicroAction: label}}
}

func ids(events []domain.TrackEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestTrackStampsEvent(t *testing.T) {
	t.Parallel()
	mock := newMockClock()
	tracker := newTracker(mock, newFlakyStore(0), 10)

	event := tracker.Track(started("open doc"))

	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, domain.TypeMicroStarted, event.Type)
	assert.True(t, event.Timestamp.Equal(mock.Now()))
	assert.Equal(t, "2026-03-14", event.Date)
	assert.Equal(t, 1, tracker.Stats().Buffered)
}

func TestTrackBeforeInitOnlyBuffers(t *testing.T) {
	t.Parallel()
	store := newFlakyStore(0)
	tracker := newTracker(newMockClock(), store, 1)

	tracker.Track(started("a"))
	tracker.Track(started("b"))

	assert.Equal(t, 2, tracker.Stats().Buffered)
	assert.Equal(t, 0, store.count("2026-03-14"))
}

func TestFlushRequeuesFailedBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFlakyStore(1)
	tracker := newTracker(newMockClock(), store, 10)

	for _, label := range []string{"a", "b", "c"} {
		tracker.Track(started(label))
	}

	require.Error(t, tracker.Flush(ctx))
	stats := tracker.Stats()
	assert.Equal(t, 3, stats.Buffered)
	assert.Equal(t, 1, stats.FailedAppends)
	assert.Contains(t, stats.LastError, "disk full")

	require.NoError(t, tracker.Flush(ctx))
	events, err := store.Read(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, ids(events))
	assert.Equal(t, 0, tracker.Stats().Buffered)
}

func TestFlushRetriesUntilPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFlakyStore(4)
	tracker := newTracker(newMockClock(), store, 100)

	for i := 0; i < 5; i++ {
		tracker.Track(started(fmt.Sprintf("step %d", i)))
	}
	for i := 0; i < 4; i++ {
		require.Error(t, tracker.Flush(ctx))
	}
	require.NoError(t, tracker.Flush(ctx))

	events, err := store.Read(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3", "evt-4", "evt-5"}, ids(events))
	assert.Equal(t, 5, tracker.Stats().Flushed)
}

func TestRequeuedEventsStayAheadOfNewerOnes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFlakyStore(1)
	tracker := newTracker(newMockClock(), store, 10)

	tracker.Track(started("a"))
	tracker.Track(started("b"))
	require.Error(t, tracker.Flush(ctx))
	tracker.Track(started("c"))
	require.NoError(t, tracker.Flush(ctx))

	events, err := store.Read(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, ids(events))
}

func TestFlushGroupsByDateInFirstSeenOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 14, 23, 59, 58, 0, time.UTC))
	store := newFlakyStore(0)
	tracker := newTracker(mock, store, 10)

	tracker.Track(started("late"))
	mock.Add(3 * time.Second)
	tracker.Track(started("after midnight"))

	require.NoError(t, tracker.Flush(ctx))
	assert.Equal(t, []string{"2026-03-14", "2026-03-15"}, store.appends)
	assert.Equal(t, 1, store.count("2026-03-14"))
	assert.Equal(t, 1, store.count("2026-03-15"))
}

func TestIntervalFlush(t *testing.T) {
	t.Parallel()
	mock := newMockClock()
	store := newFlakyStore(0)
	tracker := newTracker(mock, store, 10)
	tracker.Init(context.Background())
	defer func() { _ = tracker.Destroy(context.Background()) }()

	tracker.Track(started("a"))
	tracker.Track(started("b"))
	mock.Add(5 * time.Second)

	require.Eventually(t, func() bool { return store.count("2026-03-14") == 2 }, time.Second, 5*time.Millisecond)
}

func TestThresholdTriggersFlush(t *testing.T) {
	t.Parallel()
	store := newFlakyStore(0)
	tracker := newTracker(newMockClock(), store, 3)
	tracker.Init(context.Background())
	defer func() { _ = tracker.Destroy(context.Background()) }()

	for _, label := range []string{"a", "b", "c"} {
		tracker.Track(started(label))
	}

	require.Eventually(t, func() bool { return store.count("2026-03-14") == 3 }, time.Second, 5*time.Millisecond)
}

func TestDestroyFlushesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newFlakyStore(0)
	tracker := newTracker(newMockClock(), store, 10)
	tracker.Init(context.Background())

	tracker.Track(started("a"))
	require.NoError(t, tracker.Destroy(context.Background()))
	require.NoError(t, tracker.Destroy(context.Background()))

	assert.Equal(t, 1, store.count("2026-03-14"))
	assert.Equal(t, 0, tracker.Stats().Buffered)
}

func TestCancelledContextDrainsBuffer(t *testing.T) {
	t.Parallel()
	store := newFlakyStore(0)
	tracker := newTracker(newMockClock(), store, 10)
	ctx, cancel := context.WithCancel(context.Background())
	tracker.Init(ctx)

	tracker.Track(started("a"))
	cancel()

	require.Eventually(t, func() bool { return store.count("2026-03-14") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tracker.Destroy(context.Background()))
}
