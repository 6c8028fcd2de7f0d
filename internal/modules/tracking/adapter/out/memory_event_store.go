package out

import (
	"context"
	"sort"
	"sync"

	"microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
)

// MemoryEventStore is the fallback when nothing on disk is usable. Events
// live only as long as the process.
type MemoryEventStore struct {
	mu   sync.RWMutex
	days map[string][]domain.TrackEvent
}

func NewMemoryEventStore() trackingout.EventStore {
	return &MemoryEventStore{days: map[string][]domain.TrackEvent{}}
}

func (s *MemoryEventStore) Append(_ context.Context, date string, events []domain.TrackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[date] = append(s.days[date], events...)
	return nil
}

func (s *MemoryEventStore) Read(_ context.Context, date string) ([]domain.TrackEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TrackEvent{}, s.days[date]...), nil
}

func (s *MemoryEventStore) Dates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]string, 0, len(s.days))
	for date := range s.days {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}
