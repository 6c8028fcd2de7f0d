package out

import (
	"context"

	"microstep/internal/modules/tracking/domain"
)

// EventStore is the date-partitioned append-only log. Append must apply all
// events of a call or none of them. Read returns an empty slice for a date
// that was never written.
type EventStore interface {
	Append(ctx context.Context, date string, events []domain.TrackEvent) error
	Read(ctx context.Context, date string) ([]domain.TrackEvent, error)
	Dates(ctx context.Context) ([]string, error)
}
