package out

import (
	"context"

	"microstep/internal/modules/report/domain"
	tracking "microstep/internal/modules/tracking/domain"
)

// EventSource is the read side of the event log.
type EventSource interface {
	Read(ctx context.Context, date string) ([]tracking.TrackEvent, error)
}

type ReportStore interface {
	Save(ctx context.Context, summary domain.DailySummary, narrative string) (string, error)
}
