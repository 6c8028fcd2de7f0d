package out

import (
	"context"

	"microstep/internal/modules/planning/domain"
	tracking "microstep/internal/modules/tracking/domain"
)

type PlanStore interface {
	// Load returns apperrors.ErrNotFound when no plan exists for date.
	Load(ctx context.Context, date string) (domain.Plan, error)
	Save(ctx context.Context, plan domain.Plan) (string, error)
}

type EventRecorder interface {
	Track(payload tracking.Payload) tracking.TrackEvent
}
