package out

import (
	"context"

	"microstep/internal/modules/focus/domain"
	tracking "microstep/internal/modules/tracking/domain"
)

// Advisor produces suggestions. Any error or empty result means "no
// suggestions" to the caller.
type Advisor interface {
	SuggestFirstActions(ctx context.Context, req domain.AdvisorContext) ([]string, error)
	SuggestStuckCauses(ctx context.Context, req domain.AdvisorContext) ([]string, error)
	SuggestPivot(ctx context.Context, req domain.AdvisorContext, reason string) (domain.PivotOffer, error)
}

type EventRecorder interface {
	Track(payload tracking.Payload) tracking.TrackEvent
}

// TaskCatalog is the day's plan as seen by the controller.
type TaskCatalog interface {
	Task(ctx context.Context, ref string) (domain.Task, error)
	Snapshot(ctx context.Context) ([]tracking.PlannedTask, error)
	MarkDone(ctx context.Context, task domain.Task) error
}
