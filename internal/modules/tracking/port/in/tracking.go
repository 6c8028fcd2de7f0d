package in

import (
	"context"

	"microstep/internal/modules/tracking/domain"
	"microstep/internal/modules/tracking/dto"
)

// Recorder is what emitting modules depend on.
type Recorder interface {
	Track(payload domain.Payload) domain.TrackEvent
}

type Usecase interface {
	Events(ctx context.Context, input dto.EventsInput) ([]dto.EventOutput, error)
	Stats(ctx context.Context) dto.StatsOutput
	Flush(ctx context.Context) error
	Reindex(ctx context.Context, input dto.ReindexInput) (dto.ReindexOutput, error)
}
