package in

import (
	"context"

	"microstep/internal/modules/tracking/dto"
	trackingin "microstep/internal/modules/tracking/port/in"
)

type CLIHandler struct {
	usecase trackingin.Usecase
}

func NewCLIHandler(usecase trackingin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Events(ctx context.Context, date, eventType string) ([]dto.EventOutput, error) {
	return h.usecase.Events(ctx, dto.EventsInput{Date: date, Type: eventType})
}

func (h CLIHandler) Stats(ctx context.Context) dto.StatsOutput {
	return h.usecase.Stats(ctx)
}

func (h CLIHandler) Flush(ctx context.Context) error {
	return h.usecase.Flush(ctx)
}

func (h CLIHandler) Reindex(ctx context.Context, dates []string) (dto.ReindexOutput, error) {
	return h.usecase.Reindex(ctx, dto.ReindexInput{Dates: dates})
}
