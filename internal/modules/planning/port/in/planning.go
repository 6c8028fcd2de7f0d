package in

import (
	"context"

	"microstep/internal/modules/planning/dto"
)

type Usecase interface {
	BrainDump(ctx context.Context, input dto.BrainDumpInput) (dto.PlanOutput, error)
	Show(ctx context.Context, date string) (dto.PlanOutput, error)
	Task(ctx context.Context, ref string) (dto.TaskOutput, error)
	Snapshot(ctx context.Context) ([]dto.TaskOutput, error)
	MarkDone(ctx context.Context, date, taskID string) error
	RecordLeftovers(ctx context.Context) (dto.LeftoversOutput, error)
}
