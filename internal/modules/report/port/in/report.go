package in

import (
	"context"

	"microstep/internal/modules/report/dto"
)

type Usecase interface {
	Summary(ctx context.Context, input dto.ReportInput) (dto.SummaryOutput, error)
	Narrative(ctx context.Context, input dto.ReportInput) (dto.NarrativeOutput, error)
	Export(ctx context.Context, input dto.ReportInput) (dto.ExportOutput, error)
}
