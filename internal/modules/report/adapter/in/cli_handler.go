package in

import (
	"context"

	"microstep/internal/modules/report/dto"
	reportin "microstep/internal/modules/report/port/in"
)

type CLIHandler struct {
	usecase reportin.Usecase
}

func NewCLIHandler(usecase reportin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Summary(ctx context.Context, date string) (dto.SummaryOutput, error) {
	return h.usecase.Summary(ctx, dto.ReportInput{Date: date})
}

func (h CLIHandler) Narrative(ctx context.Context, date string) (dto.NarrativeOutput, error) {
	return h.usecase.Narrative(ctx, dto.ReportInput{Date: date})
}

func (h CLIHandler) Export(ctx context.Context, date string) (dto.ExportOutput, error) {
	return h.usecase.Export(ctx, dto.ReportInput{Date: date})
}
