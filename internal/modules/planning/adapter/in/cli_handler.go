package in

import (
	"context"

	"microstep/internal/modules/planning/dto"
	planningin "microstep/internal/modules/planning/port/in"
)

type CLIHandler struct {
	usecase planningin.Usecase
}

func NewCLIHandler(usecase planningin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) BrainDump(ctx context.Context, entries []string, replace bool) (dto.PlanOutput, error) {
	return h.usecase.BrainDump(ctx, dto.BrainDumpInput{Entries: entries, Replace: replace})
}

func (h CLIHandler) Show(ctx context.Context, date string) (dto.PlanOutput, error) {
	return h.usecase.Show(ctx, date)
}

func (h CLIHandler) Leftovers(ctx context.Context) (dto.LeftoversOutput, error) {
	return h.usecase.RecordLeftovers(ctx)
}
