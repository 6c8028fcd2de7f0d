package usecase

import (
	"context"

	"github.com/samber/lo"

	"microstep/internal/modules/report/domain"
	"microstep/internal/modules/report/dto"
	reportin "microstep/internal/modules/report/port/in"
	"microstep/internal/modules/report/service"
)

type Interactor struct {
	svc *service.ReportService
}

func NewInteractor(svc *service.ReportService) reportin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Summary(ctx context.Context, input dto.ReportInput) (dto.SummaryOutput, error) {
	summary, err := i.svc.Summary(ctx, input.Date)
	if err != nil {
		return dto.SummaryOutput{}, err
	}
	return summaryOutput(summary), nil
}

func (i *Interactor) Narrative(ctx context.Context, input dto.ReportInput) (dto.NarrativeOutput, error) {
	summary, text, err := i.svc.Narrative(ctx, input.Date)
	if err != nil {
		return dto.NarrativeOutput{}, err
	}
	return dto.NarrativeOutput{Date: summary.Date, Text: text}, nil
}

func (i *Interactor) Export(ctx context.Context, input dto.ReportInput) (dto.ExportOutput, error) {
	summary, path, err := i.svc.Export(ctx, input.Date)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{Date: summary.Date, Path: path}, nil
}

func summaryOutput(s domain.DailySummary) dto.SummaryOutput {
	out := dto.SummaryOutput{
		Date:                    s.Date,
		EventCount:              s.EventCount,
		TotalSteps:              s.Stats.TotalSteps,
		CompletedSteps:          s.Stats.CompletedSteps,
		StuckCount:              s.Stats.StuckCount,
		AbandonCount:            s.Stats.AbandonCount,
		SessionCount:            s.Stats.SessionCount,
		MacroCompleted:          len(s.Macro),
		TotalFlowMinutes:        s.Stats.TotalFlowMinutes,
		TotalFocusMinutes:       s.Stats.TotalFocusMinutes,
		AvgEstimateDeltaSeconds: s.Stats.AvgEstimateDeltaSeconds,
		RescuedCount: lo.CountBy(s.Stucks, func(r domain.StuckRecord) bool {
			return r.Rescued != nil && *r.Rescued
		}),
	}
	if s.Leftovers != nil {
		out.LeftoverCount = s.Leftovers.TotalCount
	}
	return out
}
