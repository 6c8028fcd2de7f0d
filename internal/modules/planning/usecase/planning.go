package usecase

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"microstep/internal/modules/planning/domain"
	"microstep/internal/modules/planning/dto"
	planningin "microstep/internal/modules/planning/port/in"
	"microstep/internal/modules/planning/service"
	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

type Interactor struct {
	svc *service.PlanService
}

func NewInteractor(svc *service.PlanService) planningin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) BrainDump(ctx context.Context, input dto.BrainDumpInput) (dto.PlanOutput, error) {
	plan, path, err := i.svc.BrainDump(ctx, input.Entries, input.Replace)
	if err != nil {
		return dto.PlanOutput{}, err
	}
	return dto.PlanOutput{Date: plan.Date, Path: path, Tasks: taskOutputs(plan.Date, plan.Tasks)}, nil
}

func (i *Interactor) Show(ctx context.Context, date string) (dto.PlanOutput, error) {
	if date == "" {
		date = i.svc.Today()
	}
	if !tracking.ValidDate(date) {
		return dto.PlanOutput{}, fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	plan, err := i.svc.Load(ctx, date)
	if err != nil {
		return dto.PlanOutput{}, err
	}
	return dto.PlanOutput{Date: date, Tasks: taskOutputs(date, plan.Tasks)}, nil
}

func (i *Interactor) Task(ctx context.Context, ref string) (dto.TaskOutput, error) {
	date := i.svc.Today()
	task, err := i.svc.TaskOn(ctx, date, ref)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	return taskOutput(date, task), nil
}

func (i *Interactor) Snapshot(ctx context.Context) ([]dto.TaskOutput, error) {
	date := i.svc.Today()
	plan, err := i.svc.Load(ctx, date)
	if err != nil {
		return nil, err
	}
	return taskOutputs(date, plan.Tasks), nil
}

func (i *Interactor) MarkDone(ctx context.Context, date, taskID string) error {
	if date != "" && !tracking.ValidDate(date) {
		return fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	return i.svc.MarkDone(ctx, date, taskID)
}

func (i *Interactor) RecordLeftovers(ctx context.Context) (dto.LeftoversOutput, error) {
	plan, left, err := i.svc.RecordLeftovers(ctx)
	if err != nil {
		return dto.LeftoversOutput{}, err
	}
	return dto.LeftoversOutput{Date: plan.Date, Tasks: taskOutputs(plan.Date, left)}, nil
}

func taskOutputs(date string, tasks []domain.Task) []dto.TaskOutput {
	return lo.Map(tasks, func(t domain.Task, _ int) dto.TaskOutput { return taskOutput(date, t) })
}

func taskOutput(date string, t domain.Task) dto.TaskOutput {
	return dto.TaskOutput{ID: t.ID, Slug: t.Slug, Title: t.Title, Note: t.Note, Done: t.Done, Date: date}
}
