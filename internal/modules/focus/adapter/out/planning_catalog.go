package out

import (
	"context"

	"github.com/samber/lo"

	"microstep/internal/modules/focus/domain"
	focusout "microstep/internal/modules/focus/port/out"
	planningdto "microstep/internal/modules/planning/dto"
	planningin "microstep/internal/modules/planning/port/in"
	tracking "microstep/internal/modules/tracking/domain"
)

// PlanningCatalog resolves focus tasks from today's plan.
type PlanningCatalog struct {
	plans planningin.Usecase
}

func NewPlanningCatalog(plans planningin.Usecase) focusout.TaskCatalog {
	return &PlanningCatalog{plans: plans}
}

func (c *PlanningCatalog) Task(ctx context.Context, ref string) (domain.Task, error) {
	task, err := c.plans.Task(ctx, ref)
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{ID: task.ID, Title: task.Title, Note: task.Note, PlanDate: task.Date}, nil
}

func (c *PlanningCatalog) Snapshot(ctx context.Context) ([]tracking.PlannedTask, error) {
	tasks, err := c.plans.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(tasks, func(t planningdto.TaskOutput, _ int) tracking.PlannedTask {
		return tracking.PlannedTask{ID: t.ID, Title: t.Title, Note: t.Note}
	}), nil
}

func (c *PlanningCatalog) MarkDone(ctx context.Context, task domain.Task) error {
	return c.plans.MarkDone(ctx, task.PlanDate, task.ID)
}
