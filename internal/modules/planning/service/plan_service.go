package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"microstep/internal/modules/planning/domain"
	planningout "microstep/internal/modules/planning/port/out"
	tracking "microstep/internal/modules/tracking/domain"
	"microstep/internal/platform/clock"
	apperrors "microstep/internal/platform/errors"
	"microstep/internal/platform/id"
	"microstep/internal/platform/slug"
)

const noteSeparator = "::"

type PlanService struct {
	clock    clock.Clock
	idGen    id.Generator
	store    planningout.PlanStore
	recorder planningout.EventRecorder
	loc      *time.Location
}

func NewPlanService(clock clock.Clock, idGen id.Generator, store planningout.PlanStore, recorder planningout.EventRecorder, loc *time.Location) *PlanService {
	if loc == nil {
		loc = time.Local
	}
	return &PlanService{clock: clock, idGen: idGen, store: store, recorder: recorder, loc: loc}
}

func (s *PlanService) Today() string {
	return tracking.DateOf(s.clock.Now(), s.loc)
}

// Load returns the plan for date, or an empty one when none was saved.
func (s *PlanService) Load(ctx context.Context, date string) (domain.Plan, error) {
	plan, err := s.store.Load(ctx, date)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Plan{SchemaVersion: domain.SchemaVersion, Date: date, Tasks: []domain.Task{}}, nil
	}
	return plan, err
}

// BrainDump adds tasks to today's plan and records the full plan as a
// planning snapshot.
func (s *PlanService) BrainDump(ctx context.Context, entries []string, replace bool) (domain.Plan, string, error) {
	now := s.clock.Now()
	plan, err := s.Load(ctx, s.Today())
	if err != nil {
		return domain.Plan{}, "", err
	}
	if replace {
		plan.Tasks = []domain.Task{}
	}
	added := 0
	for _, entry := range entries {
		title, note := splitEntry(entry)
		if title == "" {
			continue
		}
		plan.Tasks = append(plan.Tasks, domain.Task{
			ID:    s.idGen.New(),
			Slug:  plan.UniqueSlug(slug.Make(title)),
			Title: title,
			Note:  note,
		})
		added++
	}
	if added == 0 && !replace {
		return domain.Plan{}, "", fmt.Errorf("%w: at least one task title is required", apperrors.ErrInvalidInput)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	plan.SchemaVersion = domain.SchemaVersion

	path, err := s.store.Save(ctx, plan)
	if err != nil {
		return domain.Plan{}, "", err
	}
	tasks := plannedTasks(plan.Tasks)
	s.recorder.Track(tracking.BrainDump{Tasks: tasks, TaskCount: len(tasks)})
	return plan, path, nil
}

func (s *PlanService) Task(ctx context.Context, ref string) (domain.Task, error) {
	return s.TaskOn(ctx, s.Today(), ref)
}

// TaskOn resolves ref in the plan of date.
func (s *PlanService) TaskOn(ctx context.Context, date, ref string) (domain.Task, error) {
	plan, err := s.Load(ctx, date)
	if err != nil {
		return domain.Task{}, err
	}
	task, ok := plan.Find(ref)
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: task %q", apperrors.ErrNotFound, ref)
	}
	return task, nil
}

// MarkDone closes the task in the plan of date, which is the day the task
// was picked rather than the day it finished. An empty date means today.
func (s *PlanService) MarkDone(ctx context.Context, date, taskID string) error {
	if date == "" {
		date = s.Today()
	}
	plan, err := s.store.Load(ctx, date)
	if err != nil {
		return err
	}
	_, idx, ok := lo.FindIndexOf(plan.Tasks, func(t domain.Task) bool { return t.ID == taskID })
	if !ok {
		return fmt.Errorf("%w: task %q", apperrors.ErrNotFound, taskID)
	}
	now := s.clock.Now()
	plan.Tasks[idx].Done = true
	plan.Tasks[idx].DoneAt = &now
	plan.UpdatedAt = now
	_, err = s.store.Save(ctx, plan)
	return err
}

// RecordLeftovers tracks the unfinished tasks of today's plan.
func (s *PlanService) RecordLeftovers(ctx context.Context) (domain.Plan, []domain.Task, error) {
	plan, err := s.Load(ctx, s.Today())
	if err != nil {
		return domain.Plan{}, nil, err
	}
	left := plan.Leftovers()
	tasks := plannedTasks(left)
	s.recorder.Track(tracking.DailyLeftovers{LeftoverTasks: tasks, TotalCount: len(tasks)})
	return plan, left, nil
}

func plannedTasks(tasks []domain.Task) []tracking.PlannedTask {
	return lo.Map(tasks, func(t domain.Task, _ int) tracking.PlannedTask {
		return tracking.PlannedTask{ID: t.ID, Title: t.Title, Note: t.Note}
	})
}

func splitEntry(entry string) (string, string) {
	title, note, _ := strings.Cut(entry, noteSeparator)
	return strings.TrimSpace(title), strings.TrimSpace(note)
}
