package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planningout "microstep/internal/modules/planning/adapter/out"
	"microstep/internal/modules/planning/service"
	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqID struct {
	mu sync.Mutex
	n  int
}

func (g *seqID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "task-" + string(rune('0'+g.n))
}

type recorder struct {
	payloads []tracking.Payload
}

func (r *recorder) Track(p tracking.Payload) tracking.TrackEvent {
	r.payloads = append(r.payloads, p)
	return tracking.TrackEvent{Type: p.Type(), Payload: p}
}

func newService(t *testing.T) (*service.PlanService, *recorder, *fixedClock, string) {
	t.Helper()
	dir := t.TempDir()
	clk := &fixedClock{now: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	svc := service.NewPlanService(clk, &seqID{}, planningout.NewYAMLPlanStore(dir), rec, time.UTC)
	return svc, rec, clk, dir
}

func TestBrainDumpWritesPlanAndTracksSnapshot(t *testing.T) {
	svc, rec, _, dir := newService(t)
	ctx := context.Background()

	plan, path, err := svc.BrainDump(ctx, []string{"Write report :: section two", "  ", "Write report"}, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plans", "2026-03-09.yaml"), path)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "write-report", plan.Tasks[0].Slug)
	assert.Equal(t, "section two", plan.Tasks[0].Note)
	assert.Equal(t, "write-report-2", plan.Tasks[1].Slug)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Len(t, rec.payloads, 1)
	dump, ok := rec.payloads[0].(tracking.BrainDump)
	require.True(t, ok)
	assert.Equal(t, 2, dump.TaskCount)
	assert.Equal(t, "task-1", dump.Tasks[0].ID)
}

func TestBrainDumpAppendsToExistingPlan(t *testing.T) {
	svc, rec, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.BrainDump(ctx, []string{"First"}, false)
	require.NoError(t, err)
	plan, _, err := svc.BrainDump(ctx, []string{"Second"}, false)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 2)

	last := rec.payloads[len(rec.payloads)-1].(tracking.BrainDump)
	assert.Equal(t, 2, last.TaskCount, "each dump records the whole plan")
}

func TestBrainDumpRejectsEmptyInput(t *testing.T) {
	svc, rec, _, _ := newService(t)
	_, _, err := svc.BrainDump(context.Background(), []string{" ", ""}, false)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, rec.payloads)
}

func TestMarkDoneAndLeftovers(t *testing.T) {
	svc, rec, _, _ := newService(t)
	ctx := context.Background()

	plan, _, err := svc.BrainDump(ctx, []string{"One", "Two", "Three"}, false)
	require.NoError(t, err)
	require.NoError(t, svc.MarkDone(ctx, "", plan.Tasks[1].ID))

	task, err := svc.Task(ctx, "two")
	require.NoError(t, err)
	assert.True(t, task.Done)
	require.NotNil(t, task.DoneAt)

	_, left, err := svc.RecordLeftovers(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)

	payload := rec.payloads[len(rec.payloads)-1].(tracking.DailyLeftovers)
	assert.Equal(t, 2, payload.TotalCount)
	assert.Equal(t, "One", payload.LeftoverTasks[0].Title)
	assert.Equal(t, "Three", payload.LeftoverTasks[1].Title)
}

func TestMarkDoneAfterMidnightUsesPlanDay(t *testing.T) {
	svc, _, clk, _ := newService(t)
	ctx := context.Background()
	clk.now = time.Date(2026, 3, 9, 23, 50, 0, 0, time.UTC)

	plan, _, err := svc.BrainDump(ctx, []string{"Late one"}, false)
	require.NoError(t, err)
	taskID := plan.Tasks[0].ID

	clk.now = time.Date(2026, 3, 10, 0, 10, 0, 0, time.UTC)
	assert.ErrorIs(t, svc.MarkDone(ctx, "", taskID), apperrors.ErrNotFound)
	require.NoError(t, svc.MarkDone(ctx, "2026-03-09", taskID))

	task, err := svc.TaskOn(ctx, "2026-03-09", taskID)
	require.NoError(t, err)
	assert.True(t, task.Done)
	require.NotNil(t, task.DoneAt)
	assert.True(t, clk.now.Equal(*task.DoneAt))
}

func TestTaskUnknownRef(t *testing.T) {
	svc, _, _, _ := newService(t)
	_, err := svc.Task(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPlansAreKeyedByLocalDay(t *testing.T) {
	svc, _, clk, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.BrainDump(ctx, []string{"Yesterday"}, false)
	require.NoError(t, err)
	clk.now = clk.now.Add(24 * time.Hour)

	plan, err := svc.Load(ctx, svc.Today())
	require.NoError(t, err)
	assert.Empty(t, plan.Tasks)
	assert.Equal(t, "2026-03-10", plan.Date)
}
