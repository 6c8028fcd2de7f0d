package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	focusinadapter "microstep/internal/modules/focus/adapter/in"
	trackingdomain "microstep/internal/modules/tracking/domain"
	"microstep/internal/platform/config"
)

func newTestApp(t *testing.T, store string) *App {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Store = store
	app, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func TestDayRoundTripThroughJSONL(t *testing.T) {
	app := newTestApp(t, config.StoreJSONL)
	ctx := context.Background()
	app.Start(ctx)

	plan, err := app.PlanningCLI.BrainDump(ctx, []string{"Write report", "Call bank"}, false)
	if err != nil {
		t.Fatalf("brain dump: %v", err)
	}
	if _, err := app.FocusCLI.Start(ctx, plan.Tasks[0].Slug); err != nil {
		t.Fatalf("start: %v", err)
	}
	script := "first Open the doc ~60\ndone\nfinish\n"
	out := &strings.Builder{}
	if err := app.FocusCLI.RunScript(ctx, focusinadapter.ScriptIO{In: strings.NewReader(script), Out: out}); err != nil {
		t.Fatalf("script: %v", err)
	}
	if _, err := app.PlanningCLI.Leftovers(ctx); err != nil {
		t.Fatalf("leftovers: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	summary, err := app.ReportCLI.Summary(ctx, "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.CompletedSteps != 1 || summary.MacroCompleted != 1 || summary.LeftoverCount != 1 || summary.SessionCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	show, err := app.PlanningCLI.Show(ctx, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !show.Tasks[0].Done || show.Tasks[1].Done {
		t.Fatalf("expected first task done: %+v", show.Tasks)
	}

	if _, err := os.Stat(filepath.Join(app.Config.DataDir, "events", app.Today()+".jsonl")); err != nil {
		t.Fatalf("event log missing: %v", err)
	}
	export, err := app.ReportCLI.Export(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(export.Path) != app.Today()+".md" {
		t.Fatalf("unexpected report path %s", export.Path)
	}
}

func TestReindexCopiesLogIntoSQLite(t *testing.T) {
	app := newTestApp(t, config.StoreJSONL)
	ctx := context.Background()

	if _, err := app.PlanningCLI.BrainDump(ctx, []string{"One"}, false); err != nil {
		t.Fatalf("brain dump: %v", err)
	}
	if err := app.TrackingCLI.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	first, err := app.TrackingCLI.Reindex(ctx, nil)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if first.Events != 1 || first.Dates != 1 {
		t.Fatalf("unexpected reindex: %+v", first)
	}
	if _, err := app.TrackingCLI.Reindex(ctx, nil); err != nil {
		t.Fatalf("second reindex: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMemoryStoreKeepsEventsInProcess(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	ctx := context.Background()

	if _, err := app.PlanningCLI.BrainDump(ctx, []string{"One"}, false); err != nil {
		t.Fatalf("brain dump: %v", err)
	}
	if err := app.TrackingCLI.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	events, err := app.TrackingCLI.Events(ctx, app.Today(), "plan")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "plan.brain_dump" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if _, err := app.TrackingCLI.Reindex(ctx, nil); err == nil {
		t.Fatalf("reindex needs the sqlite projection")
	}
	if stats := app.TrackingCLI.Stats(ctx); stats.Flushed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestUnusableDataDirFallsBackToMemory(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "vault")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg, err := config.New(blocker)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	app, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx := context.Background()
	app.Tracker.Track(trackingdomain.DailyLeftovers{LeftoverTasks: []trackingdomain.PlannedTask{}})
	if err := app.Close(ctx); err != nil {
		t.Fatalf("memory store should absorb the flush: %v", err)
	}
}
