package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	focusinadapter "microstep/internal/modules/focus/adapter/in"
	focusoutadapter "microstep/internal/modules/focus/adapter/out"
	focusdto "microstep/internal/modules/focus/dto"
	focusout "microstep/internal/modules/focus/port/out"
	focusservice "microstep/internal/modules/focus/service"
	focususecase "microstep/internal/modules/focus/usecase"
	planninginadapter "microstep/internal/modules/planning/adapter/in"
	planningoutadapter "microstep/internal/modules/planning/adapter/out"
	planningservice "microstep/internal/modules/planning/service"
	planningusecase "microstep/internal/modules/planning/usecase"
	reportinadapter "microstep/internal/modules/report/adapter/in"
	reportoutadapter "microstep/internal/modules/report/adapter/out"
	reportdomain "microstep/internal/modules/report/domain"
	reportservice "microstep/internal/modules/report/service"
	reportusecase "microstep/internal/modules/report/usecase"
	trackinginadapter "microstep/internal/modules/tracking/adapter/in"
	trackingoutadapter "microstep/internal/modules/tracking/adapter/out"
	trackingdomain "microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
	trackingservice "microstep/internal/modules/tracking/service"
	trackingusecase "microstep/internal/modules/tracking/usecase"
	"microstep/internal/platform/clock"
	"microstep/internal/platform/config"
	"microstep/internal/platform/id"
	uifocus "microstep/internal/ui/focus"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Tracker *trackingservice.EventTracker

	PlanningCLI planninginadapter.CLIHandler
	FocusCLI    focusinadapter.CLIHandler
	ReportCLI   reportinadapter.CLIHandler
	TrackingCLI trackinginadapter.CLIHandler

	clock   clock.Clock
	loc     *time.Location
	closers []func() error
}

func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := clock.System()
	ids := id.UUID{}
	loc := cfg.Location()
	app := &App{Config: cfg, Logger: logger, clock: clk, loc: loc}

	store, projection := app.openStores(cfg)
	app.Tracker = trackingservice.NewEventTracker(clk, ids, store, logger.Named("tracker"), trackingservice.Options{
		Location:       loc,
		FlushInterval:  cfg.Tracker.FlushInterval,
		FlushThreshold: cfg.Tracker.FlushThreshold,
	})
	trackingUC := trackingusecase.NewInteractor(app.Tracker, store, projection)

	planningUC := planningusecase.NewInteractor(planningservice.NewPlanService(
		clk, ids,
		planningoutadapter.NewYAMLPlanStore(cfg.DataDir),
		app.Tracker,
		loc,
	))

	advisor := app.openAdvisor(cfg)
	controller := focusservice.NewSessionController(
		clk, ids,
		app.Tracker,
		advisor,
		focusoutadapter.NewPlanningCatalog(planningUC),
		logger.Named("focus"),
		cfg.Advisor.Timeout,
	)
	focusUC := focususecase.NewInteractor(controller, clk)

	reportUC := reportusecase.NewInteractor(reportservice.NewReportService(
		store,
		reportoutadapter.NewVaultReportStore(cfg.DataDir),
		clk,
		loc,
		reportdomain.Options{KeepDuplicates: !cfg.Report.Dedupe},
	))

	app.PlanningCLI = planninginadapter.NewCLIHandler(planningUC)
	app.FocusCLI = focusinadapter.NewCLIHandler(focusUC)
	app.ReportCLI = reportinadapter.NewCLIHandler(reportUC)
	app.TrackingCLI = trackinginadapter.NewCLIHandler(trackingUC)
	return app, nil
}

// openStores picks the event store from config. A store that cannot be
// opened degrades to memory so the session still runs.
func (a *App) openStores(cfg config.Config) (trackingout.EventStore, trackingout.EventStore) {
	switch cfg.Store {
	case config.StoreMemory:
		a.Logger.Info("event store selected", zap.String("store", config.StoreMemory))
		return trackingoutadapter.NewMemoryEventStore(), nil
	case config.StoreSQLite:
		db, err := trackingoutadapter.NewSQLiteEventStore(cfg.DBPath)
		if err != nil {
			a.Logger.Error("sqlite event store unavailable, events kept in memory only", zap.String("path", cfg.DBPath), zap.Error(err))
			return trackingoutadapter.NewMemoryEventStore(), nil
		}
		a.closers = append(a.closers, db.Close)
		a.Logger.Info("event store selected", zap.String("store", config.StoreSQLite), zap.String("path", cfg.DBPath))
		return db, nil
	}

	eventsDir := filepath.Join(cfg.DataDir, "events")
	if err := os.MkdirAll(eventsDir, 0o755); err != nil {
		a.Logger.Error("event log dir unavailable, events kept in memory only", zap.String("path", eventsDir), zap.Error(err))
		return trackingoutadapter.NewMemoryEventStore(), nil
	}
	a.Logger.Info("event store selected", zap.String("store", config.StoreJSONL), zap.String("path", eventsDir))

	projection, err := trackingoutadapter.NewSQLiteEventStore(cfg.DBPath)
	if err != nil {
		a.Logger.Warn("sqlite projection unavailable", zap.String("path", cfg.DBPath), zap.Error(err))
		return trackingoutadapter.NewFileEventStore(cfg.DataDir), nil
	}
	a.closers = append(a.closers, projection.Close)
	return trackingoutadapter.NewFileEventStore(cfg.DataDir), projection
}

func (a *App) openAdvisor(cfg config.Config) focusout.Advisor {
	if cfg.Advisor.Binary == "" {
		a.Logger.Info("advisor disabled")
		return focusoutadapter.NewNoopAdvisor()
	}
	advisor := focusoutadapter.NewPluginAdvisor(cfg.Advisor.Binary, a.Logger.Named("advisor"))
	a.closers = append(a.closers, func() error {
		advisor.Close()
		return nil
	})
	a.Logger.Info("advisor plugin configured", zap.String("binary", cfg.Advisor.Binary))
	return advisor
}

// Today is the current day in the configured timezone.
func (a *App) Today() string {
	return trackingdomain.DateOf(a.clock.Now(), a.loc)
}

// Start begins background flushing. Cancelling ctx drains the buffer.
func (a *App) Start(ctx context.Context) {
	a.Tracker.Init(ctx)
}

// Close flushes pending events and releases stores and the advisor.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Tracker.Destroy(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
		a.Logger.Error("events lost on shutdown", zap.Int("events", len(a.Tracker.Pending())), zap.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// RunFocusTUI runs the focus screen for the session already started on the
// handler.
func RunFocusTUI(ctx context.Context, app *App) (focusdto.SessionOutput, error) {
	return uifocus.Run(ctx, app.FocusCLI.Usecase())
}
