package usecase_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	reportout "microstep/internal/modules/report/adapter/out"
	"microstep/internal/modules/report/domain"
	"microstep/internal/modules/report/dto"
	"microstep/internal/modules/report/service"
	"microstep/internal/modules/report/usecase"
	trackingout "microstep/internal/modules/tracking/adapter/out"
	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func seed(t *testing.T, dir string) {
	t.Helper()
	store := trackingout.NewFileEventStore(dir)
	at := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	ref := tracking.StepRef{SessionID: "s1", TaskID: "t1", TaskTitle: "Write", MicroAction: "Open doc"}
	events := []tracking.TrackEvent{
		{ID: "a", Type: tracking.TypeSessionStarted, Timestamp: at, Date: "2026-03-09", Payload: tracking.SessionStarted{SessionID: "s1", TaskID: "t1", TaskTitle: "Write"}},
		{ID: "b", Type: tracking.TypeMicroCompleted, Timestamp: at.Add(time.Minute), Date: "2026-03-09", Payload: tracking.MicroCompleted{StepRef: ref, ActualSeconds: 60}},
		{ID: "c", Type: tracking.TypeSessionEnded, Timestamp: at.Add(2 * time.Minute), Date: "2026-03-09", Payload: tracking.SessionEnded{SessionID: "s1", TaskID: "t1", TaskTitle: "Write", TotalDurationSeconds: 120, CompletedMicroSteps: 1, EndReason: tracking.EndReasonExit}},
	}
	if err := store.Append(context.Background(), "2026-03-09", events); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// A redelivered batch tail.
	if err := store.Append(context.Background(), "2026-03-09", events[1:2]); err != nil {
		t.Fatalf("seed dup: %v", err)
	}
}

func newInteractor(dir string) (*reportout.VaultReportStore, *usecase.Interactor) {
	reports := reportout.NewVaultReportStore(dir).(*reportout.VaultReportStore)
	svc := service.NewReportService(
		trackingout.NewFileEventStore(dir),
		reports,
		fixedClock{now: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)},
		time.UTC,
		domain.Options{},
	)
	return reports, usecase.NewInteractor(svc).(*usecase.Interactor)
}

func TestSummaryDefaultsToToday(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	_, interactor := newInteractor(dir)

	out, err := interactor.Summary(context.Background(), dto.ReportInput{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if out.Date != "2026-03-09" || out.CompletedSteps != 1 || out.SessionCount != 1 || out.TotalFocusMinutes != 2 {
		t.Fatalf("unexpected summary: %+v", out)
	}
	if out.EventCount != 3 {
		t.Fatalf("expected duplicate dropped, got %d events", out.EventCount)
	}
}

func TestSummaryRejectsBadDate(t *testing.T) {
	_, interactor := newInteractor(t.TempDir())
	_, err := interactor.Summary(context.Background(), dto.ReportInput{Date: "09/03/2026"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExportWritesFrontmatterNote(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	reports, interactor := newInteractor(dir)

	out, err := interactor.Export(context.Background(), dto.ReportInput{Date: "2026-03-09"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Fatalf("report not written: %v", err)
	}

	meta, body, err := reports.Load("2026-03-09")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Date != "2026-03-09" || meta.Stats.CompletedSteps != 1 || meta.Events != 3 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if !strings.Contains(body, "# Day 2026-03-09") || !strings.Contains(body, "## Stats") {
		t.Fatalf("unexpected body:\n%s", body)
	}

	narrative, err := interactor.Narrative(context.Background(), dto.ReportInput{Date: "2026-03-09"})
	if err != nil {
		t.Fatalf("narrative: %v", err)
	}
	if !strings.HasSuffix(body, narrative.Text) {
		t.Fatalf("exported body should carry the narrative")
	}
}

func TestEmptyDayStillRenders(t *testing.T) {
	_, interactor := newInteractor(t.TempDir())
	out, err := interactor.Narrative(context.Background(), dto.ReportInput{Date: "2026-01-01"})
	if err != nil {
		t.Fatalf("narrative: %v", err)
	}
	if !strings.Contains(out.Text, "No steps.") {
		t.Fatalf("unexpected text:\n%s", out.Text)
	}
}
