package service

import (
	"context"
	"fmt"
	"time"

	"microstep/internal/modules/report/domain"
	reportout "microstep/internal/modules/report/port/out"
	tracking "microstep/internal/modules/tracking/domain"
	"microstep/internal/platform/clock"
	apperrors "microstep/internal/platform/errors"
)

type ReportService struct {
	events reportout.EventSource
	store  reportout.ReportStore
	clock  clock.Clock
	loc    *time.Location
	opts   domain.Options
}

func NewReportService(events reportout.EventSource, store reportout.ReportStore, clock clock.Clock, loc *time.Location, opts domain.Options) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{events: events, store: store, clock: clock, loc: loc, opts: opts}
}

func (s *ReportService) resolveDate(date string) (string, error) {
	if date == "" {
		return tracking.DateOf(s.clock.Now(), s.loc), nil
	}
	if !tracking.ValidDate(date) {
		return "", fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	return date, nil
}

func (s *ReportService) Summary(ctx context.Context, date string) (domain.DailySummary, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return domain.DailySummary{}, err
	}
	events, err := s.events.Read(ctx, date)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("read events: %w", err)
	}
	return domain.BuildWith(date, events, s.opts), nil
}

func (s *ReportService) Narrative(ctx context.Context, date string) (domain.DailySummary, string, error) {
	summary, err := s.Summary(ctx, date)
	if err != nil {
		return domain.DailySummary{}, "", err
	}
	return summary, domain.RenderNarrative(summary), nil
}

// Export writes the day's narrative note and returns its path.
func (s *ReportService) Export(ctx context.Context, date string) (domain.DailySummary, string, error) {
	if s.store == nil {
		return domain.DailySummary{}, "", fmt.Errorf("report store is not configured")
	}
	summary, text, err := s.Narrative(ctx, date)
	if err != nil {
		return domain.DailySummary{}, "", err
	}
	path, err := s.store.Save(ctx, summary, text)
	if err != nil {
		return domain.DailySummary{}, "", err
	}
	return summary, path, nil
}
