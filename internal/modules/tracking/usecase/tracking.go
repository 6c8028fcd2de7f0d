package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"microstep/internal/modules/tracking/domain"
	"microstep/internal/modules/tracking/dto"
	trackingin "microstep/internal/modules/tracking/port/in"
	trackingout "microstep/internal/modules/tracking/port/out"
	"microstep/internal/modules/tracking/service"
	apperrors "microstep/internal/platform/errors"
)

type Interactor struct {
	tracker    *service.EventTracker
	store      trackingout.EventStore
	projection trackingout.EventStore
}

// NewInteractor wires the tracker to the store it flushes into. projection
// is the optional SQLite copy targeted by Reindex.
func NewInteractor(tracker *service.EventTracker, store, projection trackingout.EventStore) trackingin.Usecase {
	return &Interactor{tracker: tracker, store: store, projection: projection}
}

func (i *Interactor) Events(ctx context.Context, input dto.EventsInput) ([]dto.EventOutput, error) {
	if !domain.ValidDate(input.Date) {
		return nil, fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, input.Date)
	}
	events, err := i.store.Read(ctx, input.Date)
	if err != nil {
		return nil, err
	}
	if input.Type != "" {
		events = lo.Filter(events, func(e domain.TrackEvent, _ int) bool {
			return strings.HasPrefix(string(e.Type), input.Type)
		})
	}
	return lo.Map(events, func(e domain.TrackEvent, _ int) dto.EventOutput {
		return dto.EventOutput{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp,
			Date:      e.Date,
			SessionID: domain.SessionOf(e.Payload),
			Summary:   describe(e.Payload),
		}
	}), nil
}

func (i *Interactor) Stats(_ context.Context) dto.StatsOutput {
	stats := i.tracker.Stats()
	return dto.StatsOutput{
		Buffered:      stats.Buffered,
		Tracked:       stats.Tracked,
		Flushed:       stats.Flushed,
		FailedAppends: stats.FailedAppends,
		LastError:     stats.LastError,
		LastFlushAt:   stats.LastFlushAt,
	}
}

func (i *Interactor) Flush(ctx context.Context) error {
	return i.tracker.Flush(ctx)
}

// Reindex copies days from the primary log into the projection. The
// projection ignores ids it already holds, so running it twice is harmless.
func (i *Interactor) Reindex(ctx context.Context, input dto.ReindexInput) (dto.ReindexOutput, error) {
	if i.projection == nil {
		return dto.ReindexOutput{}, fmt.Errorf("sqlite projection is not configured")
	}
	dates := input.Dates
	if len(dates) == 0 {
		all, err := i.store.Dates(ctx)
		if err != nil {
			return dto.ReindexOutput{}, err
		}
		dates = all
	}
	out := dto.ReindexOutput{}
	for _, date := range dates {
		events, err := i.store.Read(ctx, date)
		if err != nil {
			return out, fmt.Errorf("read %s: %w", date, err)
		}
		if len(events) == 0 {
			continue
		}
		if err := i.projection.Append(ctx, date, events); err != nil {
			return out, fmt.Errorf("project %s: %w", date, err)
		}
		out.Dates++
		out.Events += len(events)
	}
	return out, nil
}

func describe(p domain.Payload) string {
	switch v := p.(type) {
	case domain.BrainDump:
		return fmt.Sprintf("%d tasks", v.TaskCount)
	case domain.FocusSelected:
		return v.TaskTitle
	case domain.FirstMicro:
		return fmt.Sprintf("%s (%s)", v.MicroAction, v.Source)
	case domain.MicroStarted:
		return v.MicroAction
	case domain.MicroCompleted:
		return fmt.Sprintf("%s in %ds", v.MicroAction, v.ActualSeconds)
	case domain.FlowEntered:
		return fmt.Sprintf("after %d steps", v.CompletedStepCount)
	case domain.FlowEnded:
		return fmt.Sprintf("%ds, %s", v.FlowDurationSeconds, v.EndReason)
	case domain.StuckTriggered:
		return fmt.Sprintf("%s after %ds", v.MicroAction, v.ElapsedSeconds)
	case domain.StuckReason:
		return v.Reason
	case domain.PivotOffered:
		return strings.Join(v.PivotSuggestions, " | ")
	case domain.PivotChosen:
		return fmt.Sprintf("%s (%s)", v.ChosenPivot, v.PivotSource)
	case domain.AbandonExit:
		return fmt.Sprintf("%s during %s", v.MicroAction, v.Phase)
	case domain.SessionStarted:
		return v.TaskTitle
	case domain.SessionEnded:
		return fmt.Sprintf("%s after %ds, %d steps", v.EndReason, v.TotalDurationSeconds, v.CompletedMicroSteps)
	case domain.MacroCompleted:
		return fmt.Sprintf("%s via %s", v.TaskTitle, v.CompletedVia)
	case domain.DailyLeftovers:
		return fmt.Sprintf("%d left", v.TotalCount)
	default:
		return ""
	}
}
