package usecase

import (
	"context"

	"microstep/internal/modules/focus/domain"
	"microstep/internal/modules/focus/dto"
	focusin "microstep/internal/modules/focus/port/in"
	"microstep/internal/modules/focus/service"
	tracking "microstep/internal/modules/tracking/domain"
	"microstep/internal/platform/clock"
)

type Interactor struct {
	svc   *service.SessionController
	clock clock.Clock
}

func NewInteractor(svc *service.SessionController, clock clock.Clock) focusin.Usecase {
	return &Interactor{svc: svc, clock: clock}
}

func (i *Interactor) Current(_ context.Context) dto.SessionOutput {
	return i.output(i.svc.State())
}

func (i *Interactor) Start(ctx context.Context, input dto.StartInput) (dto.SessionOutput, error) {
	return i.wrap(i.svc.StartScaffolding(ctx, input.TaskRef))
}

func (i *Interactor) ConfirmFirstAction(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error) {
	return i.wrap(i.svc.ConfirmFirstAction(ctx, input.Label, tracking.Source(input.Source), actionOptions(input)...))
}

func (i *Interactor) CompleteAction(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.CompleteAction(ctx))
}

func (i *Interactor) RequestUnstuck(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.RequestUnstuck(ctx))
}

func (i *Interactor) AdvanceTo(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error) {
	return i.wrap(i.svc.AdvanceTo(ctx, input.Label, actionOptions(input)...))
}

func (i *Interactor) EnterFlow(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.EnterFlow(ctx))
}

func (i *Interactor) FinishTask(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.FinishTask(ctx))
}

func (i *Interactor) SubmitReason(ctx context.Context, input dto.ReasonInput) (dto.PivotOutput, error) {
	result, err := i.svc.SubmitReason(ctx, input.Reason, tracking.Source(input.Source))
	out := dto.PivotOutput{
		Session: i.output(result.State),
		Empathy: result.Offer.Empathy,
		Pivots:  append([]string{}, result.Offer.Pivots...),
		Stale:   result.Stale,
	}
	if result.Err != nil {
		out.Err = result.Err.Error()
	}
	return out, err
}

func (i *Interactor) ResumeWithoutPivot(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.ResumeWithoutPivot(ctx))
}

func (i *Interactor) ChoosePivot(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error) {
	return i.wrap(i.svc.ChoosePivot(ctx, input.Label, tracking.Source(input.Source), actionOptions(input)...))
}

func (i *Interactor) ContinueOriginal(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.ContinueOriginal(ctx))
}

func (i *Interactor) Exit(ctx context.Context) (dto.SessionOutput, error) {
	return i.wrap(i.svc.Exit(ctx))
}

func (i *Interactor) SuggestFirstActions(ctx context.Context) (dto.SuggestionsOutput, error) {
	return suggestions(i.svc.SuggestFirstActions(ctx)), nil
}

func (i *Interactor) SuggestStuckCauses(ctx context.Context) (dto.SuggestionsOutput, error) {
	return suggestions(i.svc.SuggestStuckCauses(ctx)), nil
}

func (i *Interactor) wrap(state domain.State, err error) (dto.SessionOutput, error) {
	return i.output(state), err
}

func (i *Interactor) output(state domain.State) dto.SessionOutput {
	out := dto.SessionOutput{
		Phase:     string(state.Phase),
		TaskID:    state.Task.ID,
		TaskTitle: state.Task.Title,
		TaskNote:  state.Task.Note,
		Label:     state.DisplayLabel(),
		History:   []string{},
	}
	session := state.Session
	if session == nil {
		return out
	}
	out.SessionID = session.SessionID
	out.SubtaskTitle = session.CurrentSubtaskTitle
	out.StartedAt = session.StartTime
	out.IsFlowMode = session.IsFlowMode
	out.History = append(out.History, session.MicroHistory...)
	out.PendingReason = session.PendingReason
	if session.EstimatedSeconds != nil {
		out.EstimatedSecs = *session.EstimatedSeconds
	}
	if session.Offer != nil {
		out.Empathy = session.Offer.Empathy
		out.Pivots = append([]string{}, session.Offer.Pivots...)
	}
	if i.clock != nil && !session.StartTime.IsZero() {
		if elapsed := i.clock.Now().Sub(session.StartTime); elapsed > 0 {
			out.ElapsedSeconds = int(elapsed.Seconds())
		}
	}
	return out
}

func actionOptions(input dto.ActionInput) []service.ActionOption {
	opts := []service.ActionOption{service.WithEstimate(input.EstimatedSeconds)}
	if input.SubtaskID != "" || input.SubtaskTitle != "" {
		opts = append(opts, service.WithSubtask(input.SubtaskID, input.SubtaskTitle))
	}
	return opts
}

func suggestions(s service.Suggestions) dto.SuggestionsOutput {
	out := dto.SuggestionsOutput{Items: append([]string{}, s.Items...), Stale: s.Stale}
	if s.Err != nil {
		out.Err = s.Err.Error()
	}
	return out
}
