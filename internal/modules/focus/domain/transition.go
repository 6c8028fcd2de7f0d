package domain

import (
	"fmt"
	"strings"
	"time"

	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

// Command is one user or advisor driven input to the state machine.
type Command interface {
	Name() string
}

type StartScaffolding struct {
	Task Task
	// Plan is the day's task list, recorded as the planning snapshot.
	Plan []tracking.PlannedTask
}

type ConfirmFirstAction struct {
	Label  string
	Source tracking.Source
	Action ActionOptions
}

type CompleteAction struct{}

type RequestUnstuck struct{}

type AdvanceTo struct {
	Label  string
	Action ActionOptions
}

type EnterFlow struct{}

type FinishTask struct{}

type SubmitReason struct {
	Reason string
	Source tracking.Source
}

type ResumeWithoutPivot struct{}

// OfferPivot applies an advisor reply. It is rejected as stale unless the
// session, the phase and the token all still match the request.
type OfferPivot struct {
	SessionID string
	Token     int
	Offer     PivotOffer
}

type ChoosePivot struct {
	Label  string
	Source tracking.Source
	Action ActionOptions
}

type Exit struct{}

type ActionOptions struct {
	EstimatedSeconds *int
	SubtaskID        string
	SubtaskTitle     string
}

func (StartScaffolding) Name() string   { return "start_scaffolding" }
func (ConfirmFirstAction) Name() string { return "confirm_first_action" }
func (CompleteAction) Name() string     { return "complete_action" }
func (RequestUnstuck) Name() string     { return "request_unstuck" }
func (AdvanceTo) Name() string          { return "advance_to" }
func (EnterFlow) Name() string          { return "enter_flow" }
func (FinishTask) Name() string         { return "finish_task" }
func (SubmitReason) Name() string       { return "submit_reason" }
func (ResumeWithoutPivot) Name() string { return "resume_without_pivot" }
func (OfferPivot) Name() string         { return "offer_pivot" }
func (ChoosePivot) Name() string        { return "choose_pivot" }
func (Exit) Name() string               { return "exit" }

// Env carries the impure inputs of a transition.
type Env struct {
	Now          time.Time
	NewSessionID func() string
}

// Transition applies cmd to state. On error the returned state is the input
// state and no events are produced.
func Transition(state State, cmd Command, env Env) (State, []tracking.Payload, error) {
	next := state.Clone()
	var (
		events []tracking.Payload
		err    error
	)
	switch c := cmd.(type) {
	case StartScaffolding:
		events, err = next.startScaffolding(c)
	case ConfirmFirstAction:
		events, err = next.confirmFirstAction(c, env)
	case CompleteAction:
		events, err = next.completeAction(env)
	case RequestUnstuck:
		events, err = next.requestUnstuck(env)
	case AdvanceTo:
		events, err = next.advanceTo(c, env)
	case EnterFlow:
		events, err = next.enterFlow(env)
	case FinishTask:
		events, err = next.finishTask(env)
	case SubmitReason:
		events, err = next.submitReason(c)
	case ResumeWithoutPivot:
		err = next.resumeWithoutPivot()
	case OfferPivot:
		events, err = next.offerPivot(c)
	case ChoosePivot:
		events, err = next.choosePivot(c, env)
	case Exit:
		events, err = next.exit(env)
	default:
		err = fmt.Errorf("%w: unknown command %T", apperrors.ErrIllegalTransition, cmd)
	}
	if err != nil {
		return state, nil, err
	}
	return next, events, nil
}

func illegal(phase Phase, cmd Command) error {
	return fmt.Errorf("%w: %s in %s", apperrors.ErrIllegalTransition, cmd.Name(), phase)
}

func requireLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%w: action label is required", apperrors.ErrInvalidInput)
	}
	return label, nil
}

func (s *State) stepRef() tracking.StepRef {
	return tracking.StepRef{
		SessionID:   s.Session.SessionID,
		TaskID:      s.Session.TaskID,
		TaskTitle:   s.Session.TaskTitle,
		MicroAction: s.Session.CurrentMicroTask,
	}
}

func (s *State) stuckRef() tracking.StuckRef {
	return tracking.StuckRef{
		SessionID:   s.Session.SessionID,
		TaskID:      s.Session.TaskID,
		MicroAction: s.Session.CurrentMicroTask,
	}
}

func (s *State) startAction(label string, opts ActionOptions, now time.Time) tracking.Payload {
	s.Session.CurrentMicroTask = label
	s.Session.EstimatedSeconds = opts.EstimatedSeconds
	s.Session.CurrentSubtaskID = opts.SubtaskID
	s.Session.CurrentSubtaskTitle = opts.SubtaskTitle
	s.Session.StartTime = now
	s.Phase = PhaseExecuting
	return tracking.MicroStarted{StepRef: s.stepRef(), EstimatedSeconds: opts.EstimatedSeconds}
}

func (s *State) startScaffolding(c StartScaffolding) ([]tracking.Payload, error) {
	if s.Phase != PhaseIdle && s.Phase != PhaseDone {
		return nil, illegal(s.Phase, c)
	}
	if strings.TrimSpace(c.Task.ID) == "" {
		return nil, fmt.Errorf("%w: task id is required", apperrors.ErrInvalidInput)
	}
	plan := append([]tracking.PlannedTask{}, c.Plan...)
	s.Phase = PhaseScaffolding
	s.Task = c.Task
	s.Session = nil
	return []tracking.Payload{
		tracking.BrainDump{Tasks: plan, TaskCount: len(plan)},
		tracking.FocusSelected{TaskID: c.Task.ID, TaskTitle: c.Task.Title, TaskNote: c.Task.Note},
	}, nil
}

func (s *State) confirmFirstAction(c ConfirmFirstAction, env Env) ([]tracking.Payload, error) {
	if s.Phase != PhaseScaffolding {
		return nil, illegal(s.Phase, c)
	}
	label, err := requireLabel(c.Label)
	if err != nil {
		return nil, err
	}
	source := c.Source
	if source == "" {
		source = tracking.SourceSelf
	}
	s.Session = &Session{
		SessionID:        env.NewSessionID(),
		TaskID:           s.Task.ID,
		TaskTitle:        s.Task.Title,
		SessionStartedAt: env.Now,
	}
	started := s.startAction(label, c.Action, env.Now)
	return []tracking.Payload{
		tracking.FirstMicro{TaskID: s.Task.ID, TaskTitle: s.Task.Title, MicroAction: label, Source: source},
		tracking.SessionStarted{SessionID: s.Session.SessionID, TaskID: s.Task.ID, TaskTitle: s.Task.Title},
		started,
	}, nil
}

func (s *State) completeAction(env Env) ([]tracking.Payload, error) {
	switch s.Phase {
	case PhaseFlow:
		return s.finishTask(env)
	case PhaseExecuting:
	default:
		return nil, illegal(s.Phase, CompleteAction{})
	}
	completed := tracking.MicroCompleted{
		StepRef:          s.stepRef(),
		ActualSeconds:    elapsedSeconds(env.Now, s.Session.StartTime),
		EstimatedSeconds: s.Session.EstimatedSeconds,
	}
	s.Session.MicroHistory = append(s.Session.MicroHistory, s.Session.CurrentMicroTask)
	s.Session.StartTime = env.Now
	s.Session.EstimatedSeconds = nil
	s.Phase = PhaseRelay
	return []tracking.Payload{completed}, nil
}

func (s *State) requestUnstuck(env Env) ([]tracking.Payload, error) {
	if s.Phase != PhaseExecuting {
		return nil, illegal(s.Phase, RequestUnstuck{})
	}
	s.Phase = PhaseStuckA
	return []tracking.Payload{tracking.StuckTriggered{
		StuckRef:       s.stuckRef(),
		ElapsedSeconds: elapsedSeconds(env.Now, s.Session.StartTime),
	}}, nil
}

func (s *State) advanceTo(c AdvanceTo, env Env) ([]tracking.Payload, error) {
	if s.Phase != PhaseRelay {
		return nil, illegal(s.Phase, c)
	}
	label, err := requireLabel(c.Label)
	if err != nil {
		return nil, err
	}
	return []tracking.Payload{s.startAction(label, c.Action, env.Now)}, nil
}

func (s *State) enterFlow(env Env) ([]tracking.Payload, error) {
	if s.Phase != PhaseRelay {
		return nil, illegal(s.Phase, EnterFlow{})
	}
	last := s.Session.CurrentMicroTask
	if n := len(s.Session.MicroHistory); n > 0 {
		last = s.Session.MicroHistory[n-1]
	}
	entered := tracking.FlowEntered{
		SessionID:          s.Session.SessionID,
		TaskID:             s.Session.TaskID,
		TaskTitle:          s.Session.TaskTitle,
		LastMicroAction:    last,
		CompletedStepCount: len(s.Session.MicroHistory),
	}
	s.Session.IsFlowMode = true
	s.Session.FlowStartedAt = env.Now
	s.Session.StartTime = env.Now
	s.Session.CurrentMicroTask = s.Session.TaskTitle
	s.Session.EstimatedSeconds = nil
	s.Phase = PhaseFlow
	return []tracking.Payload{entered}, nil
}

func (s *State) finishTask(env Env) ([]tracking.Payload, error) {
	var events []tracking.Payload
	via := tracking.CompletedViaMicroSteps
	switch s.Phase {
	case PhaseRelay:
	case PhaseFlow:
		via = tracking.CompletedViaFlow
		events = append(events, s.flowEnded(env, tracking.EndReasonTaskDone))
	default:
		return nil, illegal(s.Phase, FinishTask{})
	}
	events = append(events,
		tracking.MacroCompleted{TaskID: s.Session.TaskID, TaskTitle: s.Session.TaskTitle, CompletedVia: via},
		s.sessionEnded(env, tracking.EndReasonTaskDone),
	)
	s.Phase = PhaseDone
	s.Session = nil
	return events, nil
}

func (s *State) submitReason(c SubmitReason) ([]tracking.Payload, error) {
	if s.Phase != PhaseStuckA {
		return nil, illegal(s.Phase, c)
	}
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: stuck reason is required", apperrors.ErrInvalidInput)
	}
	source := c.Source
	if source == "" {
		source = tracking.SourceSelf
	}
	s.Session.PendingReason = reason
	s.Session.PivotToken++
	s.Session.Offer = nil
	s.Phase = PhaseStuckB
	return []tracking.Payload{tracking.StuckReason{StuckRef: s.stuckRef(), Reason: reason, ReasonSource: source}}, nil
}

func (s *State) resumeWithoutPivot() error {
	if s.Phase != PhaseStuckA {
		return illegal(s.Phase, ResumeWithoutPivot{})
	}
	s.Phase = PhaseExecuting
	return nil
}

func (s *State) offerPivot(c OfferPivot) ([]tracking.Payload, error) {
	if s.Phase != PhaseStuckB || s.Session == nil || s.Session.SessionID != c.SessionID || s.Session.PivotToken != c.Token {
		return nil, fmt.Errorf("%w: session %s token %d", apperrors.ErrStaleReply, c.SessionID, c.Token)
	}
	offer := PivotOffer{Empathy: c.Offer.Empathy, Pivots: append([]string{}, c.Offer.Pivots...)}
	s.Session.Offer = &offer
	return []tracking.Payload{tracking.PivotOffered{
		StuckRef:         s.stuckRef(),
		Empathy:          offer.Empathy,
		PivotSuggestions: offer.Pivots,
	}}, nil
}

func (s *State) choosePivot(c ChoosePivot, env Env) ([]tracking.Payload, error) {
	if s.Phase != PhaseStuckB {
		return nil, illegal(s.Phase, c)
	}
	label, err := requireLabel(c.Label)
	if err != nil {
		return nil, err
	}
	source := c.Source
	if source == "" {
		source = tracking.SourceSelf
	}
	chosen := tracking.PivotChosen{StuckRef: s.stuckRef(), ChosenPivot: label, PivotSource: source}
	s.Session.PendingReason = ""
	s.Session.Offer = nil
	s.Session.PivotToken++
	started := s.startAction(label, c.Action, env.Now)
	return []tracking.Payload{chosen, started}, nil
}

func (s *State) exit(env Env) ([]tracking.Payload, error) {
	var events []tracking.Payload
	switch {
	case s.Phase == PhaseIdle:
		return nil, illegal(s.Phase, Exit{})
	case s.Phase == PhaseScaffolding, s.Phase == PhaseDone:
	case s.Phase.MidAction():
		events = append(events, tracking.AbandonExit{
			SessionID:      s.Session.SessionID,
			TaskID:         s.Session.TaskID,
			TaskTitle:      s.Session.TaskTitle,
			MicroAction:    s.Session.CurrentMicroTask,
			ElapsedSeconds: elapsedSeconds(env.Now, s.Session.StartTime),
			Phase:          string(s.Phase),
		})
		if s.Phase == PhaseFlow {
			events = append(events, s.flowEnded(env, tracking.EndReasonExit))
		}
		events = append(events, s.sessionEnded(env, tracking.EndReasonExit))
	case s.Phase == PhaseRelay:
		events = append(events, s.sessionEnded(env, tracking.EndReasonExit))
	}
	*s = State{Phase: PhaseIdle}
	return events, nil
}

func (s *State) flowEnded(env Env, reason string) tracking.Payload {
	return tracking.FlowEnded{
		SessionID:           s.Session.SessionID,
		TaskID:              s.Session.TaskID,
		TaskTitle:           s.Session.TaskTitle,
		FlowDurationSeconds: elapsedSeconds(env.Now, s.Session.FlowStartedAt),
		EndReason:           reason,
	}
}

func (s *State) sessionEnded(env Env, reason string) tracking.Payload {
	return tracking.SessionEnded{
		SessionID:            s.Session.SessionID,
		TaskID:               s.Session.TaskID,
		TaskTitle:            s.Session.TaskTitle,
		TotalDurationSeconds: elapsedSeconds(env.Now, s.Session.SessionStartedAt),
		CompletedMicroSteps:  len(s.Session.MicroHistory),
		EndReason:            reason,
	}
}
