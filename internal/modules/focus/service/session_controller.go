package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"microstep/internal/modules/focus/domain"
	focusout "microstep/internal/modules/focus/port/out"
	tracking "microstep/internal/modules/tracking/domain"
	"microstep/internal/platform/clock"
	apperrors "microstep/internal/platform/errors"
	"microstep/internal/platform/id"
)

const (
	DefaultAdvisorTimeout = 8 * time.Second
	maxSuggestions        = 5
)

type ActionOption func(*domain.ActionOptions)

func WithEstimate(seconds int) ActionOption {
	return func(o *domain.ActionOptions) {
		if seconds > 0 {
			o.EstimatedSeconds = tracking.IntPtr(seconds)
		}
	}
}

func WithSubtask(id, title string) ActionOption {
	return func(o *domain.ActionOptions) {
		o.SubtaskID = id
		o.SubtaskTitle = title
	}
}

type Suggestions struct {
	Items []string
	Err   error
	Stale bool
}

type PivotResult struct {
	State domain.State
	Offer domain.PivotOffer
	Err   error
	Stale bool
}

// SessionController serializes commands against the one focus session and
// records the events each transition produces. Advisor calls run without
// the lock held; their replies are applied only if the session they were
// asked for is still current.
type SessionController struct {
	mu    sync.Mutex
	state domain.State

	clock    clock.Clock
	idGen    id.Generator
	recorder focusout.EventRecorder
	advisor  focusout.Advisor
	catalog  focusout.TaskCatalog
	logger   *zap.Logger
	timeout  time.Duration
}

func NewSessionController(clock clock.Clock, idGen id.Generator, recorder focusout.EventRecorder, advisor focusout.Advisor, catalog focusout.TaskCatalog, logger *zap.Logger, advisorTimeout time.Duration) *SessionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if advisorTimeout <= 0 {
		advisorTimeout = DefaultAdvisorTimeout
	}
	return &SessionController{
		state:    domain.NewState(),
		clock:    clock,
		idGen:    idGen,
		recorder: recorder,
		advisor:  advisor,
		catalog:  catalog,
		logger:   logger,
		timeout:  advisorTimeout,
	}
}

func (c *SessionController) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *SessionController) apply(cmd domain.Command) (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(cmd)
}

func (c *SessionController) applyLocked(cmd domain.Command) (domain.State, error) {
	next, events, err := domain.Transition(c.state, cmd, domain.Env{
		Now:          c.clock.Now(),
		NewSessionID: c.idGen.New,
	})
	if err != nil {
		return c.state.Clone(), err
	}
	c.state = next
	for _, event := range events {
		c.recorder.Track(event)
	}
	return next.Clone(), nil
}

func (c *SessionController) StartScaffolding(ctx context.Context, taskRef string) (domain.State, error) {
	if c.catalog == nil {
		return c.State(), fmt.Errorf("task catalog is not configured")
	}
	task, err := c.catalog.Task(ctx, taskRef)
	if err != nil {
		return c.State(), err
	}
	plan, err := c.catalog.Snapshot(ctx)
	if err != nil {
		return c.State(), err
	}
	return c.apply(domain.StartScaffolding{Task: task, Plan: plan})
}

func (c *SessionController) ConfirmFirstAction(_ context.Context, label string, source tracking.Source, opts ...ActionOption) (domain.State, error) {
	return c.apply(domain.ConfirmFirstAction{Label: label, Source: source, Action: actionOptions(opts)})
}

func (c *SessionController) CompleteAction(ctx context.Context) (domain.State, error) {
	return c.finishing(ctx, domain.CompleteAction{})
}

func (c *SessionController) RequestUnstuck(_ context.Context) (domain.State, error) {
	return c.apply(domain.RequestUnstuck{})
}

func (c *SessionController) AdvanceTo(_ context.Context, label string, opts ...ActionOption) (domain.State, error) {
	return c.apply(domain.AdvanceTo{Label: label, Action: actionOptions(opts)})
}

func (c *SessionController) EnterFlow(_ context.Context) (domain.State, error) {
	return c.apply(domain.EnterFlow{})
}

func (c *SessionController) FinishTask(ctx context.Context) (domain.State, error) {
	return c.finishing(ctx, domain.FinishTask{})
}

func (c *SessionController) ResumeWithoutPivot(_ context.Context) (domain.State, error) {
	return c.apply(domain.ResumeWithoutPivot{})
}

func (c *SessionController) ChoosePivot(_ context.Context, label string, source tracking.Source, opts ...ActionOption) (domain.State, error) {
	return c.apply(domain.ChoosePivot{Label: label, Source: source, Action: actionOptions(opts)})
}

// ContinueOriginal picks the action the user was stuck on as the pivot.
func (c *SessionController) ContinueOriginal(_ context.Context) (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != domain.PhaseStuckB || c.state.Session == nil {
		return c.state.Clone(), fmt.Errorf("%w: continue original in %s", apperrors.ErrIllegalTransition, c.state.Phase)
	}
	session := c.state.Session
	opts := domain.ActionOptions{
		EstimatedSeconds: session.EstimatedSeconds,
		SubtaskID:        session.CurrentSubtaskID,
		SubtaskTitle:     session.CurrentSubtaskTitle,
	}
	return c.applyLocked(domain.ChoosePivot{Label: session.CurrentMicroTask, Source: tracking.SourceContinue, Action: opts})
}

func (c *SessionController) Exit(_ context.Context) (domain.State, error) {
	return c.apply(domain.Exit{})
}

// finishing applies a command that may close the macro task and marks the
// task done in the plan when it does.
func (c *SessionController) finishing(ctx context.Context, cmd domain.Command) (domain.State, error) {
	c.mu.Lock()
	before := c.state.Phase
	task := c.state.Task
	next, err := c.applyLocked(cmd)
	c.mu.Unlock()
	if err != nil {
		return next, err
	}
	if before != domain.PhaseDone && next.Phase == domain.PhaseDone && c.catalog != nil {
		if err := c.catalog.MarkDone(ctx, task); err != nil {
			c.logger.Warn("mark task done failed", zap.String("task_id", task.ID), zap.String("plan_date", task.PlanDate), zap.Error(err))
		}
	}
	return next, nil
}

// SubmitReason records the reason, moves to stuck_b and asks the advisor
// for a pivot. The transition never waits on the advisor's outcome.
func (c *SessionController) SubmitReason(ctx context.Context, reason string, source tracking.Source) (PivotResult, error) {
	c.mu.Lock()
	next, err := c.applyLocked(domain.SubmitReason{Reason: reason, Source: source})
	if err != nil {
		c.mu.Unlock()
		return PivotResult{State: next}, err
	}
	req := domain.ContextOf(next)
	token := next.Session.PivotToken
	c.mu.Unlock()

	result := PivotResult{State: next}
	offer, callErr := c.suggestPivot(ctx, req, next.Session.PendingReason)
	if callErr != nil {
		c.logger.Warn("advisor pivot failed", zap.String("session_id", req.SessionID), zap.Error(callErr))
		result.Err = callErr
		result.State = c.State()
		return result, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	applied, err := c.applyLocked(domain.OfferPivot{SessionID: req.SessionID, Token: token, Offer: offer})
	result.State = applied
	if errors.Is(err, apperrors.ErrStaleReply) {
		c.logger.Debug("dropped stale pivot reply", zap.String("session_id", req.SessionID))
		result.Stale = true
		return result, nil
	}
	if err != nil {
		return result, err
	}
	result.Offer = offer
	return result, nil
}

func (c *SessionController) SuggestFirstActions(ctx context.Context) Suggestions {
	return c.suggest(ctx, []domain.Phase{domain.PhaseScaffolding, domain.PhaseRelay}, c.advisorOrNoop().SuggestFirstActions)
}

func (c *SessionController) SuggestStuckCauses(ctx context.Context) Suggestions {
	return c.suggest(ctx, []domain.Phase{domain.PhaseStuckA}, c.advisorOrNoop().SuggestStuckCauses)
}

func (c *SessionController) suggest(ctx context.Context, phases []domain.Phase, call func(context.Context, domain.AdvisorContext) ([]string, error)) Suggestions {
	c.mu.Lock()
	state := c.state.Clone()
	c.mu.Unlock()
	if !lo.Contains(phases, state.Phase) {
		return Suggestions{Err: fmt.Errorf("%w: suggestions in %s", apperrors.ErrIllegalTransition, state.Phase)}
	}
	req := domain.ContextOf(state)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	items, err := call(callCtx, req)
	if err != nil {
		c.logger.Warn("advisor suggestions failed", zap.String("phase", string(state.Phase)), zap.Error(err))
		return Suggestions{Items: []string{}, Err: err}
	}

	current := c.State()
	now := domain.ContextOf(current)
	if now.Phase != req.Phase || now.SessionID != req.SessionID || now.TaskID != req.TaskID || len(now.History) != len(req.History) {
		return Suggestions{Items: []string{}, Stale: true}
	}
	return Suggestions{Items: cleanSuggestions(items)}
}

func (c *SessionController) suggestPivot(ctx context.Context, req domain.AdvisorContext, reason string) (domain.PivotOffer, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	offer, err := c.advisorOrNoop().SuggestPivot(callCtx, req, reason)
	if err != nil {
		return domain.PivotOffer{}, err
	}
	offer.Empathy = strings.TrimSpace(offer.Empathy)
	offer.Pivots = cleanSuggestions(offer.Pivots)
	return offer, nil
}

func (c *SessionController) advisorOrNoop() focusout.Advisor {
	if c.advisor == nil {
		return unavailableAdvisor{}
	}
	return c.advisor
}

type unavailableAdvisor struct{}

func (unavailableAdvisor) SuggestFirstActions(context.Context, domain.AdvisorContext) ([]string, error) {
	return nil, apperrors.ErrAdvisorUnavailable
}

func (unavailableAdvisor) SuggestStuckCauses(context.Context, domain.AdvisorContext) ([]string, error) {
	return nil, apperrors.ErrAdvisorUnavailable
}

func (unavailableAdvisor) SuggestPivot(context.Context, domain.AdvisorContext, string) (domain.PivotOffer, error) {
	return domain.PivotOffer{}, apperrors.ErrAdvisorUnavailable
}

// cleanSuggestions trims, drops blanks and repeats, and caps the list.
func cleanSuggestions(items []string) []string {
	trimmed := lo.Map(items, func(item string, _ int) string { return strings.TrimSpace(item) })
	out := lo.Uniq(lo.Compact(trimmed))
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func actionOptions(opts []ActionOption) domain.ActionOptions {
	out := domain.ActionOptions{}
	for _, opt := range opts {
		opt(&out)
	}
	return out
}
