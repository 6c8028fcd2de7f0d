package domain

import (
	"time"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseScaffolding Phase = "scaffolding"
	PhaseExecuting   Phase = "executing"
	PhaseRelay       Phase = "relay"
	PhaseStuckA      Phase = "stuck_a"
	PhaseStuckB      Phase = "stuck_b"
	PhaseFlow        Phase = "flow"
	PhaseDone        Phase = "done"
)

// Phases lists every phase the controller can be in.
func Phases() []Phase {
	return []Phase{PhaseIdle, PhaseScaffolding, PhaseExecuting, PhaseRelay, PhaseStuckA, PhaseStuckB, PhaseFlow, PhaseDone}
}

// MidAction reports whether an atomic action (or a flow run) is underway,
// which is when leaving counts as an abandonment.
func (p Phase) MidAction() bool {
	switch p {
	case PhaseExecuting, PhaseStuckA, PhaseStuckB, PhaseFlow:
		return true
	default:
		return false
	}
}

type Task struct {
	ID    string
	Title string
	Note  string
	// PlanDate is the day of the plan the task was picked from.
	PlanDate string
}

type PivotOffer struct {
	Empathy string
	Pivots  []string
}

// Session is the single active execution context. SessionID is fixed at
// creation and correlates every event the session emits.
type Session struct {
	SessionID string
	TaskID    string
	TaskTitle string

	CurrentMicroTask    string
	CurrentSubtaskID    string
	CurrentSubtaskTitle string
	EstimatedSeconds    *int

	// StartTime is when the current action started. Getting stuck does not
	// reset it, so resuming keeps the original timer.
	StartTime        time.Time
	SessionStartedAt time.Time
	FlowStartedAt    time.Time
	IsFlowMode       bool
	MicroHistory     []string

	PendingReason string
	PivotToken    int
	Offer         *PivotOffer
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.MicroHistory = append([]string(nil), s.MicroHistory...)
	if s.EstimatedSeconds != nil {
		v := *s.EstimatedSeconds
		c.EstimatedSeconds = &v
	}
	if s.Offer != nil {
		offer := PivotOffer{Empathy: s.Offer.Empathy, Pivots: append([]string(nil), s.Offer.Pivots...)}
		c.Offer = &offer
	}
	return &c
}

// State is everything the controller owns. Session is nil outside of a
// running session; Task is set from scaffolding until the next start.
type State struct {
	Phase   Phase
	Task    Task
	Session *Session
}

func NewState() State {
	return State{Phase: PhaseIdle}
}

// Clone returns a deep copy so callers can read it without the lock.
func (s State) Clone() State {
	s.Session = s.Session.clone()
	return s
}

// DisplayLabel is what the focus screen shows as the current thing to do.
func (s State) DisplayLabel() string {
	switch {
	case s.Session == nil:
		return s.Task.Title
	case s.Session.IsFlowMode:
		return s.Session.TaskTitle
	default:
		return s.Session.CurrentMicroTask
	}
}

func elapsedSeconds(now, since time.Time) int {
	if since.IsZero() || now.Before(since) {
		return 0
	}
	return int(now.Sub(since).Round(time.Second) / time.Second)
}
