package domain

// EventType names one kind of fact in the behavioral log.
type EventType string

const (
	TypeBrainDump     EventType = "plan.brain_dump"
	TypeFocusSelected EventType = "plan.focus_selected"
	TypeFirstMicro    EventType = "plan.first_micro"

	TypeMicroStarted   EventType = "exec.micro_started"
	TypeMicroCompleted EventType = "exec.micro_completed"
	TypeFlowEntered    EventType = "exec.flow_entered"
	TypeFlowEnded      EventType = "exec.flow_ended"

	TypeStuckTriggered EventType = "stuck.triggered"
	TypeStuckReason    EventType = "stuck.reason"
	TypePivotOffered   EventType = "stuck.pivot_offered"
	TypePivotChosen    EventType = "stuck.pivot_chosen"

	TypeAbandonExit EventType = "abandon.exit"

	TypeSessionStarted EventType = "session.started"
	TypeSessionEnded   EventType = "session.ended"
	TypeMacroCompleted EventType = "session.macro_completed"

	TypeDailyLeftovers EventType = "daily.leftovers"
)

// AllTypes lists the closed event set in taxonomy order.
func AllTypes() []EventType {
	return []EventType{
		TypeBrainDump, TypeFocusSelected, TypeFirstMicro,
		TypeMicroStarted, TypeMicroCompleted, TypeFlowEntered, TypeFlowEnded,
		TypeStuckTriggered, TypeStuckReason, TypePivotOffered, TypePivotChosen,
		TypeAbandonExit,
		TypeSessionStarted, TypeSessionEnded, TypeMacroCompleted,
		TypeDailyLeftovers,
	}
}

// Source records who proposed a label.
type Source string

const (
	SourceSelf     Source = "self"
	SourceAdvisor  Source = "advisor"
	SourceContinue Source = "continue"
)

const (
	EndReasonExit     = "exit"
	EndReasonTaskDone = "task_done"

	CompletedViaFlow       = "flow"
	CompletedViaMicroSteps = "micro_steps"
)

// Payload is the sealed variant carried by a TrackEvent. Adding a kind means
// adding a struct here, a constant above, and a decoder entry.
type Payload interface {
	Type() EventType
	payload()
}

type PlannedTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Note  string `json:"note,omitempty"`
}

type BrainDump struct {
	Tasks     []PlannedTask `json:"tasks"`
	TaskCount int           `json:"taskCount"`
}

type FocusSelected struct {
	TaskID    string `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
	TaskNote  string `json:"taskNote,omitempty"`
}

type FirstMicro struct {
	TaskID      string `json:"taskId"`
	TaskTitle   string `json:"taskTitle"`
	MicroAction string `json:"microAction"`
	Source      Source `json:"source"`
}

// StepRef identifies the atomic action an execution event refers to.
type StepRef struct {
	SessionID   string `json:"sessionId"`
	TaskID      string `json:"taskId"`
	TaskTitle   string `json:"taskTitle"`
	MicroAction string `json:"microAction"`
}

type MicroStarted struct {
	StepRef
	EstimatedSeconds *int `json:"estimatedSeconds,omitempty"`
}

type MicroCompleted struct {
	StepRef
	ActualSeconds    int  `json:"actualSeconds"`
	EstimatedSeconds *int `json:"estimatedSeconds,omitempty"`
}

type FlowEntered struct {
	SessionID          string `json:"sessionId"`
	TaskID             string `json:"taskId"`
	TaskTitle          string `json:"taskTitle"`
	LastMicroAction    string `json:"lastMicroAction"`
	CompletedStepCount int    `json:"completedStepCount"`
}

type FlowEnded struct {
	SessionID           string `json:"sessionId"`
	TaskID              string `json:"taskId"`
	TaskTitle           string `json:"taskTitle"`
	FlowDurationSeconds int    `json:"flowDurationSeconds"`
	EndReason           string `json:"endReason"`
}

// StuckRef identifies the action the user got stuck on.
type StuckRef struct {
	SessionID   string `json:"sessionId"`
	TaskID      string `json:"taskId"`
	MicroAction string `json:"microAction"`
}

type StuckTriggered struct {
	StuckRef
	ElapsedSeconds int `json:"elapsedSeconds"`
}

type StuckReason struct {
	StuckRef
	Reason       string `json:"reason"`
	ReasonSource Source `json:"reasonSource"`
}

type PivotOffered struct {
	StuckRef
	Empathy          string   `json:"empathy"`
	PivotSuggestions []string `json:"pivotSuggestions"`
}

type PivotChosen struct {
	StuckRef
	ChosenPivot string `json:"chosenPivot"`
	PivotSource Source `json:"pivotSource"`
}

type AbandonExit struct {
	SessionID      string `json:"sessionId"`
	TaskID         string `json:"taskId"`
	TaskTitle      string `json:"taskTitle"`
	MicroAction    string `json:"microAction"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Phase          string `json:"phase"`
}

type SessionStarted struct {
	SessionID string `json:"sessionId"`
	TaskID    string `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
}

type SessionEnded struct {
	SessionID            string `json:"sessionId"`
	TaskID               string `json:"taskId"`
	TaskTitle            string `json:"taskTitle"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
	CompletedMicroSteps  int    `json:"completedMicroSteps"`
	EndReason            string `json:"endReason"`
}

type MacroCompleted struct {
	TaskID       string `json:"taskId"`
	TaskTitle    string `json:"taskTitle"`
	CompletedVia string `json:"completedVia"`
}

type DailyLeftovers struct {
	LeftoverTasks []PlannedTask `json:"leftoverTasks"`
	TotalCount    int           `json:"totalCount"`
}

func (BrainDump) Type() EventType      { return TypeBrainDump }
func (FocusSelected) Type() EventType  { return TypeFocusSelected }
func (FirstMicro) Type() EventType     { return TypeFirstMicro }
func (MicroStarted) Type() EventType   { return TypeMicroStarted }
func (MicroCompleted) Type() EventType { return TypeMicroCompleted }
func (FlowEntered) Type() EventType    { return TypeFlowEntered }
func (FlowEnded) Type() EventType      { return TypeFlowEnded }
func (StuckTriggered) Type() EventType { return TypeStuckTriggered }
func (StuckReason) Type() EventType    { return TypeStuckReason }
func (PivotOffered) Type() EventType   { return TypePivotOffered }
func (PivotChosen) Type() EventType    { return TypePivotChosen }
func (AbandonExit) Type() EventType    { return TypeAbandonExit }
func (SessionStarted) Type() EventType { return TypeSessionStarted }
func (SessionEnded) Type() EventType   { return TypeSessionEnded }
func (MacroCompleted) Type() EventType { return TypeMacroCompleted }
func (DailyLeftovers) Type() EventType { return TypeDailyLeftovers }

func (BrainDump) payload()      {}
func (FocusSelected) payload()  {}
func (FirstMicro) payload()     {}
func (MicroStarted) payload()   {}
func (MicroCompleted) payload() {}
func (FlowEntered) payload()    {}
func (FlowEnded) payload()      {}
func (StuckTriggered) payload() {}
func (StuckReason) payload()    {}
func (PivotOffered) payload()   {}
func (PivotChosen) payload()    {}
func (AbandonExit) payload()    {}
func (SessionStarted) payload() {}
func (SessionEnded) payload()   {}
func (MacroCompleted) payload() {}
func (DailyLeftovers) payload() {}

// SessionOf returns the session id a payload belongs to, or "" for
// planning and daily facts.
func SessionOf(p Payload) string {
	switch v := p.(type) {
	case MicroStarted:
		return v.SessionID
	case MicroCompleted:
		return v.SessionID
	case FlowEntered:
		return v.SessionID
	case FlowEnded:
		return v.SessionID
	case StuckTriggered:
		return v.SessionID
	case StuckReason:
		return v.SessionID
	case PivotOffered:
		return v.SessionID
	case PivotChosen:
		return v.SessionID
	case AbandonExit:
		return v.SessionID
	case SessionStarted:
		return v.SessionID
	case SessionEnded:
		return v.SessionID
	default:
		return ""
	}
}

// IntPtr is a helper for optional estimate fields.
func IntPtr(v int) *int {
	return &v
}
