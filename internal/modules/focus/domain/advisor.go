package domain

// AdvisorContext is what the advisor sees about the current work.
type AdvisorContext struct {
	SessionID     string
	TaskID        string
	TaskTitle     string
	TaskNote      string
	CurrentAction string
	History       []string
	Phase         Phase
}

// ContextOf builds the advisor request for the current state.
func ContextOf(s State) AdvisorContext {
	ctx := AdvisorContext{
		TaskID:    s.Task.ID,
		TaskTitle: s.Task.Title,
		TaskNote:  s.Task.Note,
		Phase:     s.Phase,
	}
	if s.Session != nil {
		ctx.SessionID = s.Session.SessionID
		ctx.CurrentAction = s.Session.CurrentMicroTask
		ctx.History = append([]string(nil), s.Session.MicroHistory...)
	}
	return ctx
}
