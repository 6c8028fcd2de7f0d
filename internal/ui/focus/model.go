package focus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"microstep/internal/modules/focus/dto"
	"microstep/internal/ui/components"
	"microstep/internal/ui/theme"
)

// Port is the slice of the focus usecase the screen drives.
type Port interface {
	Current(ctx context.Context) dto.SessionOutput
	ConfirmFirstAction(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	CompleteAction(ctx context.Context) (dto.SessionOutput, error)
	RequestUnstuck(ctx context.Context) (dto.SessionOutput, error)
	AdvanceTo(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	EnterFlow(ctx context.Context) (dto.SessionOutput, error)
	FinishTask(ctx context.Context) (dto.SessionOutput, error)
	SubmitReason(ctx context.Context, input dto.ReasonInput) (dto.PivotOutput, error)
	ResumeWithoutPivot(ctx context.Context) (dto.SessionOutput, error)
	ChoosePivot(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	ContinueOriginal(ctx context.Context) (dto.SessionOutput, error)
	Exit(ctx context.Context) (dto.SessionOutput, error)
	SuggestFirstActions(ctx context.Context) (dto.SuggestionsOutput, error)
	SuggestStuckCauses(ctx context.Context) (dto.SuggestionsOutput, error)
}

const (
	phaseIdle        = "idle"
	phaseScaffolding = "scaffolding"
	phaseExecuting   = "executing"
	phaseRelay       = "relay"
	phaseStuckA      = "stuck_a"
	phaseStuckB      = "stuck_b"
	phaseFlow        = "flow"
	phaseDone        = "done"

	sourceSelf    = "self"
	sourceAdvisor = "advisor"
)

// ─── async messages ───────────────────────────────────────────────────────────

type sessionMsg struct {
	out dto.SessionOutput
	err error
}

type suggestionsMsg struct {
	// phase the list was asked for; a reply for another phase is dropped.
	phase string
	out   dto.SuggestionsOutput
	err   error
}

type pivotMsg struct {
	out dto.PivotOutput
	err error
}

type tickMsg time.Time

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Done     key.Binding
	Stuck    key.Binding
	Submit   key.Binding
	Cycle    key.Binding
	Flow     key.Binding
	Finish   key.Binding
	Resume   key.Binding
	Continue key.Binding
	Exit     key.Binding
	phase    string
}

func defaultKeys() keyMap {
	return keyMap{
		Done:     key.NewBinding(key.WithKeys("d", " "), key.WithHelp("d", "done")),
		Stuck:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stuck")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cycle:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "suggestion")),
		Flow:     key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "flow")),
		Finish:   key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "task done")),
		Resume:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "back to it")),
		Continue: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "keep original")),
		Exit:     key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "exit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	switch k.phase {
	case phaseScaffolding:
		return []key.Binding{k.Submit, k.Cycle, k.Exit}
	case phaseExecuting:
		return []key.Binding{k.Done, k.Stuck, k.Exit}
	case phaseRelay:
		return []key.Binding{k.Submit, k.Cycle, k.Flow, k.Finish, k.Exit}
	case phaseStuckA:
		return []key.Binding{k.Submit, k.Cycle, k.Resume, k.Exit}
	case phaseStuckB:
		return []key.Binding{k.Submit, k.Cycle, k.Continue, k.Exit}
	case phaseFlow:
		return []key.Binding{k.Done, k.Exit}
	default:
		return []key.Binding{k.Exit}
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the focus screen. Every command goes through the port; the model
// only mirrors the last session it was handed.
type Model struct {
	port    Port
	ctx     context.Context
	now     func() time.Time
	session dto.SessionOutput

	prompt  components.Prompt
	spinner spinner.Model
	keys    keyMap
	help    help.Model

	initCmd tea.Cmd
	waiting bool
	status  string
	width   int
	height  int
}

func NewModel(ctx context.Context, port Port) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		port:    port,
		ctx:     ctx,
		now:     time.Now,
		session: port.Current(ctx),
		prompt:  components.NewPrompt("", ""),
		spinner: sp,
		keys:    defaultKeys(),
		help:    help.New(),
	}
	m.initCmd = m.enter(m.session.Phase)
	return m
}

// Session is the last state the screen saw.
func (m Model) Session() dto.SessionOutput { return m.session }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initCmd, tick(), m.spinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// enter prepares the prompt for a phase and asks for suggestions when the
// phase has any.
func (m *Model) enter(phase string) tea.Cmd {
	m.keys.phase = phase
	switch phase {
	case phaseScaffolding:
		m.prompt = components.NewPrompt("What is the tiniest first step?", "open the document")
		return tea.Batch(m.prompt.Focus(), m.suggestCmd(phase, m.port.SuggestFirstActions))
	case phaseRelay:
		m.prompt = components.NewPrompt("Next tiny step?", "type it, or ctrl+f to keep going")
		return tea.Batch(m.prompt.Focus(), m.suggestCmd(phase, m.port.SuggestFirstActions))
	case phaseStuckA:
		m.prompt = components.NewPrompt("What is in the way?", "too vague, too big, tired...")
		return tea.Batch(m.prompt.Focus(), m.suggestCmd(phase, m.port.SuggestStuckCauses))
	case phaseStuckB:
		m.prompt = components.NewPrompt("Try something smaller instead", "type your own pivot")
		cmd := m.prompt.Focus()
		m.prompt.SetSuggestions(m.session.Pivots)
		return cmd
	}
	return nil
}

func (m Model) suggestCmd(phase string, call func(context.Context) (dto.SuggestionsOutput, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		out, err := call(ctx)
		return suggestionsMsg{phase: phase, out: out, err: err}
	}
}

func (m Model) do(call func(context.Context) (dto.SessionOutput, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		out, err := call(ctx)
		return sessionMsg{out: out, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.prompt.SetWidth(min(m.width-4, 80))
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		return m.applySession(msg.out, msg.err)

	case suggestionsMsg:
		if msg.phase != m.session.Phase {
			return m, nil
		}
		switch {
		case msg.err != nil:
			m.prompt.SetNote(msg.err.Error())
		case msg.out.Stale:
		case msg.out.Err != "":
			m.prompt.SetNote("no suggestions: " + msg.out.Err)
		default:
			m.prompt.SetSuggestions(msg.out.Items)
		}
		return m, nil

	case pivotMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = msg.err.Error()
			return m.resync(msg.out.Session)
		}
		if msg.out.Stale {
			return m, nil
		}
		m.session = msg.out.Session
		if msg.out.Err != "" {
			m.status = "advisor: " + msg.out.Err
		} else if msg.out.Empathy != "" {
			m.status = msg.out.Empathy
		}
		if m.session.Phase == phaseStuckB {
			m.prompt.SetSuggestions(msg.out.Pivots)
		}
		return m, nil

	case components.PromptSubmitMsg:
		return m.submit(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Exit) {
			if m.session.Phase == phaseIdle || m.session.Phase == phaseDone {
				return m, tea.Quit
			}
			return m, m.do(m.port.Exit)
		}
		switch m.session.Phase {
		case phaseExecuting:
			switch {
			case key.Matches(msg, m.keys.Done):
				return m, m.do(m.port.CompleteAction)
			case key.Matches(msg, m.keys.Stuck):
				return m, m.do(m.port.RequestUnstuck)
			}
			return m, nil
		case phaseFlow:
			if key.Matches(msg, m.keys.Done) {
				return m, m.do(m.port.FinishTask)
			}
			return m, nil
		case phaseRelay:
			switch {
			case key.Matches(msg, m.keys.Flow):
				return m, m.do(m.port.EnterFlow)
			case key.Matches(msg, m.keys.Finish):
				return m, m.do(m.port.FinishTask)
			}
		case phaseStuckA:
			if key.Matches(msg, m.keys.Resume) {
				return m, m.do(m.port.ResumeWithoutPivot)
			}
		case phaseStuckB:
			if key.Matches(msg, m.keys.Continue) {
				return m, m.do(m.port.ContinueOriginal)
			}
		case phaseDone, phaseIdle:
			if msg.String() == "q" || msg.String() == "enter" {
				return m, tea.Quit
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) applySession(out dto.SessionOutput, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	before := m.session.Phase
	m.session = out
	m.status = ""
	if out.Phase == phaseIdle {
		return m, tea.Quit
	}
	if out.Phase == before {
		return m, nil
	}
	return m, m.enter(out.Phase)
}

// resync drops the optimistic stuck_b shown while waiting and adopts the
// controller's phase, keeping the status line.
func (m Model) resync(out dto.SessionOutput) (tea.Model, tea.Cmd) {
	if out.Phase == "" {
		out = m.port.Current(m.ctx)
	}
	before := m.session.Phase
	m.session = out
	switch {
	case out.Phase == phaseIdle:
		return m, tea.Quit
	case out.Phase == before:
		return m, nil
	}
	return m, m.enter(out.Phase)
}

func (m Model) submit(msg components.PromptSubmitMsg) (tea.Model, tea.Cmd) {
	source := sourceSelf
	if msg.FromList {
		source = sourceAdvisor
	}
	input := dto.ActionInput{Label: msg.Value, Source: source}
	switch m.session.Phase {
	case phaseScaffolding:
		return m, m.do(func(ctx context.Context) (dto.SessionOutput, error) { return m.port.ConfirmFirstAction(ctx, input) })
	case phaseRelay:
		return m, m.do(func(ctx context.Context) (dto.SessionOutput, error) { return m.port.AdvanceTo(ctx, input) })
	case phaseStuckB:
		return m, m.do(func(ctx context.Context) (dto.SessionOutput, error) { return m.port.ChoosePivot(ctx, input) })
	case phaseStuckA:
		// The controller is in stuck_b before the advisor answers.
		m.session.Phase = phaseStuckB
		m.session.PendingReason = msg.Value
		m.session.Pivots = nil
		m.waiting = true
		cmd := m.enter(phaseStuckB)
		port, ctx := m.port, m.ctx
		reason := dto.ReasonInput{Reason: msg.Value, Source: source}
		return m, tea.Batch(cmd, func() tea.Msg {
			out, err := port.SubmitReason(ctx, reason)
			return pivotMsg{out: out, err: err}
		})
	}
	return m, nil
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	s := m.session
	header := lipgloss.JoinHorizontal(lipgloss.Top, theme.Title.Render("microstep  "), theme.PhaseBadge(s.Phase))

	var body strings.Builder
	if s.TaskTitle != "" {
		body.WriteString(theme.Muted.Render("Task: "+s.TaskTitle) + "\n")
	}
	switch s.Phase {
	case phaseExecuting:
		body.WriteString(theme.Action.Render(s.Label) + "\n")
		body.WriteString(m.renderTimer() + "\n")
	case phaseFlow:
		body.WriteString(theme.Flow.Render("In flow: "+s.TaskTitle) + "\n")
		body.WriteString(m.renderTimer() + "\n")
	case phaseStuckA, phaseStuckB:
		body.WriteString(theme.Muted.Render("Stuck on: "+s.Label) + "\n")
		if s.PendingReason != "" {
			body.WriteString(theme.Muted.Render("Because: "+s.PendingReason) + "\n")
		}
		if m.waiting {
			body.WriteString(m.spinner.View() + " asking the advisor...\n")
		}
		body.WriteString("\n" + m.prompt.View() + "\n")
	case phaseScaffolding, phaseRelay:
		if n := len(s.History); n > 0 {
			body.WriteString(theme.Muted.Render(fmt.Sprintf("Done so far: %d steps, last: %s", n, s.History[n-1])) + "\n")
		}
		body.WriteString("\n" + m.prompt.View() + "\n")
	case phaseDone:
		body.WriteString(theme.Hot.Render("Task finished.") + "\n")
	default:
		body.WriteString(theme.Muted.Render("No session.") + "\n")
	}

	status := ""
	if m.status != "" {
		status = theme.Hot.Render(m.status)
	}
	pane := theme.Pane
	if s.Phase == phaseExecuting || s.Phase == phaseFlow {
		pane = theme.PaneActive
	}
	if m.width > 0 {
		pane = pane.Width(max(m.width-8, 20))
	}
	content := pane.Render(strings.TrimRight(body.String(), "\n"))
	view := lipgloss.JoinVertical(lipgloss.Left, header, "", content, status, m.help.View(m.keys))
	return theme.App.Render(view)
}

func (m Model) renderTimer() string {
	elapsed := 0
	if !m.session.StartedAt.IsZero() {
		elapsed = int(m.now().Sub(m.session.StartedAt).Seconds())
	}
	if elapsed < 0 {
		elapsed = 0
	}
	text := fmt.Sprintf("%02d:%02d", elapsed/60, elapsed%60)
	if est := m.session.EstimatedSecs; est > 0 {
		text += fmt.Sprintf(" / %02d:%02d", est/60, est%60)
		if elapsed > est {
			return theme.Late.Render(text)
		}
	}
	return theme.Timer.Render(text)
}

// Run starts the screen on the terminal and returns the last session state.
func Run(ctx context.Context, port Port) (dto.SessionOutput, error) {
	final, err := tea.NewProgram(NewModel(ctx, port), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return dto.SessionOutput{}, fmt.Errorf("run focus screen: %w", err)
	}
	if model, ok := final.(Model); ok {
		return model.Session(), nil
	}
	return port.Current(ctx), nil
}
