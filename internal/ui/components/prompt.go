package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"microstep/internal/ui/theme"
)

// PromptSubmitMsg is emitted when the user confirms the input. FromList is
// true when the value is an unedited suggestion.
type PromptSubmitMsg struct {
	Value    string
	FromList bool
}

var (
	promptStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	hintStyle     = lipgloss.NewStyle().Foreground(theme.Subtext0)
	selectedStyle = lipgloss.NewStyle().Foreground(theme.Green).Bold(true)
)

// Prompt is a text input with an optional list of suggestions that tab
// cycles through.
type Prompt struct {
	title       string
	input       textinput.Model
	suggestions []string
	selected    int
	note        string
	width       int
}

func NewPrompt(title, placeholder string) Prompt {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	return Prompt{title: title, input: ti, selected: -1}
}

// Focus clears the prompt and returns the cursor blink command.
func (p *Prompt) Focus() tea.Cmd {
	p.input.SetValue("")
	p.suggestions = nil
	p.selected = -1
	p.note = ""
	return p.input.Focus()
}

func (p *Prompt) SetWidth(w int) { p.width = w }

func (p *Prompt) SetSuggestions(items []string) {
	p.suggestions = append([]string{}, items...)
	p.selected = -1
	p.note = ""
}

// SetNote replaces the suggestion list with a one-line message.
func (p *Prompt) SetNote(note string) {
	p.suggestions = nil
	p.selected = -1
	p.note = note
}

func (p Prompt) Value() string { return strings.TrimSpace(p.input.Value()) }

func (p Prompt) Update(msg tea.Msg) (Prompt, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			if len(p.suggestions) > 0 {
				p.selected = (p.selected + 1) % len(p.suggestions)
				p.input.SetValue(p.suggestions[p.selected])
				p.input.CursorEnd()
			}
			return p, nil
		case "enter":
			value := p.Value()
			if value == "" {
				return p, nil
			}
			fromList := p.selected >= 0 && p.suggestions[p.selected] == value
			return p, func() tea.Msg { return PromptSubmitMsg{Value: value, FromList: fromList} }
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p Prompt) View() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(p.title) + "\n")
	sb.WriteString("> " + p.input.View() + "\n")
	switch {
	case p.note != "":
		sb.WriteString("\n" + hintStyle.Render("  "+p.note) + "\n")
	case len(p.suggestions) > 0:
		sb.WriteString("\n")
		for i, s := range p.suggestions {
			line := fmt.Sprintf("  %d. %s", i+1, s)
			if i == p.selected {
				sb.WriteString(selectedStyle.Render(line) + "\n")
				continue
			}
			sb.WriteString(hintStyle.Render(line) + "\n")
		}
	}
	w := p.width
	if w < 20 {
		w = 64
	}
	return promptStyle.Width(w - 2).Render(sb.String())
}
