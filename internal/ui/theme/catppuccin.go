package theme

import "github.com/charmbracelet/lipgloss"

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Mauve    = lipgloss.Color("#cba6f7")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)

	// Action is the single thing the user should be doing right now.
	Action = lipgloss.NewStyle().Foreground(Text).Bold(true).Padding(1, 0)
	Timer  = lipgloss.NewStyle().Foreground(Green)
	Late   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Flow   = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
)

// PhaseBadge renders the focus phase as a short colored tag.
func PhaseBadge(phase string) string {
	color := Subtext0
	switch phase {
	case "executing":
		color = Green
	case "relay":
		color = Sapphire
	case "stuck_a", "stuck_b":
		color = Red
	case "flow":
		color = Mauve
	case "done":
		color = Lavender
	}
	return lipgloss.NewStyle().Foreground(Base).Background(color).Padding(0, 1).Render(phase)
}
