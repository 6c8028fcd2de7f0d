package domain

import (
	"fmt"
	"strings"
	"time"
)

const clockLayout = "15:04"

// RenderNarrative formats a summary as plain text for a downstream writer.
// Sections always appear, in a fixed order, so readers can rely on them.
func RenderNarrative(s DailySummary) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Day %s\n", s.Date)

	section(b, "Planning")
	switch {
	case s.Planning.BrainDump == nil && s.Planning.FocusSelected == nil && s.Planning.FirstMicro == nil:
		line(b, "No planning recorded.")
	default:
		if dump := s.Planning.BrainDump; dump != nil {
			line(b, "Brain dump: %d tasks", dump.TaskCount)
			for _, task := range dump.Tasks {
				line(b, "  - %s", withNote(task.Title, task.Note))
			}
		}
		if focus := s.Planning.FocusSelected; focus != nil {
			line(b, "Focus: %s", withNote(focus.TaskTitle, focus.TaskNote))
		}
		if first := s.Planning.FirstMicro; first != nil {
			line(b, "First action: %s (%s)", first.MicroAction, first.Source)
		}
	}

	section(b, "Trail")
	if len(s.Trail) == 0 {
		line(b, "No steps.")
	}
	for _, step := range s.Trail {
		text := fmt.Sprintf("%s %-9s %s, %s", stamp(step.At), step.Status, step.MicroAction, seconds(step.ElapsedSeconds))
		if step.TimeDeltaSeconds != nil {
			text += fmt.Sprintf(" (estimate %s, delta %+ds)", seconds(*step.EstimatedSeconds), *step.TimeDeltaSeconds)
		}
		line(b, "%s", text)
	}

	section(b, "Flow")
	if len(s.Flows) == 0 {
		line(b, "No flow.")
	}
	for _, flow := range s.Flows {
		end := flow.EndReason
		if end == "" {
			end = "open"
		}
		line(b, "%s %s after %d steps, %s, ended: %s", stamp(flow.EnteredAt), flow.TaskTitle, flow.CompletedStepCount, seconds(flow.DurationSeconds), end)
	}

	section(b, "Stuck and rescue")
	if len(s.Stucks) == 0 {
		line(b, "Never stuck.")
	}
	for _, stuck := range s.Stucks {
		line(b, "%s stuck on %s: %s (%s)", stamp(stuck.At), stuck.MicroAction, stuck.Reason, stuck.ReasonSource)
		if stuck.Empathy != "" {
			line(b, "  advisor: %s", stuck.Empathy)
		}
		if len(stuck.PivotSuggestions) > 0 {
			line(b, "  offered: %s", strings.Join(stuck.PivotSuggestions, "; "))
		}
		switch {
		case stuck.Rescued == nil:
			line(b, "  unresolved")
		case *stuck.Rescued:
			line(b, "  pivot: %s (%s), rescued", stuck.ChosenPivot, stuck.PivotSource)
		default:
			line(b, "  pivot: %s (%s), not rescued", stuck.ChosenPivot, stuck.PivotSource)
		}
	}

	section(b, "Abandonments")
	if len(s.Abandonments) == 0 {
		line(b, "None.")
	}
	for _, a := range s.Abandonments {
		line(b, "%s left %s during %s in %s after %s", stamp(a.At), a.TaskTitle, a.MicroAction, a.Phase, seconds(a.ElapsedSeconds))
	}

	section(b, "Macro closure")
	if len(s.Macro) == 0 {
		line(b, "No task finished.")
	}
	for _, m := range s.Macro {
		line(b, "%s finished %s via %s", stamp(m.At), m.TaskTitle, m.CompletedVia)
	}

	section(b, "Leftovers")
	switch {
	case s.Leftovers == nil:
		line(b, "Not recorded.")
	case s.Leftovers.TotalCount == 0:
		line(b, "Nothing left.")
	default:
		line(b, "%d left:", s.Leftovers.TotalCount)
		for _, task := range s.Leftovers.LeftoverTasks {
			line(b, "  - %s", withNote(task.Title, task.Note))
		}
	}

	section(b, "Stats")
	st := s.Stats
	line(b, "Steps: %d total, %d completed, %d stuck, %d abandoned", st.TotalSteps, st.CompletedSteps, st.StuckCount, st.AbandonCount)
	line(b, "Sessions: %d", st.SessionCount)
	line(b, "Focus minutes: %.1f", st.TotalFocusMinutes)
	line(b, "Flow minutes: %.1f", st.TotalFlowMinutes)
	if st.AvgEstimateDeltaSeconds != nil {
		line(b, "Average estimate delta: %+.1fs", *st.AvgEstimateDeltaSeconds)
	} else {
		line(b, "Average estimate delta: n/a")
	}
	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n", title)
}

func line(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.Format(clockLayout)
}

func seconds(v int) string {
	if v >= 60 {
		return fmt.Sprintf("%dm%02ds", v/60, v%60)
	}
	return fmt.Sprintf("%ds", v)
}

func withNote(title, note string) string {
	if note == "" {
		return title
	}
	return title + " (" + note + ")"
}
