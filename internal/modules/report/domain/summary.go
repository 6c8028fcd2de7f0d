package domain

import (
	"math"
	"time"

	"github.com/samber/lo"

	tracking "microstep/internal/modules/tracking/domain"
)

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepStuck     StepStatus = "stuck"
	StepAbandoned StepStatus = "abandoned"
)

// PlanningSnapshot keeps the latest planning fact of each kind.
type PlanningSnapshot struct {
	BrainDump     *tracking.BrainDump
	FocusSelected *tracking.FocusSelected
	FirstMicro    *tracking.FirstMicro
}

type TrailStep struct {
	Status      StepStatus
	At          time.Time
	SessionID   string
	TaskID      string
	MicroAction string
	// ElapsedSeconds is the actual time for completed steps and the time
	// spent before getting stuck or leaving otherwise.
	ElapsedSeconds   int
	EstimatedSeconds *int
	TimeDeltaSeconds *int
}

type FlowRecord struct {
	SessionID          string
	TaskID             string
	TaskTitle          string
	LastMicroAction    string
	CompletedStepCount int
	EnteredAt          time.Time
	DurationSeconds    int
	EndReason          string
}

type StuckRecord struct {
	SessionID        string
	TaskID           string
	MicroAction      string
	At               time.Time
	Reason           string
	ReasonSource     tracking.Source
	Empathy          string
	PivotSuggestions []string
	ChosenPivot      string
	PivotSource      tracking.Source
	PivotAt          time.Time
	// Rescued is nil while no pivot was chosen.
	Rescued *bool
}

type Abandonment struct {
	At time.Time
	tracking.AbandonExit
}

type MacroClosure struct {
	At time.Time
	tracking.MacroCompleted
}

type Stats struct {
	TotalSteps              int      `yaml:"total_steps"`
	CompletedSteps          int      `yaml:"completed_steps"`
	StuckCount              int      `yaml:"stuck_count"`
	AbandonCount            int      `yaml:"abandon_count"`
	SessionCount            int      `yaml:"session_count"`
	TotalFlowMinutes        float64  `yaml:"total_flow_minutes"`
	TotalFocusMinutes       float64  `yaml:"total_focus_minutes"`
	AvgEstimateDeltaSeconds *float64 `yaml:"avg_estimate_delta_seconds,omitempty"`
}

// DailySummary is rebuilt from one day's events and never stored on its own.
type DailySummary struct {
	Date         string
	EventCount   int
	Planning     PlanningSnapshot
	Trail        []TrailStep
	Flows        []FlowRecord
	Stucks       []StuckRecord
	Abandonments []Abandonment
	Macro        []MacroClosure
	Leftovers    *tracking.DailyLeftovers
	Stats        Stats
}

type Options struct {
	// KeepDuplicates disables the by-id dedupe of redelivered events.
	KeepDuplicates bool
}

// Build aggregates events in the order given. It does not modify events.
func Build(date string, events []tracking.TrackEvent) DailySummary {
	return BuildWith(date, events, Options{})
}

func BuildWith(date string, events []tracking.TrackEvent, opts Options) DailySummary {
	if !opts.KeepDuplicates {
		events = lo.UniqBy(events, func(e tracking.TrackEvent) string { return e.ID })
	}
	summary := DailySummary{
		Date:         date,
		EventCount:   len(events),
		Trail:        []TrailStep{},
		Flows:        []FlowRecord{},
		Stucks:       []StuckRecord{},
		Abandonments: []Abandonment{},
		Macro:        []MacroClosure{},
	}

	for _, e := range events {
		switch p := e.Payload.(type) {
		case tracking.BrainDump:
			v := p
			v.Tasks = append([]tracking.PlannedTask{}, p.Tasks...)
			summary.Planning.BrainDump = &v
		case tracking.FocusSelected:
			v := p
			summary.Planning.FocusSelected = &v
		case tracking.FirstMicro:
			v := p
			summary.Planning.FirstMicro = &v
		case tracking.MicroCompleted:
			summary.Trail = append(summary.Trail, completedStep(e.Timestamp, p))
		case tracking.StuckTriggered:
			summary.Trail = append(summary.Trail, TrailStep{
				Status:         StepStuck,
				At:             e.Timestamp,
				SessionID:      p.SessionID,
				TaskID:         p.TaskID,
				MicroAction:    p.MicroAction,
				ElapsedSeconds: p.ElapsedSeconds,
			})
		case tracking.AbandonExit:
			summary.Trail = append(summary.Trail, TrailStep{
				Status:         StepAbandoned,
				At:             e.Timestamp,
				SessionID:      p.SessionID,
				TaskID:         p.TaskID,
				MicroAction:    p.MicroAction,
				ElapsedSeconds: p.ElapsedSeconds,
			})
			summary.Abandonments = append(summary.Abandonments, Abandonment{At: e.Timestamp, AbandonExit: p})
		case tracking.MacroCompleted:
			summary.Macro = append(summary.Macro, MacroClosure{At: e.Timestamp, MacroCompleted: p})
		case tracking.DailyLeftovers:
			v := p
			v.LeftoverTasks = append([]tracking.PlannedTask{}, p.LeftoverTasks...)
			summary.Leftovers = &v
		}
	}
	summary.Flows = pairFlows(events)
	summary.Stucks = pairStucks(events)
	summary.Stats = computeStats(summary, events)
	return summary
}

func completedStep(at time.Time, p tracking.MicroCompleted) TrailStep {
	step := TrailStep{
		Status:         StepCompleted,
		At:             at,
		SessionID:      p.SessionID,
		TaskID:         p.TaskID,
		MicroAction:    p.MicroAction,
		ElapsedSeconds: p.ActualSeconds,
	}
	if p.EstimatedSeconds != nil {
		estimate := *p.EstimatedSeconds
		delta := p.ActualSeconds - estimate
		step.EstimatedSeconds = &estimate
		step.TimeDeltaSeconds = &delta
	}
	return step
}

// pairFlows matches each entry with the next unused end of the same session.
func pairFlows(events []tracking.TrackEvent) []FlowRecord {
	flows := []FlowRecord{}
	used := map[int]bool{}
	for i, e := range events {
		entered, ok := e.Payload.(tracking.FlowEntered)
		if !ok {
			continue
		}
		record := FlowRecord{
			SessionID:          entered.SessionID,
			TaskID:             entered.TaskID,
			TaskTitle:          entered.TaskTitle,
			LastMicroAction:    entered.LastMicroAction,
			CompletedStepCount: entered.CompletedStepCount,
			EnteredAt:          e.Timestamp,
		}
		for j := i + 1; j < len(events); j++ {
			ended, ok := events[j].Payload.(tracking.FlowEnded)
			if !ok || used[j] || ended.SessionID != entered.SessionID {
				continue
			}
			used[j] = true
			record.DurationSeconds = ended.FlowDurationSeconds
			record.EndReason = ended.EndReason
			break
		}
		flows = append(flows, record)
	}
	return flows
}

// pairStucks matches each stuck reason with the first pivot of the same
// session chosen strictly after it.
func pairStucks(events []tracking.TrackEvent) []StuckRecord {
	stucks := []StuckRecord{}
	used := map[int]bool{}
	for _, e := range events {
		reason, ok := e.Payload.(tracking.StuckReason)
		if !ok {
			continue
		}
		record := StuckRecord{
			SessionID:        reason.SessionID,
			TaskID:           reason.TaskID,
			MicroAction:      reason.MicroAction,
			At:               e.Timestamp,
			Reason:           reason.Reason,
			ReasonSource:     reason.ReasonSource,
			PivotSuggestions: []string{},
		}
		// An offer belongs to this reason only if it comes before the next
		// reason of the session and no later than the pivot that answered it.
		var until []time.Time
		if next, ok := firstAfter[tracking.StuckReason](events, reason.SessionID, e.Timestamp, false); ok {
			until = append(until, next.Timestamp)
		}
		chosenIdx := -1
		for j, c := range events {
			p, ok := c.Payload.(tracking.PivotChosen)
			if ok && !used[j] && p.SessionID == reason.SessionID && c.Timestamp.After(e.Timestamp) {
				chosenIdx = j
				break
			}
		}
		if chosenIdx >= 0 {
			used[chosenIdx] = true
			chosen := events[chosenIdx]
			p := chosen.Payload.(tracking.PivotChosen)
			record.ChosenPivot = p.ChosenPivot
			record.PivotSource = p.PivotSource
			record.PivotAt = chosen.Timestamp
			until = append(until, chosen.Timestamp.Add(time.Nanosecond))
			_, rescued := firstAfter[tracking.MicroCompleted](events, reason.SessionID, chosen.Timestamp, false)
			record.Rescued = &rescued
		}
		if offered, ok := firstAfter[tracking.PivotOffered](events, reason.SessionID, e.Timestamp, true); ok && beforeAll(offered.Timestamp, until) {
			p := offered.Payload.(tracking.PivotOffered)
			record.Empathy = p.Empathy
			record.PivotSuggestions = append(record.PivotSuggestions, p.PivotSuggestions...)
		}
		stucks = append(stucks, record)
	}
	return stucks
}

func beforeAll(t time.Time, bounds []time.Time) bool {
	return lo.EveryBy(bounds, func(b time.Time) bool { return t.Before(b) })
}

// firstAfter finds the first event of payload type P in session that is
// later than since, or at the same instant when inclusive is set.
func firstAfter[P tracking.Payload](events []tracking.TrackEvent, session string, since time.Time, inclusive bool) (tracking.TrackEvent, bool) {
	for _, e := range events {
		p, ok := e.Payload.(P)
		if !ok || tracking.SessionOf(p) != session {
			continue
		}
		if e.Timestamp.After(since) || (inclusive && e.Timestamp.Equal(since)) {
			return e, true
		}
	}
	return tracking.TrackEvent{}, false
}

func computeStats(summary DailySummary, events []tracking.TrackEvent) Stats {
	stats := Stats{}
	for _, step := range summary.Trail {
		switch step.Status {
		case StepCompleted:
			stats.CompletedSteps++
		case StepStuck:
			stats.StuckCount++
		case StepAbandoned:
			stats.AbandonCount++
		}
	}
	stats.TotalSteps = len(summary.Trail)

	flowSeconds := lo.SumBy(summary.Flows, func(f FlowRecord) int { return f.DurationSeconds })
	stats.TotalFlowMinutes = minutes(flowSeconds)

	focusSeconds := 0
	for _, e := range events {
		switch p := e.Payload.(type) {
		case tracking.SessionStarted:
			stats.SessionCount++
		case tracking.SessionEnded:
			focusSeconds += p.TotalDurationSeconds
		}
	}
	stats.TotalFocusMinutes = minutes(focusSeconds)

	deltas := lo.FilterMap(summary.Trail, func(step TrailStep, _ int) (int, bool) {
		if step.TimeDeltaSeconds == nil {
			return 0, false
		}
		return *step.TimeDeltaSeconds, true
	})
	if len(deltas) > 0 {
		avg := math.Round(float64(lo.Sum(deltas))/float64(len(deltas))*10) / 10
		stats.AvgEstimateDeltaSeconds = &avg
	}
	return stats
}

// minutes rounds to one decimal so repeated builds compare equal.
func minutes(seconds int) float64 {
	return math.Round(float64(seconds)/60*10) / 10
}
