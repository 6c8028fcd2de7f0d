package dto

import "time"

type StartInput struct {
	// TaskRef is a plan task id or slug.
	TaskRef string
}

type ActionInput struct {
	Label            string
	Source           string
	EstimatedSeconds int
	SubtaskID        string
	SubtaskTitle     string
}

type ReasonInput struct {
	Reason string
	Source string
}

type SessionOutput struct {
	Phase          string
	TaskID         string
	TaskTitle      string
	TaskNote       string
	SessionID      string
	Label          string
	SubtaskTitle   string
	StartedAt      time.Time
	EstimatedSecs  int
	IsFlowMode     bool
	History        []string
	PendingReason  string
	Empathy        string
	Pivots         []string
	ElapsedSeconds int
}

type SuggestionsOutput struct {
	Items []string
	// Err describes why no suggestions came back. It is informational.
	Err   string
	Stale bool
}

type PivotOutput struct {
	Session SessionOutput
	Empathy string
	Pivots  []string
	Err     string
	Stale   bool
}
