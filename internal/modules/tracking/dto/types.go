package dto

import "time"

type EventsInput struct {
	Date string
	Type string
}

type EventOutput struct {
	ID        string
	Type      string
	Timestamp time.Time
	Date      string
	SessionID string
	Summary   string
}

type StatsOutput struct {
	Buffered      int
	Tracked       int
	Flushed       int
	FailedAppends int
	LastError     string
	LastFlushAt   time.Time
}

type ReindexInput struct {
	Dates []string
}

type ReindexOutput struct {
	Dates  int
	Events int
}
