package dto

type ReportInput struct {
	// Date is YYYY-MM-DD. Empty means today.
	Date string
}

type SummaryOutput struct {
	Date                    string
	EventCount              int
	TotalSteps              int
	CompletedSteps          int
	StuckCount              int
	RescuedCount            int
	AbandonCount            int
	SessionCount            int
	MacroCompleted          int
	LeftoverCount           int
	TotalFlowMinutes        float64
	TotalFocusMinutes       float64
	AvgEstimateDeltaSeconds *float64
}

type NarrativeOutput struct {
	Date string
	Text string
}

type ExportOutput struct {
	Date string
	Path string
}
