package dto

type BrainDumpInput struct {
	// Entries are task titles, optionally "title :: note".
	Entries []string
	// Replace drops the existing plan instead of adding to it.
	Replace bool
}

type TaskOutput struct {
	ID    string
	Slug  string
	Title string
	Note  string
	Done  bool
	// Date is the day of the plan the task belongs to.
	Date string
}

type PlanOutput struct {
	Date  string
	Path  string
	Tasks []TaskOutput
}

type LeftoversOutput struct {
	Date  string
	Tasks []TaskOutput
}
