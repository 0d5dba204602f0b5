package analyzer

import "time"

// DayData is the total test count observed on one calendar day.
type DayData struct {
	Date  time.Time `json:"date"`
	Total int       `json:"total"`
}

// Derivative is the change between two consecutive DayData points, dated at
// the later one.
type Derivative struct {
	Date   time.Time `json:"date"`
	Change int       `json:"change"`
	Before int       `json:"before"`
	After  int       `json:"after"`
}

// Execution is one recorded outcome of a test case.
type Execution struct {
	Outcome       string    `json:"outcome"`
	CompletedDate time.Time `json:"completedDate"`
}

// PassRateResult compares how found test cases fared on their first and last
// execution in a period. Rates are percentages rounded to two decimals.
type PassRateResult struct {
	InitialPassRate    float64 `json:"initialPassRate"`
	FinalPassRate      float64 `json:"finalPassRate"`
	InitialPassedCount int     `json:"initialPassedCount"`
	FinalPassedCount   int     `json:"finalPassedCount"`
	TotalTestsFound    int     `json:"totalTestsFound"`
}

// ExecutionBoundary is the first and last execution day of a period. All
// fields are nil when the period had no executions.
type ExecutionBoundary struct {
	StartDate    *string `json:"startDate"`
	EndDate      *string `json:"endDate"`
	DurationDays *int    `json:"durationDays"`
}

// FlakyTest is a test case that executed more than once in a period.
type FlakyTest struct {
	TestCaseID string `json:"testCaseId"`
	Executions int    `json:"executions"`
}

// MonthlyRunDetail reconciles a test plan against the executions found around
// one target date.
type MonthlyRunDetail struct {
	Date          string            `json:"date"`
	TestCaseCount int               `json:"testCaseCount"`
	BufferDays    int               `json:"bufferDays"`
	Found         []string          `json:"found"`
	NotFound      []string          `json:"notFound"`
	Extraneous    []string          `json:"extraneous"`
	Flaky         []FlakyTest       `json:"flaky"`
	PassRate      PassRateResult    `json:"passRate"`
	Boundary      ExecutionBoundary `json:"boundary"`
}

// SessionSummary describes the spread of pass rates across sessions.
type SessionSummary struct {
	Sessions       int     `json:"sessions"`
	Runs           int     `json:"runs"`
	MedianPassRate float64 `json:"medianPassRate"`
	MeanPassRate   float64 `json:"meanPassRate"`
	MinPassRate    float64 `json:"minPassRate"`
	MaxPassRate    float64 `json:"maxPassRate"`
}
