package runs

import (
	"sort"
	"time"
)

// DefaultSessionDays is used when GroupTestRuns receives a non-positive window.
const DefaultSessionDays = 14

// Totals sums the counts of the runs in a session.
type Totals struct {
	TotalTests       int `json:"totalTests"`
	PassedTests      int `json:"passedTests"`
	FailedTests      int `json:"failedTests"`
	NotExecutedTests int `json:"notExecutedTests"`
}

func (t *Totals) add(run TestRun) {
	t.TotalTests += run.TotalTests
	t.PassedTests += run.PassedTests
	t.FailedTests += run.FailedTests
	t.NotExecutedTests += run.NotExecutedTests
}

// PassRate is passed/total as a percentage, or 0 when the session has no tests.
func (t Totals) PassRate() float64 {
	if t.TotalTests == 0 {
		return 0
	}
	return float64(t.PassedTests) / float64(t.TotalTests) * 100
}

// TestRunGroup is a session: runs whose start falls within a fixed number of
// days of the first run's start.
type TestRunGroup struct {
	AnchorDate time.Time `json:"anchorDate"`
	Runs       []TestRun `json:"runs"`
	Totals     Totals    `json:"totals"`
}

// GroupTestRuns buckets chronologically sorted runs into sessions. A run joins
// the open session while its calendar-day distance from the anchor is at most
// sessionDays; the window is anchored, not sliding. Sessions are returned most
// recent first.
func GroupTestRuns(runs []TestRun, sessionDays int) []TestRunGroup {
	if sessionDays <= 0 {
		sessionDays = DefaultSessionDays
	}

	groups := make([]TestRunGroup, 0)
	var current *TestRunGroup
	for _, run := range runs {
		if current != nil && DayDistance(current.AnchorDate, run.StartedDate) <= sessionDays {
			current.Runs = append(current.Runs, run)
			current.Totals.add(run)
			continue
		}
		if current != nil {
			groups = append(groups, *current)
		}
		current = &TestRunGroup{AnchorDate: run.StartedDate, Runs: []TestRun{run}}
		current.Totals.add(run)
	}
	if current != nil {
		groups = append(groups, *current)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].AnchorDate.After(groups[j].AnchorDate)
	})
	return groups
}

// DayDistance is the absolute number of UTC calendar days between a and b.
func DayDistance(a, b time.Time) int {
	da := calendarDay(a)
	db := calendarDay(b)
	days := int(db.Sub(da).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
