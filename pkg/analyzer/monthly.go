package analyzer

import (
	"sort"
	"time"

	"github.com/stefanpenner/testpulse/pkg/runs"
)

// BuildMonthlyRunDetail reconciles planCases against the executions near date.
// The matching window starts at the target day and widens by one day on each
// side until some plan case has an execution in it, up to maxBufferDays.
func BuildMonthlyRunDetail(date time.Time, planCases []string, executions map[string][]Execution, maxBufferDays int) MonthlyRunDetail {
	if maxBufferDays < 0 {
		maxBufferDays = 0
	}
	plan := uniqueIDs(planCases)
	inPlan := make(map[string]struct{}, len(plan))
	for _, id := range plan {
		inPlan[id] = struct{}{}
	}

	var (
		buffer   int
		windowed map[string][]Execution
	)
	for buffer = 0; buffer <= maxBufferDays; buffer++ {
		windowed = executionsNear(date, buffer, executions)
		if anyPlanned(windowed, inPlan) {
			break
		}
	}
	if buffer > maxBufferDays {
		buffer = maxBufferDays
	}

	detail := MonthlyRunDetail{
		Date:          truncateDay(date).Format(time.DateOnly),
		TestCaseCount: len(plan),
		BufferDays:    buffer,
		Found:         []string{},
		NotFound:      []string{},
		Extraneous:    []string{},
		Flaky:         []FlakyTest{},
	}

	var dates []time.Time
	for _, id := range plan {
		execs, ok := windowed[id]
		if !ok {
			detail.NotFound = append(detail.NotFound, id)
			continue
		}
		detail.Found = append(detail.Found, id)
		if len(execs) > 1 {
			detail.Flaky = append(detail.Flaky, FlakyTest{TestCaseID: id, Executions: len(execs)})
		}
		for _, e := range execs {
			dates = append(dates, e.CompletedDate)
		}
	}
	for id := range windowed {
		if _, ok := inPlan[id]; !ok {
			detail.Extraneous = append(detail.Extraneous, id)
		}
	}

	sort.Strings(detail.Found)
	sort.Strings(detail.NotFound)
	sort.Strings(detail.Extraneous)
	sort.Slice(detail.Flaky, func(i, j int) bool {
		if detail.Flaky[i].Executions != detail.Flaky[j].Executions {
			return detail.Flaky[i].Executions > detail.Flaky[j].Executions
		}
		return detail.Flaky[i].TestCaseID < detail.Flaky[j].TestCaseID
	})

	detail.PassRate = CalculatePassRates(detail.Found, windowed)
	detail.Boundary = ResolveExecutionBoundary(dates)
	return detail
}

func executionsNear(date time.Time, buffer int, executions map[string][]Execution) map[string][]Execution {
	out := map[string][]Execution{}
	for id, execs := range executions {
		for _, e := range execs {
			if runs.DayDistance(date, e.CompletedDate) <= buffer {
				out[id] = append(out[id], e)
			}
		}
	}
	return out
}

func anyPlanned(windowed map[string][]Execution, inPlan map[string]struct{}) bool {
	for id := range windowed {
		if _, ok := inPlan[id]; ok {
			return true
		}
	}
	return false
}
