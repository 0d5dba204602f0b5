package analyzer

import (
	"sort"
	"strings"
	"time"
)

const passedOutcome = "Passed"

// CalculatePassRates counts, for each found test case, whether its first and
// last chronological execution passed. Cases without executions still count
// toward TotalTestsFound. Both rates are 0 when nothing was found.
func CalculatePassRates(found []string, executions map[string][]Execution) PassRateResult {
	ids := uniqueIDs(found)
	result := PassRateResult{TotalTestsFound: len(ids)}

	for _, id := range ids {
		execs := sortedExecutions(executions[id])
		if len(execs) == 0 {
			continue
		}
		if isPass(execs[0].Outcome) {
			result.InitialPassedCount++
		}
		if isPass(execs[len(execs)-1].Outcome) {
			result.FinalPassedCount++
		}
	}

	result.InitialPassRate = percentage(result.InitialPassedCount, result.TotalTestsFound)
	result.FinalPassRate = percentage(result.FinalPassedCount, result.TotalTestsFound)
	return result
}

func sortedExecutions(execs []Execution) []Execution {
	out := append([]Execution(nil), execs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedDate.Before(out[j].CompletedDate)
	})
	return out
}

func isPass(outcome string) bool {
	return strings.EqualFold(strings.TrimSpace(outcome), passedOutcome)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ResolveExecutionBoundary returns the first and last distinct UTC day among
// dates and the whole days between them.
func ResolveExecutionBoundary(dates []time.Time) ExecutionBoundary {
	var first, last time.Time
	for i, d := range dates {
		day := truncateDay(d)
		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}
	if len(dates) == 0 {
		return ExecutionBoundary{}
	}

	start := first.Format(time.DateOnly)
	end := last.Format(time.DateOnly)
	duration := int(last.Sub(first) / (24 * time.Hour))
	return ExecutionBoundary{StartDate: &start, EndDate: &end, DurationDays: &duration}
}
