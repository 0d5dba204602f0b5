package analyzer

import (
	"sort"
	"time"

	"github.com/stefanpenner/testpulse/pkg/runs"
)

// DefaultChangepointWindowDays is the width of the window used to collapse
// nearby derivatives into one changepoint.
const DefaultChangepointWindowDays = 14

// CalculateDerivatives returns the day-over-day change of each consecutive
// pair. Fewer than two points yield an empty slice.
func CalculateDerivatives(days []DayData) []Derivative {
	if len(days) < 2 {
		return []Derivative{}
	}
	out := make([]Derivative, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1], days[i]
		out = append(out, Derivative{
			Date:   cur.Date,
			Change: cur.Total - prev.Total,
			Before: prev.Total,
			After:  cur.Total,
		})
	}
	return out
}

// GroupWeekWindows splits chronologically ordered derivatives into groups
// whose members fall within windowDays of the group's first member.
func GroupWeekWindows(derivatives []Derivative, windowDays int) [][]Derivative {
	if windowDays <= 0 {
		windowDays = DefaultChangepointWindowDays
	}
	groups := make([][]Derivative, 0)
	var current []Derivative
	for _, d := range derivatives {
		if len(current) > 0 && runs.DayDistance(current[0].Date, d.Date) <= windowDays {
			current = append(current, d)
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
		current = []Derivative{d}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// SelectRepresentative picks the member whose date is closest to the midpoint
// of the group's first and last dates. Ties keep the earlier member.
func SelectRepresentative(group []Derivative) (Derivative, bool) {
	if len(group) == 0 {
		return Derivative{}, false
	}
	first := group[0].Date
	last := group[len(group)-1].Date
	mid := first.Add(last.Sub(first) / 2)

	best := group[0]
	bestDist := absDuration(best.Date.Sub(mid))
	for _, d := range group[1:] {
		if dist := absDuration(d.Date.Sub(mid)); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, true
}

// ReduceChangepoints collapses derivatives into one representative per window.
func ReduceChangepoints(derivatives []Derivative, windowDays int) []Derivative {
	groups := GroupWeekWindows(derivatives, windowDays)
	out := make([]Derivative, 0, len(groups))
	for _, g := range groups {
		if rep, ok := SelectRepresentative(g); ok {
			out = append(out, rep)
		}
	}
	return out
}

// DailyTotals sums TotalTests per UTC calendar day of each run's start,
// ascending by day.
func DailyTotals(testRuns []runs.TestRun) []DayData {
	byDay := map[time.Time]int{}
	for _, run := range testRuns {
		byDay[truncateDay(run.StartedDate)] += run.TotalTests
	}
	out := make([]DayData, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, DayData{Date: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
