package analyzer

import (
	"github.com/montanaflynn/stats"

	"github.com/stefanpenner/testpulse/pkg/runs"
)

// SummarizeSessions reports the spread of per-session pass rates. Sessions
// that ran no tests are skipped.
func SummarizeSessions(groups []runs.TestRunGroup) SessionSummary {
	summary := SessionSummary{Sessions: len(groups)}
	rates := make(stats.Float64Data, 0, len(groups))
	for _, g := range groups {
		summary.Runs += len(g.Runs)
		if g.Totals.TotalTests == 0 {
			continue
		}
		rates = append(rates, g.Totals.PassRate())
	}
	if len(rates) == 0 {
		return summary
	}

	summary.MedianPassRate = round2(mustStat(rates.Median()))
	summary.MeanPassRate = round2(mustStat(rates.Mean()))
	summary.MinPassRate = round2(mustStat(rates.Min()))
	summary.MaxPassRate = round2(mustStat(rates.Max()))
	return summary
}

// mustStat drops the error stats returns for empty input, which callers
// have already ruled out.
func mustStat(value float64, _ error) float64 {
	return value
}

func round2(value float64) float64 {
	rounded, err := stats.Round(value, 2)
	if err != nil {
		return value
	}
	return rounded
}

// percentage is part/whole*100 rounded to two decimals, or 0 for an empty whole.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}
