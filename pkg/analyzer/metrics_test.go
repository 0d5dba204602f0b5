package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stefanpenner/testpulse/pkg/runs"
)

func TestSummarizeSessions(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		summary := SummarizeSessions(nil)
		assert.Equal(t, SessionSummary{}, summary)
	})

	t.Run("skips sessions without tests", func(t *testing.T) {
		groups := []runs.TestRunGroup{
			{Runs: make([]runs.TestRun, 2), Totals: runs.Totals{TotalTests: 4, PassedTests: 4}},
			{Runs: make([]runs.TestRun, 1), Totals: runs.Totals{TotalTests: 3, PassedTests: 2}},
			{Runs: make([]runs.TestRun, 1), Totals: runs.Totals{TotalTests: 4, PassedTests: 2}},
			{Runs: make([]runs.TestRun, 1)},
		}
		summary := SummarizeSessions(groups)
		assert.Equal(t, 4, summary.Sessions)
		assert.Equal(t, 5, summary.Runs)
		assert.Equal(t, 66.67, summary.MedianPassRate)
		assert.Equal(t, 72.22, summary.MeanPassRate)
		assert.Equal(t, 50.0, summary.MinPassRate)
		assert.Equal(t, 100.0, summary.MaxPassRate)
	})
}

func TestPercentage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, percentage(3, 0))
	assert.Equal(t, 33.33, percentage(1, 3))
	assert.Equal(t, 66.67, percentage(2, 3))
}
