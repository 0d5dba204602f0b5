package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthlyRunDetail(t *testing.T) {
	t.Parallel()

	target := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	at := func(days int, outcome string) Execution {
		return Execution{Outcome: outcome, CompletedDate: target.AddDate(0, 0, days).Add(3 * time.Hour)}
	}

	t.Run("exact day match", func(t *testing.T) {
		detail := BuildMonthlyRunDetail(target, []string{"1", "2", "3"}, map[string][]Execution{
			"1": {at(0, "Failed"), at(0, "Passed")},
			"2": {at(0, "Passed")},
			"9": {at(0, "Passed")},
			"3": {at(5, "Passed")},
		}, 3)

		assert.Equal(t, "2025-04-10", detail.Date)
		assert.Equal(t, 3, detail.TestCaseCount)
		assert.Equal(t, 0, detail.BufferDays)
		assert.Equal(t, []string{"1", "2"}, detail.Found)
		assert.Equal(t, []string{"3"}, detail.NotFound)
		assert.Equal(t, []string{"9"}, detail.Extraneous)
		assert.Equal(t, []FlakyTest{{TestCaseID: "1", Executions: 2}}, detail.Flaky)
		assert.Equal(t, 1, detail.PassRate.InitialPassedCount)
		assert.Equal(t, 2, detail.PassRate.FinalPassedCount)
		require.NotNil(t, detail.Boundary.StartDate)
		assert.Equal(t, "2025-04-10", *detail.Boundary.StartDate)
	})

	t.Run("buffer widens until a plan case matches", func(t *testing.T) {
		detail := BuildMonthlyRunDetail(target, []string{"1", "2"}, map[string][]Execution{
			"1": {at(-2, "Passed")},
			"2": {at(5, "Passed")},
			"7": {at(-1, "Passed")},
		}, 3)

		assert.Equal(t, 2, detail.BufferDays)
		assert.Equal(t, []string{"1"}, detail.Found)
		assert.Equal(t, []string{"2"}, detail.NotFound)
		assert.Equal(t, []string{"7"}, detail.Extraneous)
	})

	t.Run("nothing within max buffer", func(t *testing.T) {
		detail := BuildMonthlyRunDetail(target, []string{"1"}, map[string][]Execution{
			"1": {at(10, "Passed")},
		}, 3)

		assert.Equal(t, 3, detail.BufferDays)
		assert.Empty(t, detail.Found)
		assert.Equal(t, []string{"1"}, detail.NotFound)
		assert.Equal(t, PassRateResult{}, detail.PassRate)
		assert.Nil(t, detail.Boundary.StartDate)
	})

	t.Run("flaky ordered by count then id", func(t *testing.T) {
		detail := BuildMonthlyRunDetail(target, []string{"a", "b", "c"}, map[string][]Execution{
			"a": {at(0, "Passed"), at(0, "Passed")},
			"b": {at(0, "Passed"), at(0, "Failed"), at(0, "Passed")},
			"c": {at(0, "Passed"), at(0, "Passed")},
		}, 0)

		assert.Equal(t, []FlakyTest{
			{TestCaseID: "b", Executions: 3},
			{TestCaseID: "a", Executions: 2},
			{TestCaseID: "c", Executions: 2},
		}, detail.Flaky)
	})
}
