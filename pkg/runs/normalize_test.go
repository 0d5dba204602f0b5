package runs

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

var markers = NormalizeOptions{VersionMarkers: []string{"v2.", "R24"}}

func TestFilterAndMapTestRunsDropsGarbage(t *testing.T) {
	t.Parallel()

	records := []telemetry.RawRecord{
		{"id": json.Number("1"), "name": "Nightly v2.3", "state": "InProgress", "startedDate": "2025-01-02T10:00:00Z"},
		{"id": json.Number("2"), "name": "Nightly v2.3", "state": "Completed", "startedDate": "not a date"},
		{"id": json.Number("3"), "name": "Nightly legacy", "state": "Completed", "startedDate": "2025-01-03T10:00:00Z"},
		{"id": json.Number("4"), "name": "Nightly v2.3", "state": "Completed", "startedDate": "2025-01-04T10:00:00Z",
			"totalTests": "4", "passedTests": "3", "failedTests": "1", "notExecutedTests": "0"},
		nil,
		{"id": "5", "name": "R24 smoke", "state": "Completed"},
	}

	got := FilterAndMapTestRuns(records, markers)
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, 4, got[0].TotalTests)
	assert.Equal(t, 3, got[0].PassedTests)
	assert.Equal(t, 1, got[0].FailedTests)
	assert.Equal(t, 0, got[0].NotExecutedTests)
	assert.Nil(t, got[0].CompletedDate)
}

func TestFilterAndMapTestRunsCoercesCounts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		record   telemetry.RawRecord
		expected TestRun
	}{
		{
			name:     "json numbers",
			record:   telemetry.RawRecord{"totalTests": json.Number("10"), "passedTests": json.Number("8"), "failedTests": json.Number("2"), "notExecutedTests": json.Number("0")},
			expected: TestRun{TotalTests: 10, PassedTests: 8, FailedTests: 2},
		},
		{
			name:     "float64 from a plain decoder",
			record:   telemetry.RawRecord{"totalTests": 5.0, "passedTests": 5.0},
			expected: TestRun{TotalTests: 5, PassedTests: 5},
		},
		{
			name:     "garbage and negatives become zero",
			record:   telemetry.RawRecord{"totalTests": "lots", "passedTests": -3, "failedTests": true},
			expected: TestRun{},
		},
		{
			name:     "incompleteTests fallback",
			record:   telemetry.RawRecord{"totalTests": "6", "incompleteTests": "2"},
			expected: TestRun{TotalTests: 6, NotExecutedTests: 2},
		},
		{
			name:     "null primary falls back",
			record:   telemetry.RawRecord{"notExecutedTests": nil, "incompleteTests": "4"},
			expected: TestRun{NotExecutedTests: 4},
		},
		{
			name:     "out of range counts become zero",
			record:   telemetry.RawRecord{"totalTests": json.Number("1e30"), "passedTests": "1e30", "failedTests": math.Inf(1), "notExecutedTests": 1e19},
			expected: TestRun{},
		},
		{
			name:     "primary field wins over fallback",
			record:   telemetry.RawRecord{"notExecutedTests": "1", "incompleteTests": "9"},
			expected: TestRun{NotExecutedTests: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := telemetry.RawRecord{"id": "x", "name": "v2.1 run", "state": "Completed", "startedDate": "2025-03-01"}
			for k, v := range tc.record {
				rec[k] = v
			}
			got := FilterAndMapTestRuns([]telemetry.RawRecord{rec}, markers)
			require.Len(t, got, 1)
			assert.Equal(t, tc.expected.TotalTests, got[0].TotalTests)
			assert.Equal(t, tc.expected.PassedTests, got[0].PassedTests)
			assert.Equal(t, tc.expected.FailedTests, got[0].FailedTests)
			assert.Equal(t, tc.expected.NotExecutedTests, got[0].NotExecutedTests)
		})
	}
}

func TestFilterAndMapTestRunsSortsByStart(t *testing.T) {
	t.Parallel()

	records := []telemetry.RawRecord{
		{"id": "late", "name": "R24", "state": "Completed", "startedDate": "2025-01-10T00:00:00Z", "completedDate": "2025-01-10T01:00:00Z"},
		{"id": "early", "name": "R24", "state": "Completed", "startedDate": "2025-01-01T00:00:00Z"},
		{"id": "middle-a", "name": "R24", "state": "Completed", "startedDate": "2025-01-05T00:00:00Z"},
		{"id": "middle-b", "name": "R24", "state": "Completed", "startedDate": "2025-01-05T00:00:00Z"},
	}

	got := FilterAndMapTestRuns(records, markers)
	require.Len(t, got, 4)
	ids := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	assert.Equal(t, []string{"early", "middle-a", "middle-b", "late"}, ids)
	require.NotNil(t, got[3].CompletedDate)
	assert.Equal(t, time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC), *got[3].CompletedDate)
}

func TestFilterAndMapTestRunsMarkersAreCaseSensitive(t *testing.T) {
	t.Parallel()

	records := []telemetry.RawRecord{
		{"id": "1", "name": "r24 nightly", "state": "Completed", "startedDate": "2025-01-01"},
		{"id": "2", "name": "Nightly", "state": "Completed", "startedDate": "2025-01-01"},
	}
	assert.Empty(t, FilterAndMapTestRuns(records, markers))
	assert.Empty(t, FilterAndMapTestRuns(records, NormalizeOptions{}), "no markers means nothing matches")
	assert.NotNil(t, FilterAndMapTestRuns(nil, markers))
}
