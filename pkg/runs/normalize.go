package runs

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

const completedState = "Completed"

// TestRun is a validated run. It is only constructed by FilterAndMapTestRuns.
type TestRun struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	State            string     `json:"state"`
	StartedDate      time.Time  `json:"startedDate"`
	CompletedDate    *time.Time `json:"completedDate,omitempty"`
	TotalTests       int        `json:"totalTests"`
	PassedTests      int        `json:"passedTests"`
	FailedTests      int        `json:"failedTests"`
	NotExecutedTests int        `json:"notExecutedTests"`
}

// NormalizeOptions controls which raw runs survive normalization.
type NormalizeOptions struct {
	// VersionMarkers are substrings of which at least one must appear in a
	// run's name. Matching is case-sensitive.
	VersionMarkers []string
}

// FilterAndMapTestRuns keeps completed runs with a parseable start date and a
// recognized version marker, coerces their counts and sorts them by start
// date. Records that don't qualify are dropped without error.
func FilterAndMapTestRuns(records []telemetry.RawRecord, opts NormalizeOptions) []TestRun {
	out := make([]TestRun, 0, len(records))
	for _, rec := range records {
		run, ok := mapRecord(rec, opts)
		if !ok {
			continue
		}
		out = append(out, run)
	}
	if dropped := len(records) - len(out); dropped > 0 {
		logrus.WithField("dropped", dropped).WithField("kept", len(out)).Debug("Dropped raw run records")
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedDate.Before(out[j].StartedDate)
	})
	return out
}

func mapRecord(rec telemetry.RawRecord, opts NormalizeOptions) (TestRun, bool) {
	if rec == nil {
		return TestRun{}, false
	}
	state := stringField(rec, "state")
	if state != completedState {
		return TestRun{}, false
	}
	started, ok := telemetry.ParseTime(stringField(rec, "startedDate"))
	if !ok {
		return TestRun{}, false
	}
	name := stringField(rec, "name")
	if !hasMarker(name, opts.VersionMarkers) {
		return TestRun{}, false
	}

	run := TestRun{
		ID:               stringField(rec, "id"),
		Name:             name,
		State:            state,
		StartedDate:      started,
		TotalTests:       intField(rec, "totalTests"),
		PassedTests:      intField(rec, "passedTests"),
		FailedTests:      intField(rec, "failedTests"),
		NotExecutedTests: intField(rec, "notExecutedTests"),
	}
	if rec["notExecutedTests"] == nil {
		run.NotExecutedTests = intField(rec, "incompleteTests")
	}
	if completed, ok := telemetry.ParseTime(stringField(rec, "completedDate")); ok {
		run.CompletedDate = &completed
	}
	return run, true
}

func hasMarker(name string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func stringField(rec telemetry.RawRecord, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// intField reads a count that may arrive as a number or a numeric string.
// Missing, unparseable, negative and out-of-range values become 0.
func intField(rec telemetry.RawRecord, key string) int {
	var f float64
	switch v := rec[key].(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f < 0 || f >= float64(math.MaxInt) {
		return 0
	}
	return int(f)
}
