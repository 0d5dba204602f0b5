package quality

import (
	"regexp"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

func intPtr(v int) *int { return &v }

func TestThresholdState(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	assert.Equal(t, Good, ThresholdState(100, th))
	assert.Equal(t, Good, ThresholdState(98, th))
	assert.Equal(t, OK, ThresholdState(97.99, th))
	assert.Equal(t, OK, ThresholdState(70, th))
	assert.Equal(t, Bad, ThresholdState(69.99, th))
	assert.Equal(t, Bad, ThresholdState(0, th))
}

func TestClassifyBuild(t *testing.T) {
	t.Parallel()

	defaults := BuildOptions{Thresholds: DefaultThresholds()}
	automation := BuildOptions{AutomationStatus: true, Thresholds: DefaultThresholds()}

	cases := []struct {
		name     string
		build    telemetry.Build
		opts     BuildOptions
		expected QualityState
	}{
		{name: "in progress wins", build: telemetry.Build{Status: "inProgress", Result: "failed", PassedTestCount: intPtr(0), FailedTestCount: intPtr(10)}, opts: automation, expected: InProgress},
		{name: "all passed", build: telemetry.Build{Status: "completed", PassedTestCount: intPtr(10), FailedTestCount: intPtr(0)}, opts: defaults, expected: Good},
		{name: "seventy percent", build: telemetry.Build{Status: "completed", PassedTestCount: intPtr(7), FailedTestCount: intPtr(3)}, opts: defaults, expected: OK},
		{name: "sixty percent", build: telemetry.Build{Status: "completed", PassedTestCount: intPtr(6), FailedTestCount: intPtr(4)}, opts: defaults, expected: Bad},
		{name: "counts missing", build: telemetry.Build{Status: "completed"}, opts: defaults, expected: Unknown},
		{name: "one count missing", build: telemetry.Build{Status: "completed", PassedTestCount: intPtr(3)}, opts: defaults, expected: Unknown},
		{name: "zero total", build: telemetry.Build{Status: "completed", PassedTestCount: intPtr(0), FailedTestCount: intPtr(0)}, opts: defaults, expected: Unknown},
		{name: "canceled ignored without automation", build: telemetry.Build{Status: "completed", Result: "canceled"}, opts: defaults, expected: Unknown},
		{name: "canceled with automation", build: telemetry.Build{Status: "completed", Result: "canceled", PassedTestCount: intPtr(10), FailedTestCount: intPtr(0)}, opts: automation, expected: Interrupted},
		{name: "postponed with automation", build: telemetry.Build{Status: "postponed"}, opts: automation, expected: Interrupted},
		{name: "failed with automation beats counts", build: telemetry.Build{Status: "completed", Result: "failed", PassedTestCount: intPtr(10), FailedTestCount: intPtr(0)}, opts: automation, expected: Bad},
		{name: "automation falls through to counts", build: telemetry.Build{Status: "completed", Result: "succeeded", PassedTestCount: intPtr(10), FailedTestCount: intPtr(0)}, opts: automation, expected: Good},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			build := tc.build
			got, err := ClassifyBuild(&build, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestClassifyBuildInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := ClassifyBuild(nil, BuildOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ClassifyBuild(&telemetry.Build{ID: "5"}, BuildOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "no status")
}

func envs(statuses ...string) []telemetry.ReleaseEnvironment {
	out := make([]telemetry.ReleaseEnvironment, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, telemetry.ReleaseEnvironment{Name: "Stage " + string(rune('A'+i)), Status: s})
	}
	return out
}

func TestClassifyRelease(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	cases := []struct {
		name     string
		release  telemetry.Release
		expected QualityState
	}{
		{name: "in progress beats failed", release: telemetry.Release{Environments: envs("failed", "inProgress")}, expected: InProgress},
		{name: "canceled", release: telemetry.Release{Environments: envs("succeeded", "canceled")}, expected: Interrupted},
		{name: "aborted beats failed", release: telemetry.Release{Environments: envs("failed", "aborted")}, expected: Interrupted},
		{name: "failed", release: telemetry.Release{Environments: envs("succeeded", "failed")}, expected: Bad},
		{name: "counts", release: telemetry.Release{Environments: envs("succeeded"), PassedTestCount: intPtr(99), FailedTestCount: intPtr(1)}, expected: Good},
		{name: "no counts", release: telemetry.Release{Environments: envs("succeeded")}, expected: Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			release := tc.release
			got, err := ClassifyRelease(&release, th)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := ClassifyRelease(&telemetry.Release{ID: "1"}, th)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ClassifyRelease(nil, th)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestClassifyReleaseTimeline(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * time.Hour)
	stale := now.Add(-25 * time.Hour)
	opts := TimelineOptions{Now: now, StaleAfter: 24 * time.Hour}

	env := func(name, status string) telemetry.ReleaseEnvironment {
		return telemetry.ReleaseEnvironment{Name: name, Status: status}
	}

	cases := []struct {
		name     string
		release  telemetry.Release
		expected TimelineStatus
		ok       bool
	}{
		{
			name:     "stale with rejected tests is failed",
			release:  telemetry.Release{CreatedOn: stale, Environments: []telemetry.ReleaseEnvironment{env("Deploy", "inProgress"), env("Run Tests", "rejected")}},
			expected: TimelineFailed, ok: true,
		},
		{
			name:     "fresh with rejected tests is interrupted",
			release:  telemetry.Release{CreatedOn: fresh, Environments: []telemetry.ReleaseEnvironment{env("Deploy", "succeeded"), env("Run Tests", "rejected")}},
			expected: TimelineInterrupted, ok: true,
		},
		{
			name:     "stale with bad non-test environment is interrupted",
			release:  telemetry.Release{CreatedOn: stale, Environments: []telemetry.ReleaseEnvironment{env("Deploy", "canceled"), env("Run Tests", "succeeded")}},
			expected: TimelineInterrupted, ok: true,
		},
		{
			name:     "queued is in progress",
			release:  telemetry.Release{CreatedOn: fresh, Environments: []telemetry.ReleaseEnvironment{env("Deploy", "succeeded"), env("Run Tests", "queued")}},
			expected: TimelineInProgress, ok: true,
		},
		{
			name:     "partially succeeded tests",
			release:  telemetry.Release{CreatedOn: fresh, Environments: []telemetry.ReleaseEnvironment{env("Smoke Tests", "succeeded"), env("Run Tests", "partiallySucceeded")}},
			expected: TimelinePartiallySucceeded, ok: true,
		},
		{
			name:     "all tests succeeded",
			release:  telemetry.Release{CreatedOn: fresh, Environments: []telemetry.ReleaseEnvironment{env("Deploy", "notStarted"), env("Run Tests", "succeeded")}},
			expected: TimelineSucceeded, ok: true,
		},
		{
			name:     "falls back to raw status",
			release:  telemetry.Release{Status: "abandoned", Environments: []telemetry.ReleaseEnvironment{env("Deploy", "succeeded")}},
			expected: TimelineStatus("abandoned"), ok: true,
		},
		{
			name:     "no raw status",
			release:  telemetry.Release{Environments: []telemetry.ReleaseEnvironment{env("Run Tests", "notStarted")}},
			expected: "", ok: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			release := tc.release
			got, ok, err := ClassifyReleaseTimeline(&release, opts)
			require.NoError(t, err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestClassifyReleaseTimelineCustomPattern(t *testing.T) {
	t.Parallel()

	release := &telemetry.Release{
		CreatedOn:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Environments: []telemetry.ReleaseEnvironment{{Name: "QA", Status: "failed"}},
	}
	opts := TimelineOptions{Now: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), TestEnvironment: regexp.MustCompile(`^QA$`)}
	got, ok, err := ClassifyReleaseTimeline(release, opts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, TimelineFailed, got)

	_, _, err = ClassifyReleaseTimeline(nil, opts)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRollupDay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		labels   []Label
		expected QualityState
	}{
		{labels: []Label{"inProgress", "bad"}, expected: InProgress},
		{labels: []Label{"bad", "ok"}, expected: Bad},
		{labels: []Label{"good", "succeeded"}, expected: Good},
		{labels: nil, expected: Unknown},
		{labels: []Label{"interrupted", "failed"}, expected: Interrupted},
		{labels: []Label{"in progress", "interrupted"}, expected: InProgress},
		{labels: []Label{"partially succeeded", "good"}, expected: OK},
		{labels: []Label{"failed", "partially succeeded"}, expected: Bad},
		{labels: []Label{"good", "unknown"}, expected: Unknown},
		{labels: []Label{"abandoned"}, expected: Unknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, RollupDay(tc.labels), "labels %v", tc.labels)
	}
}
