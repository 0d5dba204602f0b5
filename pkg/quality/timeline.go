package quality

import (
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

// TimelineStatus is the outcome of ClassifyReleaseTimeline. Besides the named
// values it may carry a release's raw status verbatim.
type TimelineStatus string

const (
	TimelineFailed             TimelineStatus = "failed"
	TimelineInterrupted        TimelineStatus = "interrupted"
	TimelineInProgress         TimelineStatus = "in progress"
	TimelinePartiallySucceeded TimelineStatus = "partially succeeded"
	TimelineSucceeded          TimelineStatus = "succeeded"
)

func (s TimelineStatus) Label() Label { return Label(s) }

const DefaultStaleAfter = 24 * time.Hour

var (
	defaultTestEnvironment = regexp.MustCompile(`(?i)test`)

	timelineTerminalBad = []string{"rejected", "canceled", "failed"}
	timelineInProgress  = []string{"inProgress", "queued", "scheduled"}
)

// TimelineOptions tunes ClassifyReleaseTimeline. Zero values fall back to
// the current time, DefaultStaleAfter and a case-insensitive "test" match.
type TimelineOptions struct {
	Now             time.Time
	StaleAfter      time.Duration
	TestEnvironment *regexp.Regexp
}

// ClassifyReleaseTimeline classifies a release for day-level lookups. A
// release older than StaleAfter whose test environments ended badly is
// failed regardless of its other environments. The bool is false when no
// rule matched and the release carries no raw status to fall back on.
func ClassifyReleaseTimeline(r *telemetry.Release, opts TimelineOptions) (TimelineStatus, bool, error) {
	if r == nil {
		return "", false, errors.Wrap(ErrInvalidInput, "release is absent")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	pattern := opts.TestEnvironment
	if pattern == nil {
		pattern = defaultTestEnvironment
	}

	var testEnvs []telemetry.ReleaseEnvironment
	for _, env := range r.Environments {
		if pattern.MatchString(env.Name) {
			testEnvs = append(testEnvs, env)
		}
	}
	stale := !r.CreatedOn.IsZero() && now.Sub(r.CreatedOn) > staleAfter

	switch {
	case stale && anyEnvironment(testEnvs, timelineTerminalBad):
		return TimelineFailed, true, nil
	case anyEnvironment(r.Environments, timelineTerminalBad):
		return TimelineInterrupted, true, nil
	case anyEnvironment(r.Environments, timelineInProgress):
		return TimelineInProgress, true, nil
	case anyEnvironment(testEnvs, []string{"partiallySucceeded"}):
		return TimelinePartiallySucceeded, true, nil
	case len(testEnvs) > 0 && allEnvironments(testEnvs, "succeeded"):
		return TimelineSucceeded, true, nil
	}

	if status := strings.TrimSpace(r.Status); status != "" {
		return TimelineStatus(status), true, nil
	}
	return "", false, nil
}

func allEnvironments(envs []telemetry.ReleaseEnvironment, status string) bool {
	for _, env := range envs {
		if !statusIn(env.Status, status) {
			return false
		}
	}
	return true
}
