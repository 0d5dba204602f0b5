package quality

import (
	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

var (
	envInProgress  = []string{"inProgress"}
	envInterrupted = []string{"canceled", "aborted"}
	envFailed      = []string{"failed"}
)

// ClassifyRelease classifies a release from its environments, falling back to
// its test counts. The first matching rule wins: any environment in progress,
// then any interrupted, then any failed.
func ClassifyRelease(r *telemetry.Release, th Thresholds) (QualityState, error) {
	if r == nil {
		return Unknown, errors.Wrap(ErrInvalidInput, "release is absent")
	}
	if len(r.Environments) == 0 {
		return Unknown, errors.Wrapf(ErrInvalidInput, "release %s has no environments", r.ID)
	}

	switch {
	case anyEnvironment(r.Environments, envInProgress):
		return InProgress, nil
	case anyEnvironment(r.Environments, envInterrupted):
		return Interrupted, nil
	case anyEnvironment(r.Environments, envFailed):
		return Bad, nil
	}
	return countsState(r.PassedTestCount, r.FailedTestCount, th), nil
}

func anyEnvironment(envs []telemetry.ReleaseEnvironment, statuses []string) bool {
	for _, env := range envs {
		if statusIn(env.Status, statuses...) {
			return true
		}
	}
	return false
}
