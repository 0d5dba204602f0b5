package quality

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

var (
	buildInProgress  = []string{"inProgress", "notStarted"}
	buildInterrupted = []string{"canceled", "cancelling", "postponed"}
	buildFailed      = []string{"failed"}
)

// BuildOptions tunes ClassifyBuild.
type BuildOptions struct {
	// AutomationStatus lets the build's own status and result decide
	// interrupted and bad before test counts are consulted.
	AutomationStatus bool
	Thresholds       Thresholds
}

// ClassifyBuild classifies one build snapshot.
func ClassifyBuild(b *telemetry.Build, opts BuildOptions) (QualityState, error) {
	if b == nil {
		return Unknown, errors.Wrap(ErrInvalidInput, "build is absent")
	}
	if strings.TrimSpace(b.Status) == "" {
		return Unknown, errors.Wrapf(ErrInvalidInput, "build %s has no status", b.ID)
	}

	if statusIn(b.Status, buildInProgress...) {
		return InProgress, nil
	}
	if opts.AutomationStatus {
		if statusIn(b.Status, buildInterrupted...) || statusIn(b.Result, buildInterrupted...) {
			return Interrupted, nil
		}
		if statusIn(b.Result, buildFailed...) {
			return Bad, nil
		}
	}
	return countsState(b.PassedTestCount, b.FailedTestCount, opts.Thresholds), nil
}
