package quality

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidInput is returned when a build or release is missing the fields
// needed to classify it.
var ErrInvalidInput = errors.New("invalid classifier input")

// QualityState is the outcome of classifying a build, an environment-driven
// release or a day.
type QualityState string

const (
	Good        QualityState = "good"
	OK          QualityState = "ok"
	Bad         QualityState = "bad"
	InProgress  QualityState = "inProgress"
	Interrupted QualityState = "interrupted"
	Unknown     QualityState = "unknown"
)

func (s QualityState) Label() Label { return Label(s) }

// Thresholds are pass-rate percentages. A rate at or above Good is good, at or
// above OK is ok, anything lower is bad.
type Thresholds struct {
	Good float64 `json:"good" yaml:"good"`
	OK   float64 `json:"ok" yaml:"ok"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Good: 98, OK: 70}
}

// ThresholdState maps a pass rate onto good, ok or bad.
func ThresholdState(passRate float64, th Thresholds) QualityState {
	switch {
	case passRate >= th.Good:
		return Good
	case passRate >= th.OK:
		return OK
	default:
		return Bad
	}
}

// countsState applies the thresholds when both counts are present and non-zero.
func countsState(passed, failed *int, th Thresholds) QualityState {
	if passed == nil || failed == nil {
		return Unknown
	}
	total := *passed + *failed
	if total <= 0 {
		return Unknown
	}
	return ThresholdState(float64(*passed)/float64(total)*100, th)
}

func statusIn(status string, set ...string) bool {
	status = strings.TrimSpace(status)
	for _, s := range set {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}
