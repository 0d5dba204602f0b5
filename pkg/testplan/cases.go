package testplan

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

// ErrSuiteNotFound is returned when a suite ID isn't part of the plan.
var ErrSuiteNotFound = errors.New("suite not found in plan")

// SuiteSource is the part of telemetry.Provider needed to read a test plan.
type SuiteSource interface {
	FetchPlanSuites(ctx context.Context, planID string) ([]telemetry.Suite, error)
	FetchSuiteCases(ctx context.Context, planID, suiteID string) ([]telemetry.SuiteCase, error)
}

// CollectCases returns the distinct test case IDs of suiteID and all suites
// below it, sorted.
func CollectCases(ctx context.Context, src SuiteSource, planID, suiteID string) ([]string, error) {
	suites, err := src.FetchPlanSuites(ctx, planID)
	if err != nil {
		return nil, err
	}
	tree := BuildTree(suites)
	ids := tree.Descendants(suiteID)
	if ids == nil {
		return nil, errors.Wrapf(ErrSuiteNotFound, "suite %s in plan %s", suiteID, planID)
	}

	seen := map[string]struct{}{}
	for _, id := range ids {
		cases, err := src.FetchSuiteCases(ctx, planID, id)
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			if c.TestCaseID == "" {
				continue
			}
			seen[c.TestCaseID] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
