package telemetry

import (
	"context"
	"time"
)

// Provider defines the interface for interacting with the telemetry API.
type Provider interface {
	FetchRuns(ctx context.Context, planID string, from, to time.Time) ([]RawRecord, error)
	FetchBuilds(ctx context.Context, definitionID string, from, to time.Time) ([]Build, error)
	FetchReleases(ctx context.Context, definitionID string, from, to time.Time) ([]Release, error)
	FetchRunResults(ctx context.Context, runID string) ([]TestResult, error)
	FetchPlanSuites(ctx context.Context, planID string) ([]Suite, error)
	FetchSuiteCases(ctx context.Context, planID, suiteID string) ([]SuiteCase, error)
}

var _ Provider = (*Client)(nil)
