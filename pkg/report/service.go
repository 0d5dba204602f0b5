package report

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/analyzer"
	"github.com/stefanpenner/testpulse/pkg/cache"
	"github.com/stefanpenner/testpulse/pkg/quality"
	"github.com/stefanpenner/testpulse/pkg/runs"
	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

// Options carries every tunable the report pipelines need.
type Options struct {
	// Namespace scopes cache keys, typically organization and project.
	Namespace       string
	SessionDays     int
	TrendWindowDays int
	BufferDays      int
	Normalize       runs.NormalizeOptions
	Build           quality.BuildOptions
	Timeline        quality.TimelineOptions
	CacheTTL        time.Duration
	Now             func() time.Time
}

// Service wires telemetry queries through the cache into the analysis
// packages.
type Service struct {
	provider telemetry.Provider
	store    cache.Store
	opts     Options
}

func NewService(provider telemetry.Provider, store cache.Store, opts Options) *Service {
	if store == nil {
		store = cache.NopStore{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{provider: provider, store: store, opts: opts}
}

// SessionsReport lists sessions most recent first with their pass-rate spread.
type SessionsReport struct {
	PlanID  string                  `json:"planId"`
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Groups  []runs.TestRunGroup     `json:"groups"`
	Summary analyzer.SessionSummary `json:"summary"`
}

func (s *Service) Sessions(ctx context.Context, planID string, from, to time.Time) (*SessionsReport, error) {
	testRuns, err := s.testRuns(ctx, planID, from, to)
	if err != nil {
		return nil, err
	}
	groups := runs.GroupTestRuns(testRuns, s.opts.SessionDays)
	return &SessionsReport{
		PlanID:  planID,
		From:    from,
		To:      to,
		Groups:  groups,
		Summary: analyzer.SummarizeSessions(groups),
	}, nil
}

// TrendReport is the daily test volume of a plan and its changepoints.
type TrendReport struct {
	PlanID       string                `json:"planId"`
	Daily        []analyzer.DayData    `json:"daily"`
	Derivatives  []analyzer.Derivative `json:"derivatives"`
	Changepoints []analyzer.Derivative `json:"changepoints"`
}

func (s *Service) Trend(ctx context.Context, planID string, from, to time.Time) (*TrendReport, error) {
	testRuns, err := s.testRuns(ctx, planID, from, to)
	if err != nil {
		return nil, err
	}
	daily := analyzer.DailyTotals(testRuns)
	derivatives := analyzer.CalculateDerivatives(daily)
	return &TrendReport{
		PlanID:       planID,
		Daily:        daily,
		Derivatives:  derivatives,
		Changepoints: analyzer.ReduceChangepoints(derivatives, s.opts.TrendWindowDays),
	}, nil
}

func (s *Service) testRuns(ctx context.Context, planID string, from, to time.Time) ([]runs.TestRun, error) {
	records, err := s.rawRuns(ctx, planID, from, to)
	if err != nil {
		return nil, err
	}
	return runs.FilterAndMapTestRuns(records, s.opts.Normalize), nil
}

func (s *Service) rawRuns(ctx context.Context, planID string, from, to time.Time) ([]telemetry.RawRecord, error) {
	key := s.key("runs", planID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	records, err := cache.GetOrCompute(ctx, s.store, key, s.opts.CacheTTL, func() ([]telemetry.RawRecord, error) {
		return s.provider.FetchRuns(ctx, planID, from, to)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching runs for plan %s", planID)
	}
	return records, nil
}

func (s *Service) key(parts ...string) string {
	if s.opts.Namespace != "" {
		parts = append([]string{s.opts.Namespace}, parts...)
	}
	return cache.Key(parts...)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
