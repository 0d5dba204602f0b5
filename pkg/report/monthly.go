package report

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/analyzer"
	"github.com/stefanpenner/testpulse/pkg/cache"
	"github.com/stefanpenner/testpulse/pkg/telemetry"
	"github.com/stefanpenner/testpulse/pkg/testplan"
)

// MonthlyReport reconciles one test plan suite against executions around each
// requested date.
type MonthlyReport struct {
	PlanID  string                      `json:"planId"`
	SuiteID string                      `json:"suiteId"`
	Details []analyzer.MonthlyRunDetail `json:"details"`
}

// Monthly collects the suite's planned cases, every execution recorded by
// qualifying runs in the months covering dates, and builds one detail per date.
func (s *Service) Monthly(ctx context.Context, planID, suiteID string, dates []time.Time) (*MonthlyReport, error) {
	if len(dates) == 0 {
		return &MonthlyReport{PlanID: planID, SuiteID: suiteID, Details: []analyzer.MonthlyRunDetail{}}, nil
	}

	planCases, err := cache.GetOrCompute(ctx, s.store, s.key("plan-cases", planID, suiteID), s.opts.CacheTTL, func() ([]string, error) {
		return testplan.CollectCases(ctx, s.provider, planID, suiteID)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "collecting cases for suite %s", suiteID)
	}

	from, to := monthRange(dates, s.opts.BufferDays)
	testRuns, err := s.testRuns(ctx, planID, from, to)
	if err != nil {
		return nil, err
	}

	executions := map[string][]analyzer.Execution{}
	for _, run := range testRuns {
		results, err := cache.GetOrCompute(ctx, s.store, s.key("results", run.ID), s.opts.CacheTTL, func() ([]telemetry.TestResult, error) {
			return s.provider.FetchRunResults(ctx, run.ID)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fetching results for run %s", run.ID)
		}
		for _, r := range results {
			if r.TestCaseID == "" {
				continue
			}
			completed := r.CompletedDate
			if completed.IsZero() {
				completed = run.StartedDate
				if run.CompletedDate != nil {
					completed = *run.CompletedDate
				}
			}
			executions[r.TestCaseID] = append(executions[r.TestCaseID], analyzer.Execution{
				Outcome:       r.Outcome,
				CompletedDate: completed,
			})
		}
	}

	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	report := &MonthlyReport{PlanID: planID, SuiteID: suiteID}
	for _, d := range sorted {
		report.Details = append(report.Details, analyzer.BuildMonthlyRunDetail(d, planCases, executions, s.opts.BufferDays))
	}
	return report, nil
}

// monthRange spans the calendar months of all dates, widened by the buffer
// so matches near a month edge are still found. The end is exclusive.
func monthRange(dates []time.Time, bufferDays int) (time.Time, time.Time) {
	first, last := startOfDay(dates[0]), startOfDay(dates[0])
	for _, d := range dates[1:] {
		d = startOfDay(d)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	from := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -bufferDays)
	to := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, bufferDays)
	return from, to
}
