package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (c *Client) FetchBuilds(ctx context.Context, definitionID string, from, to time.Time) ([]Build, error) {
	ctx, span := tracer.Start(ctx, "FetchBuilds", trace.WithAttributes(
		attribute.String("telemetry.definitionID", definitionID),
	))
	defer span.End()

	c.phase("Fetching builds", definitionID)
	params := url.Values{}
	params.Set("definitions", definitionID)
	params.Set("minTime", from.UTC().Format(time.RFC3339))
	params.Set("maxTime", to.UTC().Format(time.RFC3339))
	params.Set("api-version", apiVersion)

	var builds []Build
	err := c.paginate(ctx, c.projectURL(c.baseURL, "build/builds"), params, func(raw json.RawMessage) error {
		wires, err := decodeValues[buildWire](raw)
		if err != nil {
			return err
		}
		for _, w := range wires {
			builds = append(builds, w.toBuild())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching builds for definition %s", definitionID)
	}
	return builds, nil
}

func (c *Client) FetchReleases(ctx context.Context, definitionID string, from, to time.Time) ([]Release, error) {
	ctx, span := tracer.Start(ctx, "FetchReleases", trace.WithAttributes(
		attribute.String("telemetry.definitionID", definitionID),
	))
	defer span.End()

	c.phase("Fetching releases", definitionID)
	params := url.Values{}
	params.Set("definitionId", definitionID)
	params.Set("minCreatedTime", from.UTC().Format(time.RFC3339))
	params.Set("maxCreatedTime", to.UTC().Format(time.RFC3339))
	params.Set("$expand", "environments")
	params.Set("api-version", apiVersion)

	var releases []Release
	err := c.paginate(ctx, c.projectURL(c.releaseBaseURL, "release/releases"), params, func(raw json.RawMessage) error {
		wires, err := decodeValues[releaseWire](raw)
		if err != nil {
			return err
		}
		for _, w := range wires {
			releases = append(releases, w.toRelease())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching releases for definition %s", definitionID)
	}
	return releases, nil
}

// FetchRunResults returns the per-test-case outcomes recorded in one run.
func (c *Client) FetchRunResults(ctx context.Context, runID string) ([]TestResult, error) {
	ctx, span := tracer.Start(ctx, "FetchRunResults", trace.WithAttributes(
		attribute.String("telemetry.runID", runID),
	))
	defer span.End()

	params := url.Values{}
	params.Set("api-version", apiVersion)

	var results []TestResult
	endpoint := c.projectURL(c.baseURL, fmt.Sprintf("test/Runs/%s/results", url.PathEscape(runID)))
	err := c.paginate(ctx, endpoint, params, func(raw json.RawMessage) error {
		wires, err := decodeValues[testResultWire](raw)
		if err != nil {
			return err
		}
		for _, w := range wires {
			completed, _ := ParseTime(w.CompletedDate)
			results = append(results, TestResult{
				RunID:         runID,
				TestCaseID:    string(w.TestCase.ID),
				Outcome:       w.Outcome,
				CompletedDate: completed,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching results for run %s", runID)
	}
	return results, nil
}

func (c *Client) FetchPlanSuites(ctx context.Context, planID string) ([]Suite, error) {
	ctx, span := tracer.Start(ctx, "FetchPlanSuites", trace.WithAttributes(
		attribute.String("telemetry.planID", planID),
	))
	defer span.End()

	c.phase("Fetching test plan suites", planID)
	params := url.Values{}
	params.Set("api-version", apiVersion)

	var suites []Suite
	endpoint := c.projectURL(c.baseURL, fmt.Sprintf("testplan/Plans/%s/suites", url.PathEscape(planID)))
	err := c.paginate(ctx, endpoint, params, func(raw json.RawMessage) error {
		wires, err := decodeValues[suiteWire](raw)
		if err != nil {
			return err
		}
		for _, w := range wires {
			suite := Suite{ID: string(w.ID), Name: w.Name}
			if w.ParentSuite != nil {
				suite.ParentID = string(w.ParentSuite.ID)
			}
			suites = append(suites, suite)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching suites for plan %s", planID)
	}
	return suites, nil
}

func (c *Client) FetchSuiteCases(ctx context.Context, planID, suiteID string) ([]SuiteCase, error) {
	ctx, span := tracer.Start(ctx, "FetchSuiteCases", trace.WithAttributes(
		attribute.String("telemetry.planID", planID),
		attribute.String("telemetry.suiteID", suiteID),
	))
	defer span.End()

	params := url.Values{}
	params.Set("api-version", apiVersion)

	var cases []SuiteCase
	endpoint := c.projectURL(c.baseURL, fmt.Sprintf("testplan/Plans/%s/Suites/%s/TestCase", url.PathEscape(planID), url.PathEscape(suiteID)))
	err := c.paginate(ctx, endpoint, params, func(raw json.RawMessage) error {
		wires, err := decodeValues[suiteCaseWire](raw)
		if err != nil {
			return err
		}
		for _, w := range wires {
			cases = append(cases, SuiteCase{SuiteID: suiteID, TestCaseID: string(w.WorkItem.ID)})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching test cases for suite %s", suiteID)
	}
	return cases, nil
}
