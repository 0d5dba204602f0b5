package report

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/stefanpenner/testpulse/pkg/cache"
	"github.com/stefanpenner/testpulse/pkg/quality"
	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

const (
	KindBuild   = "build"
	KindRelease = "release"
)

// PipelineStatus is the classification of one pipeline's latest build or
// release on a day. ItemID is empty when the pipeline had nothing that day.
type PipelineStatus struct {
	Kind         string        `json:"kind"`
	DefinitionID string        `json:"definitionId"`
	ItemID       string        `json:"itemId,omitempty"`
	Name         string        `json:"name,omitempty"`
	Label        quality.Label `json:"label"`
}

// DayStatusReport holds per-pipeline labels and their rollup for one day.
type DayStatusReport struct {
	Day       string               `json:"day"`
	Pipelines []PipelineStatus     `json:"pipelines"`
	Rollup    quality.QualityState `json:"rollup"`
}

// DayStatus classifies every pipeline concurrently and rolls the results up.
// Each goroutine writes only its own slot of the result slice.
func (s *Service) DayStatus(ctx context.Context, day time.Time, buildDefs, releaseDefs []string) (*DayStatusReport, error) {
	from := startOfDay(day)
	to := from.AddDate(0, 0, 1)

	pipelines := make([]PipelineStatus, len(buildDefs)+len(releaseDefs))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range buildDefs {
		g.Go(func() error {
			status, err := s.buildStatus(gctx, def, from, to)
			if err != nil {
				return err
			}
			pipelines[i] = status
			return nil
		})
	}
	for i, def := range releaseDefs {
		slot := len(buildDefs) + i
		g.Go(func() error {
			status, err := s.releaseStatus(gctx, def, from, to)
			if err != nil {
				return err
			}
			pipelines[slot] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	labels := make([]quality.Label, 0, len(pipelines))
	for _, p := range pipelines {
		labels = append(labels, p.Label)
	}
	return &DayStatusReport{
		Day:       from.Format(time.DateOnly),
		Pipelines: pipelines,
		Rollup:    quality.RollupDay(labels),
	}, nil
}

func (s *Service) buildStatus(ctx context.Context, definitionID string, from, to time.Time) (PipelineStatus, error) {
	status := PipelineStatus{Kind: KindBuild, DefinitionID: definitionID, Label: quality.Unknown.Label()}

	key := s.key("builds", definitionID, from.Format(time.DateOnly))
	builds, err := cache.GetOrCompute(ctx, s.store, key, s.opts.CacheTTL, func() ([]telemetry.Build, error) {
		return s.provider.FetchBuilds(ctx, definitionID, from, to)
	})
	if err != nil {
		return status, errors.Wrapf(err, "fetching builds for definition %s", definitionID)
	}
	latest := latestBuild(builds)
	if latest == nil {
		return status, nil
	}

	state, err := quality.ClassifyBuild(latest, s.opts.Build)
	if err != nil {
		return status, errors.Wrapf(err, "classifying build %s", latest.ID)
	}
	status.ItemID = latest.ID
	status.Name = latest.BuildNumber
	status.Label = state.Label()
	return status, nil
}

func (s *Service) releaseStatus(ctx context.Context, definitionID string, from, to time.Time) (PipelineStatus, error) {
	status := PipelineStatus{Kind: KindRelease, DefinitionID: definitionID, Label: quality.Unknown.Label()}

	key := s.key("releases", definitionID, from.Format(time.DateOnly))
	releases, err := cache.GetOrCompute(ctx, s.store, key, s.opts.CacheTTL, func() ([]telemetry.Release, error) {
		return s.provider.FetchReleases(ctx, definitionID, from, to)
	})
	if err != nil {
		return status, errors.Wrapf(err, "fetching releases for definition %s", definitionID)
	}
	latest := latestRelease(releases)
	if latest == nil {
		return status, nil
	}

	opts := s.opts.Timeline
	opts.Now = s.opts.Now()
	timeline, ok, err := quality.ClassifyReleaseTimeline(latest, opts)
	if err != nil {
		return status, errors.Wrapf(err, "classifying release %s", latest.ID)
	}
	status.ItemID = latest.ID
	status.Name = latest.Name
	if ok {
		status.Label = timeline.Label()
	}
	return status, nil
}

// latestBuild prefers the most recent start time. Builds without a start time
// lose to any that have one, and equal times keep the first seen.
func latestBuild(builds []telemetry.Build) *telemetry.Build {
	var latest *telemetry.Build
	for i := range builds {
		b := &builds[i]
		if latest == nil || b.StartTime.After(latest.StartTime) {
			latest = b
		}
	}
	return latest
}

func latestRelease(releases []telemetry.Release) *telemetry.Release {
	var latest *telemetry.Release
	for i := range releases {
		r := &releases[i]
		if latest == nil || r.CreatedOn.After(latest.CreatedOn) {
			latest = r
		}
	}
	return latest
}
