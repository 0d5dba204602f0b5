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

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows partitions [from, to) into consecutive windows of the given width,
// clipping the last one to to. Adjacent windows share a boundary instant that
// belongs only to the later window.
func Windows(from, to time.Time, days int) []Window {
	if days < 1 {
		days = DefaultWindowDays
	}
	var windows []Window
	for start := from; start.Before(to); {
		end := start.AddDate(0, 0, days)
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{Start: start, End: end})
		start = end
	}
	return windows
}

// FetchRuns returns every raw run record the upstream reports as touched
// within [from, to) for the given plan.
//
// The upstream's minLastUpdatedDate/maxLastUpdatedDate filter is assumed to
// honor the half-open window boundaries; records are not deduplicated here.
func (c *Client) FetchRuns(ctx context.Context, planID string, from, to time.Time) ([]RawRecord, error) {
	ctx, span := tracer.Start(ctx, "FetchRuns", trace.WithAttributes(
		attribute.String("telemetry.planID", planID),
		attribute.String("telemetry.from", from.Format(time.RFC3339)),
		attribute.String("telemetry.to", to.Format(time.RFC3339)),
	))
	defer span.End()

	endpoint := c.projectURL(c.baseURL, "test/runs")
	windows := Windows(from, to, c.windowDays)
	span.SetAttributes(attribute.Int("telemetry.windows", len(windows)))

	var all []RawRecord
	for i, window := range windows {
		c.phase("Fetching test runs", fmt.Sprintf("window %d/%d starting %s", i+1, len(windows), window.Start.Format("2006-01-02")))

		params := url.Values{}
		params.Set("planIds", planID)
		params.Set("minLastUpdatedDate", window.Start.UTC().Format(time.RFC3339))
		params.Set("maxLastUpdatedDate", window.End.UTC().Format(time.RFC3339))
		params.Set("includeRunDetails", "true")
		params.Set("api-version", apiVersion)

		err := c.paginate(ctx, endpoint, params, func(raw json.RawMessage) error {
			records, err := decodeValues[RawRecord](raw)
			if err != nil {
				return err
			}
			all = append(all, records...)
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrapf(err, "fetching runs for window %s..%s", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
		}
	}
	span.SetAttributes(attribute.Int("telemetry.records", len(all)))
	return all, nil
}
