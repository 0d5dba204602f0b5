package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/testpulse/pkg/report"
)

const defaultRangeDays = 90

type rangeOptions struct {
	planID string
	from   string
	to     string
}

func (o *rangeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.planID, "plan", "", "Test plan ID")
	cmd.Flags().StringVar(&o.from, "from", "", "First day to include, YYYY-MM-DD (default 90 days before --to)")
	cmd.Flags().StringVar(&o.to, "to", "", "Last day to include, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("plan")
}

// resolve returns a half-open [from, to) range covering whole UTC days.
func (o *rangeOptions) resolve(now time.Time) (time.Time, time.Time, error) {
	last := now.UTC().Truncate(24 * time.Hour)
	if o.to != "" {
		parsed, err := parseDay(o.to)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "--to")
		}
		last = parsed
	}
	to := last.AddDate(0, 0, 1)

	from := last.AddDate(0, 0, -defaultRangeDays)
	if o.from != "" {
		parsed, err := parseDay(o.from)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "--from")
		}
		from = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.Newf("--from %s is after --to %s", from.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	return from, to, nil
}

func parseDay(value string) (time.Time, error) {
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.Newf("%q is not a YYYY-MM-DD date", value)
	}
	return parsed, nil
}

func parseDays(values []string) ([]time.Time, error) {
	days := make([]time.Time, 0, len(values))
	for _, v := range values {
		day, err := parseDay(v)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

func newSessionsCommand(e env, root *rootOptions) *cobra.Command {
	opts := &rangeOptions{}
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Group a plan's completed runs into sessions and summarize pass rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := opts.resolve(e.now())
			if err != nil {
				return err
			}
			return execute(cmd, e, root, "testpulse sessions", func(ctx context.Context, svc *report.Service) (any, error) {
				return svc.Sessions(ctx, opts.planID, from, to)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newTrendCommand(e env, root *rootOptions) *cobra.Command {
	opts := &rangeOptions{}
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show daily test volume and its changepoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := opts.resolve(e.now())
			if err != nil {
				return err
			}
			return execute(cmd, e, root, "testpulse trend", func(ctx context.Context, svc *report.Service) (any, error) {
				return svc.Trend(ctx, opts.planID, from, to)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newMonthlyCommand(e env, root *rootOptions) *cobra.Command {
	var planID, suiteID string
	var dates []string
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Compare a suite's planned cases with what executed around each date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := parseDays(dates)
			if err != nil {
				return errors.Wrap(err, "--date")
			}
			return execute(cmd, e, root, "testpulse monthly", func(ctx context.Context, svc *report.Service) (any, error) {
				return svc.Monthly(ctx, planID, suiteID, days)
			})
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "Test plan ID")
	cmd.Flags().StringVar(&suiteID, "suite", "", "Root suite ID; its descendants are included")
	cmd.Flags().StringSliceVar(&dates, "date", nil, "Target date, YYYY-MM-DD (repeatable)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("suite")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newStatusCommand(e env, root *rootOptions) *cobra.Command {
	var day string
	var buildDefs, releaseDefs []string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Classify each pipeline's latest build or release on a day and roll them up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(buildDefs) == 0 && len(releaseDefs) == 0 {
				return errors.New("at least one --build-definition or --release-definition is required")
			}
			target := e.now().UTC().Truncate(24 * time.Hour)
			if day != "" {
				parsed, err := parseDay(day)
				if err != nil {
					return errors.Wrap(err, "--day")
				}
				target = parsed
			}
			return execute(cmd, e, root, "testpulse status", func(ctx context.Context, svc *report.Service) (any, error) {
				return svc.DayStatus(ctx, target, buildDefs, releaseDefs)
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "Day to classify, YYYY-MM-DD (default today)")
	cmd.Flags().StringSliceVar(&buildDefs, "build-definition", nil, "Build definition ID (repeatable)")
	cmd.Flags().StringSliceVar(&releaseDefs, "release-definition", nil, "Release definition ID (repeatable)")
	return cmd
}
