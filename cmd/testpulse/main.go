package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/testpulse/pkg/cache"
	"github.com/stefanpenner/testpulse/pkg/config"
	otelexport "github.com/stefanpenner/testpulse/pkg/export/otel"
	"github.com/stefanpenner/testpulse/pkg/output"
	"github.com/stefanpenner/testpulse/pkg/report"
	"github.com/stefanpenner/testpulse/pkg/telemetry"
	"github.com/stefanpenner/testpulse/pkg/tui"
)

const defaultGRPCEndpoint = "localhost:4317"

type rootOptions struct {
	configPath   string
	logLevel     string
	format       string
	otelStdout   bool
	otelEndpoint string
	otelGRPC     string
	noProgress   bool
	clearCache   bool
}

// env carries the process surroundings so tests can swap them.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	isTerminal bool
	now        func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := env{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		isTerminal: isatty.IsTerminal(os.Stderr.Fd()),
		now:        time.Now,
	}
	if err := newRootCommand(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(e env) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "testpulse",
		Short:         "Aggregate and classify CI test telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case output.FormatTable, output.FormatJSON:
				return nil
			default:
				return errors.Newf("--format must be %s or %s, got %q", output.FormatTable, output.FormatJSON, opts.format)
			}
		},
	}
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	flags.StringVar(&opts.format, "format", output.FormatTable, "Output format: table or json")
	flags.BoolVar(&opts.otelStdout, "otel", false, "Write trace spans to stderr as JSON")
	flags.StringVar(&opts.otelEndpoint, "otel-endpoint", "", "Export trace spans over OTLP/HTTP to host:port")
	flags.StringVar(&opts.otelGRPC, "otel-grpc", "", "Export trace spans over OTLP/gRPC to host:port")
	flags.Lookup("otel-grpc").NoOptDefVal = defaultGRPCEndpoint
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress spinner")
	flags.BoolVar(&opts.clearCache, "clear-cache", false, "Empty the file cache before running")

	cmd.AddCommand(
		newSessionsCommand(e, opts),
		newTrendCommand(e, opts),
		newMonthlyCommand(e, opts),
		newStatusCommand(e, opts),
	)
	return cmd
}

// runner holds everything a subcommand needs once config is resolved.
type runner struct {
	cfg      *config.Config
	service  *report.Service
	progress *tui.Progress
	closers  []func(context.Context) error
}

func (r *runner) close(ctx context.Context) {
	if r.progress != nil {
		r.progress.Finish()
		r.progress.Wait()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}
}

func newRunner(ctx context.Context, e env, opts *rootOptions, title string) (*runner, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "--log-level")
	}
	logrus.SetOutput(e.stderr)
	logrus.SetLevel(parsed)

	if err := cfg.RequireRemote(); err != nil {
		return nil, err
	}
	if cfg.Token() == "" {
		logrus.Warnf("%s is not set; requests will be anonymous", cfg.TokenEnv)
	}

	r := &runner{cfg: cfg}

	var otelOpts otelexport.Options
	if opts.otelStdout {
		otelOpts.Stdout = e.stderr
	}
	otelOpts.HTTPEndpoint = opts.otelEndpoint
	otelOpts.GRPCEndpoint = opts.otelGRPC
	if otelOpts.Stdout != nil || otelOpts.HTTPEndpoint != "" || otelOpts.GRPCEndpoint != "" {
		shutdown, err := otelexport.Setup(ctx, otelOpts)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, shutdown)
	}

	store, closeStore, err := openStore(ctx, cfg.Cache, opts.clearCache)
	if err != nil {
		r.close(ctx)
		return nil, err
	}
	if closeStore != nil {
		r.closers = append(r.closers, closeStore)
	}

	clientOpts := []telemetry.Option{
		telemetry.WithBaseURL(cfg.BaseURL),
		telemetry.WithReleaseBaseURL(cfg.ReleaseBaseURL),
		telemetry.WithWindowDays(cfg.FetchWindowDays),
	}
	if e.isTerminal && !opts.noProgress {
		r.progress = tui.NewProgress(title, e.stderr)
		r.progress.Start()
		clientOpts = append(clientOpts, telemetry.WithProgress(r.progress))
	}

	client := telemetry.NewClient(cfg.Credentials(), clientOpts...)
	r.service = report.NewService(client, store, serviceOptions(cfg, e.now))
	return r, nil
}

func serviceOptions(cfg *config.Config, now func() time.Time) report.Options {
	return report.Options{
		Namespace:       cfg.Organization + "/" + cfg.Project,
		SessionDays:     cfg.SessionDays,
		TrendWindowDays: cfg.TrendWindowDays,
		BufferDays:      cfg.BufferDays,
		Normalize:       cfg.NormalizeOptions(),
		Build:           cfg.BuildOptions(),
		Timeline:        cfg.TimelineOptions(now()),
		CacheTTL:        cfg.Cache.TTL,
		Now:             now,
	}
}

func openStore(ctx context.Context, cc config.CacheConfig, clear bool) (cache.Store, func(context.Context) error, error) {
	switch cc.Backend {
	case config.BackendRedis:
		store, err := cache.NewRedisStore(ctx, cc.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		if clear {
			logrus.Warn("--clear-cache only applies to the file cache")
		}
		return store, func(context.Context) error { return store.Close() }, nil
	case config.BackendFile:
		store := cache.NewFileStore(cc.Dir)
		if clear {
			if err := store.Clear(); err != nil {
				return nil, nil, err
			}
		}
		return store, nil, nil
	default:
		return cache.NopStore{}, nil, nil
	}
}

// execute runs fn with a fresh runner and renders its result.
func execute(cmd *cobra.Command, e env, opts *rootOptions, title string, fn func(context.Context, *report.Service) (any, error)) error {
	ctx := cmd.Context()
	r, err := newRunner(ctx, e, opts, title)
	if err != nil {
		return err
	}
	result, err := fn(ctx, r.service)
	r.close(ctx)
	if err != nil {
		return err
	}
	return output.Render(e.stdout, opts.format, result)
}
