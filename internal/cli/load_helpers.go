package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nholik/stackpilot/internal/blob"
	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/config"
	"github.com/nholik/stackpilot/internal/healthcheck"
	"github.com/nholik/stackpilot/internal/logging"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/nholik/stackpilot/internal/runner"
	"github.com/nholik/stackpilot/internal/server"
	"github.com/nholik/stackpilot/internal/stack"
	"github.com/nholik/stackpilot/internal/state"
)

// session holds everything a lifecycle command needs.
type session struct {
	cfg          config.Config
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	orchestrator *stack.Orchestrator
	runner       *runner.Runner
	stackName    string
}

// newLogger builds the logger for the chosen format. Logs go to the error
// stream so console output stays readable.
func newLogger(opts *Options, cfg config.Config, out io.Writer) zerolog.Logger {
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.Format == formatJSON {
		return logging.NewJSON(out, level)
	}
	return logging.NewConsole(out, level)
}

// loadSession reads configuration and the stack file and wires the
// orchestrator with its collaborators.
func loadSession(ctx context.Context, cmd *cobra.Command, opts *Options, streams IO) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg, streams.Err)

	sf, err := config.LoadStackFile(opts.StackFile)
	if err != nil {
		return nil, err
	}
	stackCfg, err := sf.ToStackConfig(cfg.PollInterval)
	if err != nil {
		return nil, err
	}
	if flag := cmd.Flags().Lookup("follow"); flag != nil && flag.Changed {
		stackCfg.Follow = opts.Follow
	}
	if flag := cmd.Flags().Lookup("changeset-only"); flag != nil && flag.Changed {
		stackCfg.ChangesetOnly = opts.ChangesetOnly
	}

	awsCfg, err := cfn.LoadAWSConfig(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return nil, err
	}
	client := cfn.NewSDKClient(awsCfg, cfg.EndpointURL, 0)

	m := metrics.New()
	orchestratorOpts := []stack.Option{
		stack.WithLogger(logger),
		stack.WithMetrics(m),
		stack.WithObserver(newObserver(opts, logger, streams.Out)),
	}
	if cfg.ArtifactBucket != "" {
		store, err := blob.NewS3Store(awsCfg, cfg.ArtifactBucket, cfg.ArtifactPrefix, logger)
		if err != nil {
			return nil, err
		}
		orchestratorOpts = append(orchestratorOpts, stack.WithBlobStore(store))
	}

	orchestrator, err := stack.New(stackCfg, client, orchestratorOpts...)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	r := runner.New(logger,
		runner.WithJournal(newJournal(cfg, logger)),
		runner.WithNotifier(notifier),
		runner.WithMetricsFile(m, cfg.MetricsFile),
	)

	return &session{
		cfg:          cfg,
		logger:       logger,
		metrics:      m,
		orchestrator: orchestrator,
		runner:       r,
		stackName:    stackCfg.StackName,
	}, nil
}

// startStatusServer serves metrics and health while the operation runs. The
// returned stop function shuts the listener down.
func (s *session) startStatusServer(ctx context.Context, operation string) (func(), error) {
	if s.cfg.ListenAddr == "" {
		return func() {}, nil
	}
	tracker := healthcheck.NewTracker(s.metrics)
	tracker.RecordStart(s.stackName, operation, time.Now())

	ctx, cancel := context.WithCancel(ctx)
	srv, err := server.Start(ctx, s.logger, s.cfg.ListenAddr, server.NewMux(tracker, s.metrics, s.cfg.PollInterval))
	if err != nil {
		cancel()
		return nil, err
	}
	return func() {
		cancel()
		srv.Wait()
	}, nil
}

func newObserver(opts *Options, logger zerolog.Logger, out io.Writer) notify.Observer {
	if opts.Format == formatJSON {
		return notify.NewLogObserver(logger)
	}
	return notify.NewConsoleObserver(out)
}

func newJournal(cfg config.Config, logger zerolog.Logger) *state.Journal {
	if cfg.StateFile == "" {
		return state.NewJournal(nil)
	}
	return state.NewJournal(state.NewFileStore(cfg.StateFile, logger))
}

// newNotifier combines the configured notification targets.
func newNotifier(cfg config.Config, logger zerolog.Logger) (notify.Notifier, error) {
	var targets []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		targets = append(targets, notify.NewSlackNotifier(logger, cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, cfg.WebhookTemplate)
		if err != nil {
			return nil, fmt.Errorf("configure webhook: %w", err)
		}
		targets = append(targets, webhook)
	}

	var notifier notify.Notifier
	switch len(targets) {
	case 0:
		return notify.NewNoop(logger, "no notification targets configured"), nil
	case 1:
		notifier = targets[0]
	default:
		notifier = notify.NewMultiNotifier(targets...)
	}
	if cfg.DryRunNotify {
		notifier = notify.NewDryRunNotifier(logger, notifier)
	}
	return notifier, nil
}
