package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/agent/pg"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/baseline"
	"github.com/samuelfneumann/pgcore/config"
	"github.com/samuelfneumann/pgcore/metrics"
	"github.com/samuelfneumann/pgcore/policy"
	"github.com/samuelfneumann/pgcore/trajectory"
	"github.com/samuelfneumann/pgcore/utils/logging"
	"github.com/samuelfneumann/pgcore/utils/progressbar"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// trainOptions holds the flags of the train command
type trainOptions struct {
	configPath       string
	trajectoriesPath string
	iterations       int
	metricsAddr      string
	progress         bool
}

// newTrainCmd returns the command that trains on recorded trajectories
func newTrainCmd() *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on a file of recorded trajectories",
		Long: `Train a policy on a JSON file of recorded trajectories. Each
iteration performs one policy gradient update on the whole batch and
prints the update's diagnostics.

Examples:
  # Train for 100 iterations
  pgtrain train --config cartpole.yaml --trajectories batch.json -n 100

  # Serve Prometheus metrics while training
  pgtrain train -c cartpole.yaml -t batch.json --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"path to the YAML configuration file")
	flags.StringVarP(&opts.trajectoriesPath, "trajectories", "t", "",
		"path to the JSON trajectories file")
	flags.IntVarP(&opts.iterations, "iterations", "n", 1,
		"number of update steps")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on, overrides metrics.addr")
	flags.BoolVar(&opts.progress, "progress", false,
		"display a progress bar on stderr")
	_ = cmd.MarkFlagRequired("trajectories")

	return cmd
}

func runTrain(cmd *cobra.Command, opts *trainOptions) error {
	if opts.iterations <= 0 {
		return fmt.Errorf("iterations must be positive, have %d",
			opts.iterations)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger, err := logging.NewWithSink(cfg.Log,
		zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	trajs, err := readTrajectories(opts.trajectoriesPath)
	if err != nil {
		return err
	}
	if err := checkDims(cfg, trajs); err != nil {
		return err
	}
	logger.Info("loaded trajectories",
		zap.String("path", opts.trajectoriesPath),
		zap.Int("trajectories", len(trajs)),
	)

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, recorder, logger)
		defer stop()
	}

	learner, err := newLearner(cfg, logger, recorder)
	if err != nil {
		return err
	}

	var bar *progressbar.ManualProgressBar
	if opts.progress {
		bar = progressbar.NewManualProgressBar(cmd.ErrOrStderr(), 40,
			opts.iterations)
	}

	for i := 0; i < opts.iterations; i++ {
		info, err := learner.UpdateTrajectories(trajs)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		cmd.Printf("iteration %d  |  %v\n", i, info)

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}
	if bar != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	return nil
}

// readTrajectories decodes the trajectories file at path
func readTrajectories(path string) ([]trajectory.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	trajs, err := trajectory.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trajs, nil
}

// checkDims checks that trajectories match the configured environment
func checkDims(cfg *config.Config, trajs []trajectory.Trajectory) error {
	actDim := policy.ActionDim(cfg.Policy.Type, cfg.Env.Actions)
	for i, t := range trajs {
		if t.ObsDim() != cfg.Env.ObservationDim || t.ActDim() != actDim {
			return fmt.Errorf("trajectory %d has dimensions (%d, %d), "+
				"configuration expects (%d, %d)", i, t.ObsDim(), t.ActDim(),
				cfg.Env.ObservationDim, actDim)
		}
	}
	return nil
}

// newLearner creates the policy, baseline, and learner described by
// cfg
func newLearner(cfg *config.Config, logger *zap.Logger,
	recorder *metrics.Recorder) (*pg.PG, error) {
	ctx := backend.New(cfg.Seed)

	pol, err := policy.New(ctx, cfg.Policy, cfg.Env.ObservationDim,
		cfg.Env.Actions)
	if err != nil {
		return nil, err
	}

	var base agent.ValueBaseline
	if cfg.Agent.UseBaseline {
		if base, err = baseline.NewMLP(ctx, cfg.Baseline,
			cfg.Env.ObservationDim); err != nil {
			return nil, err
		}
	}

	return pg.New(ctx, cfg.Agent, pol, base, pg.WithLogger(logger),
		pg.WithMetrics(recorder))
}

// serveMetrics serves the recorder's metrics on addr until the
// returned function is called
func serveMetrics(addr string, recorder *metrics.Recorder,
	logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
