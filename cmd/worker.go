package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/evaluator"
	"github.com/signalnine/autotune/internal/logging"
	"github.com/signalnine/autotune/internal/result"
	"github.com/signalnine/autotune/internal/runner"
	"github.com/signalnine/autotune/internal/telemetry"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker <experiment.yaml> <seed>",
		Short: "Sample and evaluate configurations until the budget is spent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger("worker")
			if err != nil {
				return err
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			seed := args[1]
			sp, err := cfg.Space()
			if err != nil {
				return err
			}
			ids, err := cfg.PartitionIDs()
			if err != nil {
				return err
			}

			opts := cfg.EvaluatorOptions(seed)
			opts.Log = logging.Component(log, "evaluator")
			ev, err := evaluator.New(opts)
			if err != nil {
				return err
			}

			collector, metrics, err := telemetry.NewCollector()
			if err != nil {
				return err
			}

			w, err := runner.NewWorker(runner.WorkerOpts{
				Store:            result.NewStore(cfg.Dir),
				Sampler:          sp,
				Evaluator:        ev,
				Partitions:       ids,
				Seed:             seed,
				Budget:           cfg.Budget(),
				TrainTimeout:     cfg.Timeout(),
				FailureThreshold: cfg.FailureThreshold,
				MaxFailures:      cfg.MaxFailures,
				Metrics:          metrics,
				Log:              log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info().Str("experiment", cfg.String()).Int("partitions", len(ids)).Msg("worker starting")

			sum, runErr := w.Run(ctx)
			if errs.Is(runErr, runner.ErrSpaceExhausted) {
				log.Warn().Msg("search space exhausted before the budget")
				runErr = nil
			}

			done := log.Info().
				Int("configurations", sum.Configurations).
				Int("incomplete", sum.Incomplete).
				Int("evaluations", sum.Evaluations).
				Int("duplicates", sum.Duplicates).
				Float64("charged", sum.Charged)
			if sum.Best != nil {
				done = done.Str("best", sum.Best.Args()).Float64("best_mean", sum.Best.Mean())
			}
			done.Msg("worker finished")

			shutdownCtx := context.WithoutCancel(ctx)
			if totals, err := collector.Totals(shutdownCtx); err == nil {
				mev := log.Debug()
				for k, v := range totals {
					mev = mev.Float64(k, v)
				}
				mev.Msg("worker metrics")
			}
			_ = collector.Shutdown(shutdownCtx)
			return runErr
		},
	}
}
