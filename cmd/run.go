package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/result"
	"github.com/signalnine/autotune/internal/runner"
)

var (
	flagWorkers  int
	flagParallel int
	flagSeed     int64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <experiment.yaml>",
		Short: "Launch workers with consecutive seeds and summarise the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runExperiment,
	}
	cmd.Flags().IntVar(&flagWorkers, "workers", 1, "number of workers to launch")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent workers")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "seed of the first worker")
	return cmd
}

func runExperiment(cmd *cobra.Command, args []string) error {
	log, err := newLogger("run")
	if err != nil {
		return err
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if flagWorkers < 1 {
		return errs.NewInvalidParameter("workers", "must be at least 1", flagWorkers)
	}
	exe, err := os.Executable()
	if err != nil {
		return errs.Wrap(err, "locating autotune executable")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("experiment", cfg.String()).Int("workers", flagWorkers).Int("parallel", flagParallel).Msg("launching workers")
	failures := runner.SpawnWorkers(ctx, runner.SpawnOpts{
		Executable: exe,
		Experiment: args[0],
		FirstSeed:  flagSeed,
		Workers:    flagWorkers,
		Parallel:   flagParallel,
		ExtraArgs:  []string{"--log-level", flagLogLevel},
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Log:        log,
	})

	if err := report.Generate(result.NewStore(cfg.Dir), cfg.Name, report.FormatTable, 10, cmd.OutOrStdout()); err != nil {
		return err
	}
	if len(failures) > 0 {
		return errs.Newf("%d of %d workers failed", len(failures), flagWorkers)
	}
	return nil
}
