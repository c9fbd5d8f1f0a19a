package runner

import (
	"context"
	"io"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
)

// SpawnOpts describes a set of worker processes sharing one experiment.
type SpawnOpts struct {
	// Executable is invoked as "<Executable> worker <Experiment> <seed> <ExtraArgs...>".
	Executable string
	Experiment string
	FirstSeed  int64
	Workers    int
	Parallel   int
	ExtraArgs  []string
	Stdout     io.Writer
	Stderr     io.Writer
	Log        zerolog.Logger
}

// WorkerArgs returns the arguments of the worker with the given seed.
func (o SpawnOpts) WorkerArgs(seed int64) []string {
	args := []string{"worker", o.Experiment, strconv.FormatInt(seed, 10)}
	return append(args, o.ExtraArgs...)
}

// SpawnWorkers runs Workers worker processes with seeds FirstSeed,
// FirstSeed+1, ... and at most Parallel alive at once.
func SpawnWorkers(ctx context.Context, opts SpawnOpts) []error {
	jobs := make([]Job, opts.Workers)
	for i := range jobs {
		seed := opts.FirstSeed + int64(i)
		jobs[i] = func(ctx context.Context) error {
			cmd := exec.CommandContext(ctx, opts.Executable, opts.WorkerArgs(seed)...)
			cmd.Stdout = opts.Stdout
			cmd.Stderr = opts.Stderr
			opts.Log.Info().Int64("seed", seed).Msg("starting worker")
			if err := cmd.Run(); err != nil {
				opts.Log.Error().Int64("seed", seed).Err(err).Msg("worker failed")
				return errs.Wrapf(err, "worker seed %d", seed)
			}
			opts.Log.Info().Int64("seed", seed).Msg("worker finished")
			return nil
		}
	}
	return RunPool(ctx, opts.Parallel, jobs)
}
