// Package runner drives the budgeted random search: a Worker samples
// configurations, skips those another worker already claimed, evaluates the
// rest on every partition and persists the results.
package runner

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/evaluator"
	"github.com/signalnine/autotune/internal/logging"
	"github.com/signalnine/autotune/internal/partition"
	"github.com/signalnine/autotune/internal/result"
	"github.com/signalnine/autotune/internal/space"
	"github.com/signalnine/autotune/internal/telemetry"
)

const (
	DefaultFailureThreshold = 99.99
	DefaultMaxFailures      = 3
	DefaultMaxResample      = 10000
)

// ErrSpaceExhausted ends a worker that keeps sampling configurations that
// already exist.
var ErrSpaceExhausted = errs.New("search space exhausted")

// Sampler produces canonical argument strings.
type Sampler interface {
	Sample(r *rand.Rand) string
}

var _ Sampler = (*space.Space)(nil)

type WorkerOpts struct {
	Store      *result.Store
	Sampler    Sampler
	Evaluator  evaluator.Evaluator
	Partitions []string
	// Seed seeds the sampler and is passed to every evaluation.
	Seed string
	// Budget is the total evaluation time this worker may charge.
	Budget       time.Duration
	TrainTimeout time.Duration

	FailureThreshold float64
	MaxFailures      int
	MaxResample      int

	Metrics *telemetry.Metrics
	Log     zerolog.Logger
}

// Summary describes a finished run.
type Summary struct {
	WorkerID       string
	Configurations int
	Incomplete     int
	Evaluations    int
	Duplicates     int
	Charged        float64
	Best           *result.Configuration
}

type Worker struct {
	opts WorkerOpts
	id   string
	rng  *rand.Rand
	log  zerolog.Logger
}

// NewWorker validates opts and seeds the worker's PRNG.
func NewWorker(opts WorkerOpts) (*Worker, error) {
	seed, err := strconv.ParseInt(opts.Seed, 10, 64)
	if err != nil {
		return nil, errs.NewInvalidParameter("seed", "must be an integer", opts.Seed)
	}
	switch {
	case opts.Store == nil:
		return nil, errs.NewInvalidParameter("store", "must be set", nil)
	case opts.Sampler == nil:
		return nil, errs.NewInvalidParameter("sampler", "must be set", nil)
	case opts.Evaluator == nil:
		return nil, errs.NewInvalidParameter("evaluator", "must be set", nil)
	case len(opts.Partitions) == 0:
		return nil, errs.NewInvalidParameter("partitions", "at least one partition is required", nil)
	case opts.TrainTimeout <= 0:
		return nil, errs.NewInvalidParameter("train_timeout", "must be positive", opts.TrainTimeout)
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.MaxResample <= 0 {
		opts.MaxResample = DefaultMaxResample
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.Nop()
	}
	id := uuid.NewString()
	return &Worker{
		opts: opts,
		id:   id,
		rng:  rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		log:  opts.Log.With().Str(logging.WorkerKey, id).Str(logging.SeedKey, opts.Seed).Logger(),
	}, nil
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string { return w.id }

// Run evaluates configurations until the budget is spent or ctx is done.
// The budget and ctx are only consulted between configurations, so the
// last configuration may overrun the budget.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	sum := Summary{WorkerID: w.id}
	remaining := w.opts.Budget.Seconds()
	w.log.Info().
		Float64("budget_s", remaining).
		Int("partitions", len(w.opts.Partitions)).
		Msg("worker starting")

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			w.log.Warn().Err(err).Msg("stopping before budget was spent")
			return sum, nil
		}
		cfg, dups, err := w.EvaluatePoint(ctx)
		sum.Duplicates += dups
		if err != nil {
			return sum, err
		}
		charged := cfg.TotalTime()
		remaining -= charged
		sum.Charged += charged
		sum.Configurations++
		sum.Evaluations += cfg.NumPartitions()
		if !cfg.Complete() {
			sum.Incomplete++
		}
		if cfg.Complete() && (sum.Best == nil || cfg.Mean() < sum.Best.Mean()) {
			sum.Best = cfg
		}
		w.log.Info().
			Str(logging.HashKey, cfg.Hash()).
			Float64("mean", cfg.Mean()).
			Float64("charged_s", charged).
			Float64("remaining_s", remaining).
			Bool("complete", cfg.Complete()).
			Msg("configuration evaluated")
	}
	return sum, nil
}

// EvaluatePoint samples an unclaimed configuration, evaluates it on every
// partition and persists it. It also returns how many duplicates were
// skipped on the way.
func (w *Worker) EvaluatePoint(ctx context.Context) (*result.Configuration, int, error) {
	args, dups, err := w.claim(ctx)
	if err != nil {
		return nil, dups, err
	}
	cfg := result.NewConfiguration(args)
	cfg.Worker = w.id
	cfg.Seed = w.opts.Seed
	log := w.log.With().Str(logging.HashKey, cfg.Hash()).Logger()
	log.Debug().Str("args", args).Msg("evaluating configuration")

	// Evaluations are bounded by their own timeout and are never cut
	// short by the supervisor.
	evalCtx := context.WithoutCancel(ctx)
	failures := 0
	for _, pid := range w.opts.Partitions {
		res, err := w.opts.Evaluator.Evaluate(evalCtx, args, pid, w.opts.TrainTimeout)
		if err != nil {
			if rerr := w.opts.Store.Release(cfg.Hash()); rerr != nil {
				log.Warn().Err(rerr).Msg("could not release claim")
			}
			return nil, dups, errs.Wrapf(err, "evaluating %s on %s", cfg.Hash(), pid)
		}
		cfg.Add(result.PartitionResult{
			Partition: pid,
			Score:     res.Score,
			Time:      res.Time,
			MemOut:    res.MemOut,
			Completed: res.Completed,
		})
		w.opts.Metrics.Evaluation(ctx, Outcome(res), res.Time)
		if res.Penalized() {
			log.Debug().Str(logging.PartitionKey, pid).Str("reason", res.Reason).Msg("evaluation penalized")
		}

		if res.Score >= w.opts.FailureThreshold {
			failures++
			if failures >= w.opts.MaxFailures {
				cfg.MarkIncomplete()
				w.opts.Metrics.CircuitBreak(ctx)
				log.Warn().
					Int("failures", failures).
					Int("evaluated", cfg.NumPartitions()).
					Int("partitions", len(w.opts.Partitions)).
					Msg("abandoning configuration after repeated failures")
				break
			}
		}
	}

	if err := w.opts.Store.Save(cfg); err != nil {
		return nil, dups, err
	}
	w.opts.Metrics.Configuration(ctx, cfg.Complete())
	return cfg, dups, nil
}

// claim samples until it wins the claim on a configuration nobody has
// evaluated yet.
func (w *Worker) claim(ctx context.Context) (string, int, error) {
	dups := 0
	for {
		args := w.opts.Sampler.Sample(w.rng)
		hash := result.Hash(args)
		if !w.opts.Store.Exists(hash) {
			ok, err := w.opts.Store.Claim(hash)
			if err != nil {
				return "", dups, err
			}
			if ok {
				return args, dups, nil
			}
		}
		dups++
		w.opts.Metrics.Duplicate(ctx)
		if dups >= w.opts.MaxResample {
			return "", dups, errs.Wrapf(ErrSpaceExhausted, "%d consecutive duplicates", dups)
		}
	}
}

// Outcome classifies an evaluation result for metrics.
func Outcome(res evaluator.Result) string {
	switch {
	case res.TimedOut:
		return telemetry.OutcomeTimeout
	case res.MemOut:
		return telemetry.OutcomeMemOut
	case res.Completed:
		return telemetry.OutcomeCompleted
	default:
		return telemetry.OutcomePenalized
	}
}

// Partitions lists the partition IDs a worker evaluates, in order, with the
// raw-data partition appended when evaluateDefault is set.
func Partitions(kind, args string, evaluateDefault bool) ([]string, error) {
	ids, err := partition.Enumerate(kind, args)
	if err != nil {
		return nil, err
	}
	if evaluateDefault && (len(ids) != 1 || ids[0] != partition.DefaultID) {
		ids = append(ids, partition.DefaultID)
	}
	return ids, nil
}
