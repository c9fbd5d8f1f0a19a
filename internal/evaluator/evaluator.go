// Package evaluator runs one configuration on one partition in an isolated
// child process or container and turns whatever it printed into a score.
//
// The child is invoked as
//
//	<command> <args...> -partition <id> -timeout <seconds> -seed <seed> -name value ...
//
// and must print its score as the last non-empty line of stdout, either as
// a bare number or as "Time(<seconds>) Score(<score>)". Anything else, a
// crash, a non-zero exit or a timeout yields the configured penalty score.
// Evaluate only returns an error when the child could not be started.
package evaluator

import (
	"context"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/space"
)

// SeedEnv carries the worker seed to the child.
const SeedEnv = "AUTOTUNE_EXPERIMENT_SEED"

// DefaultPenalty is the score assigned to failed evaluations.
const DefaultPenalty = 100

// Isolation selects how the child is run.
type Isolation string

const (
	IsolationProcess   Isolation = "process"
	IsolationContainer Isolation = "container"
)

// Result is the outcome of one evaluation. Time is in seconds.
type Result struct {
	Score     float64
	Time      float64
	Completed bool
	MemOut    bool
	TimedOut  bool
	// Reason explains a penalized result.
	Reason string
}

// Penalized reports whether the score is the penalty rather than a measurement.
func (r Result) Penalized() bool { return !r.Completed }

// Evaluator runs configurations.
type Evaluator interface {
	Evaluate(ctx context.Context, argString, partitionID string, timeout time.Duration) (Result, error)
}

// Options configures an evaluator.
type Options struct {
	Command   string
	Args      []string
	Isolation Isolation
	WorkDir   string
	Env       map[string]string
	EnvFile   string
	Seed      string
	Penalty   float64

	Image         string
	CPULimit      float64
	MemoryLimitMB int

	Log zerolog.Logger
}

// New builds the evaluator for opts.Isolation.
func New(opts Options) (Evaluator, error) {
	if opts.Command == "" {
		return nil, errs.NewInvalidParameter("evaluator.command", "must be set", nil)
	}
	if opts.Penalty == 0 {
		opts.Penalty = DefaultPenalty
	}
	switch opts.Isolation {
	case "", IsolationProcess:
		return &Process{opts: opts}, nil
	case IsolationContainer:
		if opts.Image == "" {
			return nil, errs.NewInvalidParameter("evaluator.image", "container isolation needs an image", nil)
		}
		return NewContainer(opts), nil
	default:
		return nil, errs.NewInvalidParameter("evaluator.isolation", "must be process or container", string(opts.Isolation))
	}
}

// argv builds the child's arguments, without the command itself.
func (o Options) argv(argString, partitionID string, timeout time.Duration) []string {
	argv := append([]string(nil), o.Args...)
	argv = append(argv,
		"-partition", partitionID,
		"-timeout", strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64),
		"-seed", o.Seed,
	)
	return append(argv, space.Tokens(argString)...)
}

// env returns the variables added on top of the inherited environment, in
// a stable order. Later entries win.
func (o Options) env() ([]string, error) {
	keys := make([]string, 0, len(o.Env))
	for k := range o.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, k+"="+o.Env[k])
	}
	if o.EnvFile != "" {
		vars, err := ReadEnvFile(o.EnvFile)
		if err != nil {
			return nil, err
		}
		out = append(out, vars...)
	}
	return append(out, SeedEnv+"="+o.Seed), nil
}

func (o Options) penalty(elapsed float64, reason string) Result {
	return Result{Score: o.Penalty, Time: elapsed, Reason: reason}
}

// interpret maps the child's exit state and output onto a Result.
func (o Options) interpret(out []byte, exitCode int, timedOut, memOut bool, elapsed float64) Result {
	switch {
	case timedOut:
		r := o.penalty(elapsed, "timed out")
		r.TimedOut = true
		return r
	case memOut:
		r := o.penalty(elapsed, "out of memory")
		r.MemOut = true
		return r
	case exitCode != 0:
		return o.penalty(elapsed, "exit status "+strconv.Itoa(exitCode))
	}
	score, reported, err := ParseOutput(out)
	if err != nil {
		return o.penalty(elapsed, err.Error())
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return o.penalty(elapsed, "score is not finite")
	}
	t := elapsed
	if reported >= 0 && reported < t {
		t = reported
	}
	return Result{Score: score, Time: t, Completed: true}
}

func environ(extra []string) []string {
	return append(os.Environ(), extra...)
}
