package evaluator

import (
	"context"
	"strings"
	"time"

	"github.com/signalnine/autotune/internal/docker"
	"github.com/signalnine/autotune/internal/errs"
)

// Container runs the evaluator command inside a container image.
type Container struct {
	opts Options
	run  func(context.Context, *docker.RunOpts) (*docker.RunResult, error)
}

// NewContainer returns a container evaluator backed by the local docker daemon.
func NewContainer(opts Options) *Container {
	return &Container{opts: opts, run: docker.RunContainer}
}

func (c *Container) runOpts(argString, partitionID string, timeout time.Duration) (*docker.RunOpts, error) {
	extra, err := c.opts.env()
	if err != nil {
		return nil, err
	}
	env := make(map[string]string, len(extra))
	for _, kv := range extra {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return &docker.RunOpts{
		Image:       c.opts.Image,
		Command:     append([]string{c.opts.Command}, c.opts.argv(argString, partitionID, timeout)...),
		WorkDir:     c.opts.WorkDir,
		Env:         env,
		Timeout:     timeout,
		CPULimit:    c.opts.CPULimit,
		MemoryLimit: int64(c.opts.MemoryLimitMB) << 20,
		Log:         c.opts.Log,
	}, nil
}

func (c *Container) Evaluate(ctx context.Context, argString, partitionID string, timeout time.Duration) (Result, error) {
	opts, err := c.runOpts(argString, partitionID, timeout)
	if err != nil {
		return Result{}, err
	}
	res, err := c.run(ctx, opts)
	if err != nil {
		return Result{}, errs.NewIOError("start container", c.opts.Image, err)
	}
	return c.opts.interpret(res.Output, res.ExitCode, res.TimedOut, res.OOMKilled, res.Duration.Seconds()), nil
}
