package evaluator

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/signalnine/autotune/internal/errs"
)

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 2 * time.Second

// Process runs the evaluator as a child process in its own process group.
type Process struct {
	opts Options
}

func (p *Process) Evaluate(ctx context.Context, argString, partitionID string, timeout time.Duration) (Result, error) {
	extra, err := p.opts.env()
	if err != nil {
		return Result{}, err
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.opts.Command, p.opts.argv(argString, partitionID, timeout)...)
	cmd.Dir = p.opts.WorkDir
	cmd.Env = environ(extra)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	log := p.opts.Log.With().Str("partition", partitionID).Logger()
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, errs.NewIOError("start evaluator", p.opts.Command, err)
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start).Seconds()

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	res := p.opts.interpret(stdout.Bytes(), exitCode, timedOut, false, elapsed)
	if res.Penalized() {
		log.Debug().
			Str("reason", res.Reason).
			Int("exit_code", exitCode).
			Str("stderr", tail(stderr.Bytes(), 2048)).
			Msg("evaluation penalized")
	}
	return res, nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
