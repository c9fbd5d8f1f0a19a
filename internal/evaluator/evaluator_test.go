package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/autotune/internal/docker"
	"github.com/signalnine/autotune/internal/errs"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func process(t *testing.T, body string) *Process {
	t.Helper()
	ev, err := New(Options{Command: script(t, body), Seed: "7", Log: zerolog.Nop()})
	require.NoError(t, err)
	return ev.(*Process)
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		score    float64
		reported float64
		wantErr  bool
	}{
		{"bare number", "loading\n0.25\n", 0.25, -1, false},
		{"trailing blank lines", "3.5\n\n  \n", 3.5, -1, false},
		{"tagged", "SubProcessWrapper: Time(1.5) Score(12.5)", 12.5, 1.5, false},
		{"tagged without prefix", "Time(2) Score(1e-3)", 0.001, 2, false},
		{"garbage", "done\n", 0, -1, true},
		{"empty", "", 0, -1, true},
		{"bad tagged score", "Time(2) Score(x)", 0, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reported, err := ParseOutput([]byte(tt.out))
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.ErrParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.reported, reported)
		})
	}
}

func TestProcessScores(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		score     float64
		completed bool
	}{
		{"number", "echo warming; echo 0.125", 0.125, true},
		{"tagged", "echo 'SubProcessWrapper: Time(30) Score(4.5)'", 4.5, true},
		{"malformed", "echo oops", DefaultPenalty, false},
		{"nan", "echo NaN", DefaultPenalty, false},
		{"inf", "echo +Inf", DefaultPenalty, false},
		{"non-zero exit", "echo 0.5; exit 3", DefaultPenalty, false},
		{"no output", "true", DefaultPenalty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := process(t, tt.body).Evaluate(context.Background(), "-C 1 ", "default", 10*time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.completed, res.Completed)
			assert.Greater(t, res.Time, 0.0)
		})
	}
}

func TestReportedTimeOnlyLowersMeasuredTime(t *testing.T) {
	res, err := process(t, "echo 'Time(0) Score(1)'").Evaluate(context.Background(), "", "default", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Time)

	res, err = process(t, "echo 'Time(500) Score(1)'").Evaluate(context.Background(), "", "default", 10*time.Second)
	require.NoError(t, err)
	assert.Less(t, res.Time, 500.0)
}

func TestProcessTimeout(t *testing.T) {
	start := time.Now()
	res, err := process(t, "sleep 30; echo 0").Evaluate(context.Background(), "", "default", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Completed)
	assert.Equal(t, float64(DefaultPenalty), res.Score)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.GreaterOrEqual(t, res.Time, 0.2)
}

func TestProcessArgvAndEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "eval.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# secrets\nexport TOKEN='abc'\nBAD LINE\n"), 0o644))

	out := filepath.Join(dir, "seen.txt")
	body := `echo "$@" > ` + out + `
echo "$AUTOTUNE_EXPERIMENT_SEED $TOKEN $AUTOTUNE_DATASET" >> ` + out + `
echo 1`
	ev, err := New(Options{
		Command: script(t, body),
		Args:    []string{"--mode", "cv"},
		Seed:    "11",
		Env:     map[string]string{"AUTOTUNE_DATASET": "/data/iris.csv"},
		EnvFile: envFile,
		Penalty: 50,
	})
	require.NoError(t, err)
	res, err := ev.Evaluate(context.Background(), "-C 0.25 -M 2 ", "seed=0:numFolds=10:fold=3", 90*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Completed)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "--mode cv -partition seed=0:numFolds=10:fold=3 -timeout 90 -seed 11 -C 0.25 -M 2", lines[0])
	assert.Equal(t, "11 abc /data/iris.csv", lines[1])
}

func TestMissingBinaryIsIOError(t *testing.T) {
	ev, err := New(Options{Command: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)
	_, err = ev.Evaluate(context.Background(), "", "default", time.Second)
	assert.True(t, errs.Is(err, errs.ErrIO))
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
	_, err = New(Options{Command: "eval", Isolation: IsolationContainer})
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
	_, err = New(Options{Command: "eval", Isolation: "vm"})
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
}

func TestContainerMapsRunResult(t *testing.T) {
	tests := []struct {
		name      string
		res       docker.RunResult
		score     float64
		completed bool
		memOut    bool
	}{
		{"ok", docker.RunResult{Output: []byte("0.3\r\n"), Duration: time.Second}, 0.3, true, false},
		{"timeout", docker.RunResult{ExitCode: 124, TimedOut: true, Duration: time.Second}, 100, false, false},
		{"oom", docker.RunResult{ExitCode: 137, OOMKilled: true, Duration: time.Second}, 100, false, true},
		{"crash", docker.RunResult{ExitCode: 1, Output: []byte("0.3"), Duration: time.Second}, 100, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *docker.RunOpts
			c := NewContainer(Options{
				Command:       "/opt/eval",
				Image:         "autotune/eval",
				Seed:          "2",
				Penalty:       100,
				MemoryLimitMB: 256,
			})
			c.run = func(_ context.Context, opts *docker.RunOpts) (*docker.RunResult, error) {
				got = opts
				r := tt.res
				return &r, nil
			}
			res, err := c.Evaluate(context.Background(), "-x 1 ", "default", 5*time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.completed, res.Completed)
			assert.Equal(t, tt.memOut, res.MemOut)

			require.NotNil(t, got)
			assert.Equal(t, []string{"/opt/eval", "-partition", "default", "-timeout", "5", "-seed", "2", "-x", "1"}, got.Command)
			assert.Equal(t, int64(256)<<20, got.MemoryLimit)
			assert.Equal(t, "2", got.Env[SeedEnv])
		})
	}
}
