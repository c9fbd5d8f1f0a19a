// Package docker runs one evaluation command inside a throwaway container.
package docker

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
)

// Label marks containers started by autotune.
const Label = "autotune"

// WorkspaceDir is where RunOpts.WorkDir is mounted inside the container.
const WorkspaceDir = "/workspace"

type RunOpts struct {
	Image       string
	Command     []string
	WorkDir     string
	Env         map[string]string
	Timeout     time.Duration
	Mounts      []Mount
	CPULimit    float64
	MemoryLimit int64
	UserID      string
	Log         zerolog.Logger
}

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	// OOMKilled is the daemon's record of a kernel OOM kill.
	OOMKilled bool
	Duration  time.Duration
	Output    []byte
}

// Env flattens an environment map into KEY=VALUE entries.
func Env(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func (o *RunOpts) configs() (*container.Config, *container.HostConfig) {
	var mounts []mount.Mount
	if o.WorkDir != "" {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: o.WorkDir,
			Target: WorkspaceDir,
		})
	}
	for _, m := range o.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	if o.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(o.CPULimit * 1e9)
	}
	if o.MemoryLimit > 0 {
		hostCfg.Memory = o.MemoryLimit
	}

	containerCfg := &container.Config{
		Image: o.Image,
		Cmd:   o.Command,
		Env:   Env(o.Env),
		// A TTY gives one unmultiplexed output stream.
		Tty:    true,
		Labels: map[string]string{Label: "true"},
	}
	if o.WorkDir != "" {
		containerCfg.WorkingDir = WorkspaceDir
	}
	if o.UserID != "" {
		containerCfg.User = o.UserID
	}
	return containerCfg, hostCfg
}

// RunContainer starts the container, waits for it to exit or for the
// timeout, and returns its exit status and combined output. The container
// is always removed.
func RunContainer(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errs.Wrap(err, "creating docker client")
	}
	defer cli.Close()

	containerCfg, hostCfg := opts.configs()
	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "creating container from %s", opts.Image)
	}
	containerID := createResp.ID
	log := opts.Log.With().Str("container", containerID).Logger()
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, errs.Wrap(err, "starting container")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				log.Warn().Dur("timeout", opts.Timeout).Msg("container timed out, killed")
				return &RunResult{
					ExitCode: 124,
					TimedOut: true,
					Duration: time.Since(start),
					Output:   readLogs(cli, containerID, log),
				}, nil
			}
		case status := <-waitResult.Result:
			res := &RunResult{
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
				Output:   readLogs(cli, containerID, log),
			}
			inspect, err := cli.ContainerInspect(context.Background(), containerID, client.ContainerInspectOptions{})
			if err != nil {
				log.Debug().Err(err).Msg("inspecting exited container")
			}
			res.OOMKilled = oomKilled(inspect)
			log.Debug().Int("exit_code", res.ExitCode).Dur("duration", res.Duration).Msg("container exited")
			return res, nil
		}
	}
}

func oomKilled(inspect client.ContainerInspectResult) bool {
	return inspect.Container.State != nil && inspect.Container.State.OOMKilled
}

func readLogs(cli *client.Client, containerID string, log zerolog.Logger) []byte {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil || logReader == nil {
		log.Debug().Err(err).Msg("opening container logs")
		return nil
	}
	defer logReader.Close()
	return copyLogs(logReader, log)
}

// copyLogs returns whatever was read before a failure.
func copyLogs(r io.Reader, log zerolog.Logger) []byte {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		log.Debug().Err(err).Int("bytes", buf.Len()).Msg("reading container logs")
	}
	return buf.Bytes()
}
