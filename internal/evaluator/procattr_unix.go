//go:build unix

package evaluator

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the child in a new process group and kills the
// whole group on cancellation, so grandchildren do not outlive a timeout.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
