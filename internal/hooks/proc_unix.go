//go:build unix

package hooks

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the hook in its own process group so a timeout
// also kills anything the script spawned.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
