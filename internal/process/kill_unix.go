//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child as the leader of a new process group so a
// cancellation can reach the helpers a TeX run spawns (bibtex, mpost, ...).
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup sends SIGKILL to the process group led by pid.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; cmd.Process.Kill() runs afterwards as the fallback.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
