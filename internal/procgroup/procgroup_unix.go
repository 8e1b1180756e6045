//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

type platformController struct{}

func (platformController) Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func (platformController) Terminate(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

func (platformController) ForceKill(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

// signalGroup sends sig to every process in the group led by pid.
// A group that has already exited is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return errors.New("procgroup: invalid pid")
	}
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
