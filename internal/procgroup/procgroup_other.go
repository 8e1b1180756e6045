//go:build !unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// platformController has no process groups to work with; it signals only the
// top-level process.
type platformController struct{}

func (platformController) Prepare(*exec.Cmd) {}

func (platformController) Terminate(pid int) error {
	return killPID(pid)
}

func (platformController) ForceKill(pid int) error {
	return killPID(pid)
}

func killPID(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
