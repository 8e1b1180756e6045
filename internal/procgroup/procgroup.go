// Package procgroup starts child processes in their own process group and
// signals the whole group, so CLIs that fork helpers cannot outlive a kill.
package procgroup

import "os/exec"

// Controller prepares commands and terminates their process groups.
type Controller interface {
	// Prepare configures cmd, before Start, to lead a new process group.
	Prepare(cmd *exec.Cmd)
	// Terminate asks the group led by pid to exit.
	Terminate(pid int) error
	// ForceKill kills the group led by pid.
	ForceKill(pid int) error
}

// New returns the controller for the current platform.
func New() Controller {
	return platformController{}
}
