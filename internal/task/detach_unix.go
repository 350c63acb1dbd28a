//go:build unix

package task

import (
	"os/exec"
	"syscall"
)

// detach puts the worker in its own session so API signals and exits do not reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
