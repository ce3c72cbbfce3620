//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detach starts the daemon in a new session
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
