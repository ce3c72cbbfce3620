//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// detach starts the daemon in its own process group
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
