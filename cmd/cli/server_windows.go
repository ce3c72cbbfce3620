//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the library server from the terminal session
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
