//go:build unix

package client

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the spawned daemon into its own session so it
// survives the client's terminal closing.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
