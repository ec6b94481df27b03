package ipc

import (
	"os"
	"path/filepath"
)

// SocketDir returns the directory for the rtsh daemon socket.
// Prefers $XDG_RUNTIME_DIR/rtsh/, falls back to ~/.local/share/rtsh/.
func SocketDir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "rtsh"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "rtsh"), nil
}

// SocketPath returns the full path to the daemon socket file.
func SocketPath() (string, error) {
	dir, err := SocketDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.sock"), nil
}

// PidPath returns the full path to the daemon PID file.
func PidPath() (string, error) {
	dir, err := SocketDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.pid"), nil
}
