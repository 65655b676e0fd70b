// Package ipc locates and opens the local Unix socket that clipstack CLI
// commands use to reach a running daemon.
//
// The socket is created with owner-only permissions, so the daemon trusts
// every connection on it without further authentication.
package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const socketName = "clipstack.sock"

// SocketPath returns the socket location:
//
//	$CLIPSTACK_SOCKET                  explicit override
//	$XDG_RUNTIME_DIR/clipstack.sock    Linux desktop sessions
//	$TMPDIR/clipstack-$UID.sock        everything else
func SocketPath() string {
	if s := os.Getenv("CLIPSTACK_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("clipstack-%d.sock", os.Getuid()))
}

// IsRunning reports whether a daemon appears to be listening on path.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen opens the socket at path. A stale socket left by a crashed daemon
// is removed; a live one is an error so two daemons never share history.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("a clipstack daemon is already listening on %s", path)
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Dial connects to the daemon socket at path.
func Dial(path string) (net.Conn, error) {
	return net.DialTimeout("unix", path, 2*time.Second)
}
