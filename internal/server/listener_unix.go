//go:build !windows

package server

import (
	"fmt"
	"net"
	"os"

	"github.com/autobright/autobright/common"
)

// Listen creates the daemon's Unix socket. Call it only after a dial has
// shown that no other instance owns the socket: a stale file is removed.
func Listen() (net.Listener, error) {
	path := common.SocketPath()
	_ = os.Remove(path)
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	l.SetUnlinkOnClose(false)
	_ = os.Chmod(path, 0700)
	return l, nil
}

// cleanupListener removes the socket file.
func cleanupListener() {
	_ = os.Remove(common.SocketPath())
}
