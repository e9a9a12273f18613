//go:build windows

package server

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/autobright/autobright/common"
)

// pipeSecurityDescriptor grants access to SYSTEM, Administrators and the
// pipe's creator only.
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// Listen creates the daemon's named pipe.
func Listen() (net.Listener, error) {
	path := common.PipePath()
	l, err := winio.ListenPipe(path, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
		MessageMode:        false,
	})
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return l, nil
}

func cleanupListener() {}
