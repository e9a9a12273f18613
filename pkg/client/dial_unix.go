//go:build !windows

package client

import (
	"context"
	"net"

	"github.com/autobright/autobright/common"
)

func dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", common.SocketPath())
}
