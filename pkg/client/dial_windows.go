//go:build windows

package client

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/autobright/autobright/common"
)

func dial(ctx context.Context) (net.Conn, error) {
	return winio.DialPipeContext(ctx, common.PipePath())
}
