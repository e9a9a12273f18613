package cmd

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
	"github.com/autobright/autobright/pkg/client"
)

// callTimeout bounds a single request to the daemon.
const callTimeout = 10 * time.Second

var dialDaemon = client.Dial

// withClient connects to the daemon and runs fn. Connection and call
// errors are printed as "<app>: <cmd>[<action>]: <err>".
func withClient(ctx *cli.Context, cmd string, fn func(context.Context, *client.Client) error) error {
	bg, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	c, err := dialDaemon(bg)
	if err != nil {
		common.PrintRuntimeErr(ctx, cmd, "new_client", err)
		return nil
	}
	defer c.Close()
	c.CheckVersionMismatch(bg, os.Stderr, currentBuild.Version)
	return fn(bg, c)
}
