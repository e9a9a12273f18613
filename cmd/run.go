package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
	sharedCommon "github.com/autobright/autobright/common"
	"github.com/autobright/autobright/internal/daemon"
	"github.com/autobright/autobright/pkg/logger"
)

// Seams for tests.
var (
	activateExisting = daemon.ActivateExisting
	startDaemon      = func(ctx context.Context, cfg *daemon.Config, deps *daemon.Dependencies) error {
		return daemon.New(cfg, deps).Start(ctx)
	}
)

func run(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	bg, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	running, err := activateExisting(bg)
	if running {
		if err != nil {
			common.PrintRuntimeErr(ctx, "run", "activate", err)
			return nil
		}
		fmt.Fprintln(common.Out(ctx), "autobright is already running")
		return nil
	}

	if ctx.Bool("debug") {
		_ = os.Setenv(sharedCommon.DebugEnv, "1")
	}
	l := platformLogger(logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)))
	defer l.Close()

	err = startDaemon(bg, &daemon.Config{
		ConfigDir: ctx.String("config-dir"),
		DryRun:    ctx.Bool("dry-run"),
		Version:   currentBuild.Version,
		Commit:    currentBuild.Commit,
		BuildType: currentBuild.BuildType,
	}, &daemon.Dependencies{Logger: l})
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "start", err)
	}
	return nil
}
