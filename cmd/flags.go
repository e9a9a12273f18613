package cmd

import (
	"github.com/urfave/cli"

	"github.com/autobright/autobright/common"
	"github.com/autobright/autobright/internal/config"
)

var (
	runFlags = []cli.Flag{
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "use an in-memory brightness backend instead of the hardware",
		},
		cli.StringFlag{
			Name:   "config-dir",
			Usage:  "directory holding settings, schedules and history",
			EnvVar: config.DirEnv,
		},
		cli.BoolFlag{
			Name:   "debug",
			Usage:  "enable debug logging",
			EnvVar: common.DebugEnv,
		},
	}

	levelFlags = []cli.Flag{
		cli.DurationFlag{
			Name:  "duration, d",
			Usage: "transition time, e.g. 2s (default: the daemon's manual transition)",
		},
		cli.BoolFlag{
			Name:  "watch, w",
			Usage: "follow the transition with a progress bar",
		},
	}

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "limit, n",
			Usage: "number of events to show",
			Value: 20,
		},
	}
)
