package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuild BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuild = bArgs
	app := newApp(bArgs)
	common.VersionCmdStr = fmt.Sprintf(
		"%s %s (%s_%s)\nBuild: %s=%s",
		app.Name, app.Version, runtime.GOOS, runtime.GOARCH, bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}

func newApp(bArgs BuildArgs) *cli.App {
	app := cli.NewApp()
	app.Name = "autobright"
	app.HelpName = "autobright"
	app.Usage = "Scheduled screen brightness with a software dimming overlay."
	app.Version = fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType)
	app.UsageText = "autobright <command> [arguments...]"
	app.Description = DESCRIPTION
	app.CustomAppHelpTemplate = HELP_TEMPL
	app.OnUsageError = common.UsageErrorCallback
	app.HideHelp = true
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:               "run",
			Usage:              "start the brightness daemon",
			Description:        RunDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             run,
			Flags:              runFlags,
		},
		{
			Name:               "status",
			Aliases:            []string{"st"},
			Usage:              "show the daemon state",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             status,
		},
		{
			Name:               "stop",
			Usage:              "stop the running daemon",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             stop,
		},
		{
			Name:               "brightness",
			Aliases:            []string{"b"},
			Usage:              "read or set the hardware brightness",
			UsageText:          "brightness [percent] [--duration 2s] [--watch]",
			Description:        BrightnessDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             brightnessCmd,
			Flags:              levelFlags,
		},
		{
			Name:               "overlay",
			Aliases:            []string{"o"},
			Usage:              "set the dimming overlay level",
			UsageText:          "overlay <percent> [--duration 2s] [--watch]",
			Description:        OverlayDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             overlayCmd,
			Flags:              levelFlags,
		},
		{
			Name:        "schedule",
			Aliases:     []string{"s"},
			Usage:       "manage schedule entries",
			Description: ScheduleDescription,
			Subcommands: scheduleCommands,
		},
		{
			Name:               "history",
			Usage:              "show recent brightness changes",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             historyCmd,
			Flags:              historyFlags,
		},
		{
			Name:    "help",
			Aliases: []string{"h"},
			Usage:   "prints the help message",
			Action:  common.Help,
		},
		{
			Name:               "version",
			Aliases:            []string{"v"},
			Usage:              "prints installed version of autobright",
			UsageText:          " ",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             common.GetVersion,
		},
	}
	return app
}
