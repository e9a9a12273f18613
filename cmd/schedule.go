package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
	sharedCommon "github.com/autobright/autobright/common"
	"github.com/autobright/autobright/pkg/client"
)

var scheduleCommands = []cli.Command{
	{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "list schedule entries",
		Action:  scheduleList,
	},
	{
		Name:      "add",
		Usage:     "add an entry",
		UsageText: "schedule add <HH:MM[:SS]> <brightness> <overlay>",
		Action:    scheduleAdd,
	},
	{
		Name:      "update",
		Usage:     "change an entry",
		UsageText: "schedule update <id> <HH:MM[:SS]> <brightness> <overlay>",
		Action:    scheduleUpdate,
	},
	{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "remove an entry",
		UsageText: "schedule remove <id>",
		Action:    scheduleRemove,
	},
	{
		Name:      "toggle",
		Usage:     "enable or disable an entry",
		UsageText: "schedule toggle <id>",
		Action:    scheduleToggle,
	},
}

var errEntryArgs = errors.New("expected <HH:MM[:SS]> <brightness> <overlay>")

// entryArgs parses time, brightness and overlay starting at args[from].
// The time is validated by the daemon.
func entryArgs(args cli.Args, from int) (at string, b, o int, err error) {
	if len(args) != from+3 {
		return "", 0, 0, errEntryArgs
	}
	at = args.Get(from)
	if b, err = strconv.Atoi(args.Get(from + 1)); err != nil {
		return "", 0, 0, fmt.Errorf("brightness: %w", errPercent)
	}
	if o, err = strconv.Atoi(args.Get(from + 2)); err != nil {
		return "", 0, 0, fmt.Errorf("overlay: %w", errPercent)
	}
	return at, b, o, nil
}

func idArg(args cli.Args) (int, error) {
	id, err := strconv.Atoi(args.First())
	if err != nil || len(args) != 1 {
		return 0, errors.New("expected a numeric entry id")
	}
	return id, nil
}

func printEntry(ctx *cli.Context, verb string, e *sharedCommon.ScheduleEntry) {
	state := "enabled"
	if !e.Enabled {
		state = "disabled"
	}
	fmt.Fprintf(common.Out(ctx), "%s entry %d: %s brightness %d%% overlay %d%% (%s)\n",
		verb, e.ID, e.Time, e.Brightness, e.OverlayBrightness, state)
}

func scheduleList(ctx *cli.Context) error {
	return withClient(ctx, "schedule", func(bg context.Context, c *client.Client) error {
		entries, err := c.ListSchedule(bg)
		if err != nil {
			common.PrintRuntimeErr(ctx, "schedule", "list", err)
			return nil
		}
		out := common.Out(ctx)
		if len(entries) == 0 {
			fmt.Fprintln(out, "autobright: no schedule entries")
			return nil
		}
		txt := "-----------------------------------------------------"
		txt += "\n| ID |   Time   | Brightness | Overlay |  Enabled  |"
		txt += "\n|----|----------|------------|---------|-----------|"
		for _, e := range entries {
			enabled := "yes"
			if !e.Enabled {
				enabled = "no"
			}
			txt += fmt.Sprintf("\n|%s| %s |%s|%s|%s|",
				common.Beaut(strconv.Itoa(e.ID), 4), e.Time,
				common.Beaut(fmt.Sprintf("%d%%", e.Brightness), 12),
				common.Beaut(fmt.Sprintf("%d%%", e.OverlayBrightness), 9),
				common.Beaut(enabled, 11))
		}
		txt += "\n-----------------------------------------------------"
		fmt.Fprintln(out, txt)
		return nil
	})
}

func scheduleAdd(ctx *cli.Context) error {
	at, b, o, err := entryArgs(ctx.Args(), 0)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "schedule", func(bg context.Context, c *client.Client) error {
		e, err := c.AddSchedule(bg, at, b, o)
		if err != nil {
			common.PrintRuntimeErr(ctx, "schedule", "add", err)
			return nil
		}
		printEntry(ctx, "Added", e)
		return nil
	})
}

func scheduleUpdate(ctx *cli.Context) error {
	args := ctx.Args()
	id, err := strconv.Atoi(args.First())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, errors.New("expected a numeric entry id"))
	}
	at, b, o, err := entryArgs(args, 1)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "schedule", func(bg context.Context, c *client.Client) error {
		e, err := c.UpdateSchedule(bg, id, at, b, o)
		if err != nil {
			common.PrintRuntimeErr(ctx, "schedule", "update", err)
			return nil
		}
		printEntry(ctx, "Updated", e)
		return nil
	})
}

func scheduleRemove(ctx *cli.Context) error {
	id, err := idArg(ctx.Args())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "schedule", func(bg context.Context, c *client.Client) error {
		if err := c.RemoveSchedule(bg, id); err != nil {
			common.PrintRuntimeErr(ctx, "schedule", "remove", err)
			return nil
		}
		fmt.Fprintf(common.Out(ctx), "Removed entry %d\n", id)
		return nil
	})
}

func scheduleToggle(ctx *cli.Context) error {
	id, err := idArg(ctx.Args())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "schedule", func(bg context.Context, c *client.Client) error {
		e, err := c.ToggleSchedule(bg, id)
		if err != nil {
			common.PrintRuntimeErr(ctx, "schedule", "toggle", err)
			return nil
		}
		printEntry(ctx, "Toggled", e)
		return nil
	})
}
