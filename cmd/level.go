package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/client"
)

var (
	errPercent     = errors.New("percent must be a whole number between 0 and 100")
	errWatchNeedsD = errors.New("--watch needs --duration greater than zero")
)

// levelArgs reads the percent argument and the transition flags. d is
// negative when --duration was not given.
func levelArgs(ctx *cli.Context) (percent int, d time.Duration, err error) {
	percent, err = strconv.Atoi(ctx.Args().First())
	if err != nil || percent < 0 || percent > 100 {
		return 0, 0, errPercent
	}
	d = -1
	if ctx.IsSet("duration") {
		d = ctx.Duration("duration")
	}
	if ctx.Bool("watch") && d <= 0 {
		return 0, 0, errWatchNeedsD
	}
	return percent, d, nil
}

func brightnessCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if !ctx.Args().Present() {
		return withClient(ctx, "brightness", func(bg context.Context, c *client.Client) error {
			res, err := c.Brightness(bg)
			if err != nil {
				common.PrintRuntimeErr(ctx, "brightness", "get", err)
				return nil
			}
			if !res.OK {
				fmt.Fprintf(common.Out(ctx), "Brightness unavailable: %s\n", res.Message)
				return nil
			}
			fmt.Fprintf(common.Out(ctx), "Brightness: %d%%\n", res.Value)
			return nil
		})
	}
	percent, d, err := levelArgs(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "brightness", func(bg context.Context, c *client.Client) error {
		set := func() error {
			res, err := c.SetBrightness(bg, percent, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(common.Out(ctx), "Brightness %d%%: %s\n", res.Value, res.Message)
			return nil
		}
		if ctx.Bool("watch") {
			err = watch(ctx, c, transition.Brightness, d, set)
		} else {
			err = set()
		}
		if err != nil {
			common.PrintRuntimeErr(ctx, "brightness", "set", err)
		}
		return nil
	})
}

func overlayCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	percent, d, err := levelArgs(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withClient(ctx, "overlay", func(bg context.Context, c *client.Client) error {
		set := func() error {
			res, err := c.SetOverlay(bg, percent, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(common.Out(ctx), res.Message)
			return nil
		}
		if ctx.Bool("watch") {
			err = watch(ctx, c, transition.Overlay, d, set)
		} else {
			err = set()
		}
		if err != nil {
			common.PrintRuntimeErr(ctx, "overlay", "set", err)
		}
		return nil
	})
}
