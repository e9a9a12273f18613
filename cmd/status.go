package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/autobright/autobright/cmd/common"
	"github.com/autobright/autobright/pkg/client"
)

func status(ctx *cli.Context) error {
	return withClient(ctx, "status", func(bg context.Context, c *client.Client) error {
		st, err := c.Status(bg)
		if err != nil {
			common.PrintRuntimeErr(ctx, "status", "get_status", err)
			return nil
		}
		out := common.Out(ctx)
		fmt.Fprintf(out, "Daemon:       %s (monitor %s)\n", runningText(st.Running), st.Monitor)
		fmt.Fprintf(out, "Status:       %s\n", st.Message)
		if st.Brightness.OK {
			fmt.Fprintf(out, "Brightness:   %d%%\n", st.Brightness.Value)
		} else {
			fmt.Fprintf(out, "Brightness:   unavailable (%s)\n", st.Brightness.Message)
		}
		if st.OverlayRunning {
			fmt.Fprintf(out, "Overlay:      on, opacity %.2f on %d display(s) [%s]\n", st.OverlayOpacity, len(st.Displays), st.OverlayBackend)
		} else {
			fmt.Fprintf(out, "Overlay:      off [%s]\n", st.OverlayBackend)
		}
		fmt.Fprintf(out, "Schedules:    %d\n", st.Entries)
		if st.NextEntry != nil && st.NextRun != nil {
			fmt.Fprintf(out, "Next:         %s at %s (brightness %d%%, overlay %d%%)\n",
				st.NextEntry.Time, st.NextRun.Local().Format(time.DateTime),
				st.NextEntry.Brightness, st.NextEntry.OverlayBrightness)
		}
		if st.LastTrigger != nil {
			fmt.Fprintf(out, "Last trigger: %s\n", st.LastTrigger.Local().Format(time.DateTime))
		}
		return nil
	})
}

func runningText(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func stop(ctx *cli.Context) error {
	return withClient(ctx, "stop", func(bg context.Context, c *client.Client) error {
		if err := c.Stop(bg); err != nil {
			common.PrintRuntimeErr(ctx, "stop", "stop_daemon", err)
			return nil
		}
		fmt.Fprintln(common.Out(ctx), "Daemon stopped")
		return nil
	})
}

func historyCmd(ctx *cli.Context) error {
	return withClient(ctx, "history", func(bg context.Context, c *client.Client) error {
		events, err := c.History(bg, ctx.Int("limit"))
		if err != nil {
			common.PrintRuntimeErr(ctx, "history", "get_history", err)
			return nil
		}
		out := common.Out(ctx)
		if len(events) == 0 {
			fmt.Fprintln(out, "autobright: no history yet")
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(out, "%s  %-8s  %s  %s  %s\n",
				e.At.Local().Format(time.DateTime), e.Source,
				levelText("brightness", e.Brightness), levelText("overlay", e.Overlay),
				outcomeText(e.OK, e.Message))
		}
		return nil
	})
}

func levelText(name string, v int) string {
	if v < 0 {
		return fmt.Sprintf("%s %4s", name, "-")
	}
	return fmt.Sprintf("%s %3d%%", name, v)
}

func outcomeText(ok bool, msg string) string {
	if ok {
		return "ok"
	}
	return "failed: " + msg
}
