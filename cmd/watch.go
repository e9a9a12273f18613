package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/autobright/autobright/cmd/common"
	sharedCommon "github.com/autobright/autobright/common"
	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/client"
)

// watchGrace is added to the transition time before giving up on the
// final step.
const watchGrace = 5 * time.Second

// watch subscribes to step notifications, runs start and renders a bar for
// channel until its final step arrives.
func watch(ctx *cli.Context, c *client.Client, channel transition.Channel, d time.Duration, start func() error) error {
	steps := make(chan sharedCommon.StepNotification, 256)
	c.OnStep(func(n sharedCommon.StepNotification) {
		if n.Channel != string(channel) {
			return
		}
		select {
		case steps <- n:
		default:
		}
	})
	defer c.OnStep(nil)

	if err := start(); err != nil {
		return err
	}

	p := mpb.New(mpb.WithOutput(common.Out(ctx)), mpb.WithWidth(48), mpb.WithRefreshRate(50*time.Millisecond))
	lb := common.InitLevelBar(p, string(channel))
	timeout := time.NewTimer(d + watchGrace)
	defer timeout.Stop()
	for !lb.Completed() {
		select {
		case n := <-steps:
			lb.Step(formatStep(channel, n.Value), n.Step, n.Steps)
		case <-timeout.C:
			lb.Abort()
			p.Wait()
			return fmt.Errorf("transition did not finish within %s", d+watchGrace)
		}
	}
	p.Wait()
	return nil
}

func formatStep(channel transition.Channel, v float64) string {
	if channel == transition.Overlay {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.0f%%", v)
}
