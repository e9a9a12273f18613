// Package common holds the helpers shared by the autobright CLI commands:
// progress bars for --watch, help output and error printing.
package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// VersionCmdStr is printed by the version command. Execute fills it in.
var VersionCmdStr string

var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// LevelBar follows one transition channel. Steps drive the bar; the last
// applied value is shown next to it.
type LevelBar struct {
	bar  *mpb.Bar
	mu   sync.Mutex
	last string
}

// InitLevelBar adds a bar named name to p.
func InitLevelBar(p *mpb.Progress, name string) *LevelBar {
	lb := &LevelBar{last: "-"}
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	lb.bar = p.New(0,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "Done"),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string { return lb.value() }, decor.WC{W: 6}),
		),
	)
	return lb
}

// Step moves the bar to step of steps and records the displayed value.
// The bar completes on the final step.
func (lb *LevelBar) Step(value string, step, steps int) {
	lb.mu.Lock()
	lb.last = value
	lb.mu.Unlock()
	lb.bar.SetTotal(int64(steps), false)
	lb.bar.SetCurrent(int64(step))
	if step >= steps {
		lb.bar.SetTotal(int64(steps), true)
	}
}

func (lb *LevelBar) value() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.last
}

// Completed reports whether the final step was seen.
func (lb *LevelBar) Completed() bool { return lb.bar.Completed() }

// Abort removes an unfinished bar.
func (lb *LevelBar) Abort() { lb.bar.Abort(false) }

// Help prints application help, or help for the command named in the
// first argument.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	if err := showCommandHelp(ctx, arg); err != nil {
		return PrintErrWithHelp(ctx, err)
	}
	return nil
}

func GetVersion(ctx *cli.Context) error {
	fmt.Fprintln(Out(ctx), VersionCmdStr)
	return nil
}

// Out is the command output writer.
func Out(ctx *cli.Context) io.Writer {
	if ctx != nil && ctx.App != nil && ctx.App.Writer != nil {
		return ctx.App.Writer
	}
	return os.Stdout
}

// PrintRuntimeErr prints err as "<app>: <cmd>[<action>]: <err>".
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	if err == nil {
		fmt.Fprintln(Out(ctx), "err is nil", "[", cmd, "|", action, "]")
		return
	}
	name := os.Args[0]
	if ctx != nil {
		name = ctx.App.HelpName
	}
	fmt.Fprintf(Out(ctx), "%s: %s[%s]: %s\n", name, cmd, action, err.Error())
}

// PrintErrWithCmdHelp prints err and the current command's help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		if err := showCommandHelp(ctx, ctx.Command.Name); err != nil {
			fmt.Fprintln(Out(ctx), err.Error())
		}
	})
}

// PrintErrWithHelp prints err and the application help, then exits 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		showAppHelpAndExit(ctx, 1)
	})
}

func printErrWithCallback(ctx *cli.Context, err error, callback func()) error {
	if err == nil {
		return nil
	}
	estr := strings.ToLower(err.Error())
	if estr == "flag: help requested" {
		return Help(ctx)
	}
	if strings.Contains(estr, "-version") {
		return GetVersion(ctx)
	}
	fmt.Fprintf(Out(ctx), "%s: %s\n\n", ctx.App.HelpName, err.Error())
	callback()
	return nil
}

// UsageErrorCallback is the OnUsageError hook for the app and its commands.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}

// Beaut centers s in a field of width n.
func Beaut(s string, n int) string {
	x := n - len(s)
	if x <= 0 {
		return s
	}
	pad := strings.Repeat(" ", x/2)
	b := pad + s + pad
	if x%2 != 0 {
		b += " "
	}
	return b
}
