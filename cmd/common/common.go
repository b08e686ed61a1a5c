// Package common provides shared utilities for CLI commands: progress
// bar construction, error printing, and help display.
package common

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

// VersionCmdStr holds the formatted version string displayed by the
// version command. Populated by Execute with build-time information.
var VersionCmdStr string

var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// InitQueueBar creates a progress bar for one queue row. The bar tracks
// percent (0..100) rather than bytes because the server reports progress
// as a percentage; speed and ETA come from the download record and are
// rendered through the trailing decorator.
func InitQueueBar(p *mpb.Progress, title string, speed func() string) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	bar := p.New(100,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(title, decor.WC{W: len(title) + 1, C: decor.DindentRight}),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string { return speed() }),
		),
	)
	return bar
}

// SpeedText renders the speed/ETA suffix for a queue row.
func SpeedText(speed, eta int64) string {
	s := queuesync.FormatSpeed(speed)
	e := queuesync.FormatETA(eta)
	switch {
	case s == "" && e == "":
		return ""
	case e == "":
		return s
	default:
		return fmt.Sprintf("%s  eta %s", s, e)
	}
}

// Help displays help for the application or a specific command.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	return showCommandHelp(ctx, arg)
}

// GetVersion prints the version string to stdout.
func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// PrintRuntimeErr formats and prints a runtime error message to stdout.
// It includes the application name, command name, action identifier, and
// the error message.
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	if err == nil {
		fmt.Println("err is nil", "[", cmd, "|", action, "]")
		return
	}
	var name string
	if ctx != nil {
		name = ctx.App.HelpName
	} else {
		name = os.Args[0]
	}
	fmt.Printf("%s: %s[%s]: %s\n", name, cmd, action, err.Error())
}

// PrintErrWithCmdHelp prints the error message followed by the current
// command's help text.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	if err == nil {
		return nil
	}
	fmt.Println(err.Error())
	if herr := showCommandHelp(ctx, ctx.Command.Name); herr != nil {
		fmt.Println(herr.Error())
	}
	return nil
}
