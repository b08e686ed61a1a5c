// Package cmd defines the tubequeue command-line interface.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
)

// Build-time variables, overridden through -ldflags.
var (
	version   = "0.1.0"
	BuildType = "dev"
)

func usageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	return common.PrintErrWithCmdHelp(ctx, err)
}

func Execute(args []string) error {
	common.VersionCmdStr = fmt.Sprintf(
		"tubequeue %s-%s (%s/%s)", version, BuildType, runtime.GOOS, runtime.GOARCH,
	)
	app := cli.App{
		Name:      "TubeQueue",
		HelpName:  "tubequeue",
		Usage:     "A synchronized download queue for media sites.",
		Version:   fmt.Sprintf("%s-%s", version, BuildType),
		UsageText: "tubequeue <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "daemon",
				Usage:  "run the download queue daemon",
				Flags:  daemonFlags,
				Action: daemon,
			},
			{
				Name:                   "add",
				Aliases:                []string{"a"},
				Usage:                  "queue a new download",
				UsageText:              "tubequeue add [options] <url>",
				Action:                 add,
				Flags:                  addFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "list",
				Aliases:                []string{"l"},
				Usage:                  "display the download queue and history",
				Action:                 list,
				Flags:                  lsFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "watch",
				Aliases:                []string{"w"},
				Usage:                  "render live download progress",
				Action:                 watch,
				Flags:                  watchFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "start",
				Usage:                  "start pending downloads",
				UsageText:              "tubequeue start <id>...",
				Action:                 start,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "delete",
				Aliases:                []string{"rm"},
				Usage:                  "remove downloads from the queue or history",
				UsageText:              "tubequeue delete [options] <id>...",
				Action:                 del,
				Flags:                  delFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "clear",
				Usage:                  "clear finished or failed downloads",
				Action:                 clear,
				Flags:                  clearFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "retry",
				Usage:                  "retry completed downloads",
				UsageText:              "tubequeue retry [options] [id]",
				Action:                 retry,
				Flags:                  retryFlags,
				OnUsageError:           usageErrorCallback,
				UseShortOptionHandling: true,
			},
			{
				Name:        "schedule",
				Usage:       "manage recurring download schedules",
				Subcommands: scheduleCommands(),
			},
			{
				Name:        "secret",
				Usage:       "manage the rpc secret",
				Subcommands: secretCommands(),
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "prints the installed version of tubequeue",
				Action:  common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	return app.Run(args)
}
