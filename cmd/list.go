package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

var (
	listDone bool
	listAll  bool

	lsFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "done, d",
			Usage:       "list completed downloads instead of the queue",
			Destination: &listDone,
		},
		cli.BoolFlag{
			Name:        "all, a",
			Usage:       "list both the queue and completed downloads",
			Destination: &listAll,
		},
	}
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printRows(header string, items []ctypes.Download, link func(*ctypes.Download) string) {
	fmt.Println(header)
	fmt.Println("------------------------------------------------------------------")
	for _, d := range items {
		line := fmt.Sprintf("%-10s %-30s %-12s", d.ID, truncate(d.Title, 30), d.Status)
		switch {
		case d.Status == ctypes.StatusDownloading:
			line += fmt.Sprintf(" %s %s", queuesync.FormatPercent(d.Percent), common.SpeedText(d.Speed, d.ETA))
		case d.Status == ctypes.StatusError && d.Msg != "":
			line += " " + d.Msg
		case d.Status == ctypes.StatusFinished:
			if sz := queuesync.FormatSize(d.Size); sz != "" {
				line += " " + sz
			}
			if l := link(&d); l != "" {
				line += "\n           " + l
			}
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "connect", err)
		return nil
	}
	defer sess.close()

	link := func(d *ctypes.Download) string {
		return sess.syncer.Config.DownloadLink(d)
	}

	queue := sess.syncer.Queue.Items()
	done := sess.syncer.Done.Items()
	if len(queue) == 0 && len(done) == 0 {
		fmt.Println("tubequeue: no downloads found")
		return nil
	}

	if !listDone || listAll {
		printRows(fmt.Sprintf("Queue (%d):", len(queue)), queue, link)
	}
	if listDone || listAll {
		printRows(fmt.Sprintf("Done (%d):", len(done)), done, link)
	}
	return nil
}
