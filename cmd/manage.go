package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
)

var (
	deleteDone bool

	delFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "done, d",
			Usage:       "delete from the completed list instead of the queue",
			Destination: &deleteDone,
		},
	}

	clearFailed bool

	clearFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "failed, f",
			Usage:       "clear failed downloads instead of finished ones",
			Destination: &clearFailed,
		},
	}

	retryAll bool

	retryFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "all, a",
			Usage:       "retry every failed download",
			Destination: &retryAll,
		},
	}
)

// start begins pending downloads by id.
func start(ctx *cli.Context) error {
	ids := ctx.Args()
	if len(ids) == 0 || ids.First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "start", "connect", err)
		return nil
	}
	defer sess.close()

	if err := sess.syncer.Start(context.Background(), ids); err != nil {
		common.PrintRuntimeErr(ctx, "start", "start", err)
		return nil
	}
	fmt.Printf("tubequeue: started %d download(s)\n", len(ids))
	return nil
}

// del removes downloads by id. Rows vanish when the server's matching
// removal event arrives, not when the command is acknowledged.
func del(ctx *cli.Context) error {
	ids := ctx.Args()
	if len(ids) == 0 || ids.First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "delete", "connect", err)
		return nil
	}
	defer sess.close()

	sel := sess.syncer.QueueSel
	where := ctypes.WhereQueue
	if deleteDone {
		sel = sess.syncer.DoneSel
		where = ctypes.WhereDone
	}
	for _, id := range ids {
		sel.Toggle(id)
	}
	if len(sel.Selected()) == 0 {
		fmt.Println("tubequeue: no matching downloads")
		return nil
	}
	if err := sess.syncer.DeleteSelected(context.Background(), where); err != nil {
		common.PrintRuntimeErr(ctx, "delete", "delete", err)
		return nil
	}
	fmt.Printf("tubequeue: requested removal of %d download(s)\n", len(ids))
	return nil
}

// clear removes finished (or failed) downloads from the done list.
func clear(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "clear", "connect", err)
		return nil
	}
	defer sess.close()

	if clearFailed {
		err = sess.syncer.ClearFailed(context.Background())
	} else {
		err = sess.syncer.ClearCompleted(context.Background())
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "clear", "clear", err)
	}
	return nil
}

// retry re-submits completed downloads.
func retry(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "help" || (id == "" && !retryAll) {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "retry", "connect", err)
		return nil
	}
	defer sess.close()

	if retryAll {
		if err := sess.syncer.RetryFailed(context.Background()); err != nil {
			common.PrintRuntimeErr(ctx, "retry", "retry_failed", err)
		}
		return nil
	}
	if err := sess.syncer.RetryDownload(context.Background(), id); err != nil {
		common.PrintRuntimeErr(ctx, "retry", "retry", err)
	}
	return nil
}
