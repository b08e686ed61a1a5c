package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
)

// watchRow pairs a queue entry with its progress bar. Speed and ETA are
// read by the bar's decorator, so they live behind the row mutex.
type watchRow struct {
	bar *mpb.Bar

	mu    sync.Mutex
	speed int64
	eta   int64
}

func (r *watchRow) speedText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.SpeedText(r.speed, r.eta)
}

// watch renders live progress bars for the queue until interrupted or,
// with --until-done, until the queue drains.
var (
	watchUntilDone bool

	watchFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "until-done, u",
			Usage:       "exit once the queue is empty",
			Destination: &watchUntilDone,
		},
	}
)

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := dialSession(runCtx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "connect", err)
		return nil
	}
	defer sess.close()

	sess.client.OnStatus(func(connected bool) {
		if !connected {
			fmt.Fprintln(os.Stderr, "tubequeue: connection lost, reconnecting...")
		}
	})

	p := mpb.New(mpb.WithWidth(64))
	rows := make(map[string]*watchRow)

	// The stores mutate on the event channel goroutine; a render tick
	// reads consistent copies instead of chasing every cosmetic update.
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			for _, r := range rows {
				r.bar.Abort(true)
			}
			p.Wait()
			return nil
		case <-ticker.C:
		}

		items := sess.syncer.Queue.Items()
		live := make(map[string]bool, len(items))
		for _, d := range items {
			live[d.ID] = true
			r, ok := rows[d.ID]
			if !ok {
				r = &watchRow{}
				r.bar = common.InitQueueBar(p, truncate(d.Title, 28), r.speedText)
				rows[d.ID] = r
			}
			r.mu.Lock()
			r.speed = d.Speed
			r.eta = d.ETA
			r.mu.Unlock()
			r.bar.SetCurrent(int64(d.Percent))
		}

		for id, r := range rows {
			if live[id] {
				continue
			}
			// Completed rows fill to 100; canceled ones disappear.
			if d, ok := sess.syncer.Done.Get(id); ok && d.Status == ctypes.StatusFinished {
				r.bar.SetCurrent(100)
			} else {
				r.bar.Abort(true)
			}
			delete(rows, id)
		}

		if watchUntilDone && len(items) == 0 {
			p.Wait()
			fmt.Println("tubequeue: queue empty")
			return nil
		}
	}
}
