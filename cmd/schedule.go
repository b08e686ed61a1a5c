package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/queuecli"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

var (
	schedInterval string
	schedCron     string
	schedFolder   string

	schedAddFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "every, e",
			Usage:       "preset interval (every30min, hourly, every6h, daily, weekly, monthly)",
			Destination: &schedInterval,
		},
		cli.StringFlag{
			Name:        "cron, c",
			Usage:       "custom five-field cron expression (overrides --every)",
			Destination: &schedCron,
		},
		cli.StringFlag{
			Name:        "folder",
			Usage:       "custom download directory for scheduled downloads",
			Destination: &schedFolder,
		},
	}

	schedUpdateFlags = schedAddFlags[:2]
)

func scheduleCommands() []cli.Command {
	return []cli.Command{
		{
			Name:   "list",
			Usage:  "list all recurring download schedules",
			Action: scheduleList,
		},
		{
			Name:      "add",
			Usage:     "add a recurring download schedule",
			UsageText: "tubequeue schedule add [options] <url>",
			Flags:     schedAddFlags,
			Action:    scheduleAdd,
		},
		{
			Name:      "update",
			Usage:     "change the interval of existing schedules",
			UsageText: "tubequeue schedule update [options] <id>...",
			Flags:     schedUpdateFlags,
			Action:    scheduleUpdate,
		},
		{
			Name:      "remove",
			Usage:     "remove schedules",
			UsageText: "tubequeue schedule remove <id>...",
			Action:    scheduleRemove,
		},
	}
}

// scheduleStore builds a schedule cache backed by the daemon's HTTP API
// and loads it. Schedule CRUD needs no event channel.
func scheduleStore(ctx context.Context) (*queuesync.ScheduleStore, error) {
	secret, err := queuecli.LoadSecret()
	if err != nil {
		return nil, fmt.Errorf("loading rpc secret: %w", err)
	}
	api := queuecli.NewSchedulerClient(serverURL(), secret, nil)
	st := queuesync.NewScheduleStore(api, cliLogger())
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// resolveCron turns the --every and --cron flags into an expression, the
// explicit cron taking precedence.
func resolveCron() (string, error) {
	if schedCron != "" {
		return schedCron, nil
	}
	if schedInterval == "" {
		return "", fmt.Errorf("one of --every or --cron is required")
	}
	for _, p := range queuesync.CronPresets {
		if p.ID == schedInterval {
			return p.Expr, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q", schedInterval)
}

func intervalLabel(expr string) string {
	if p, ok := queuesync.MatchPreset(expr); ok {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", queuesync.PresetCustom, expr)
}

func parseIDArgs(ctx *cli.Context) ([]int64, error) {
	args := ctx.Args()
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one schedule id is required")
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scheduleList(ctx *cli.Context) error {
	st, err := scheduleStore(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "list", err)
		return nil
	}
	scheds := st.Schedules()
	if len(scheds) == 0 {
		fmt.Println("tubequeue: no schedules found")
		return nil
	}
	for _, s := range scheds {
		last := "never"
		if s.LastRun != nil {
			last = humanize.Time(*s.LastRun)
		}
		next := "unknown"
		if s.NextRun != nil {
			next = humanize.Time(*s.NextRun)
		}
		fmt.Printf("%-4d %-40s %-24s last %s, next %s\n",
			s.ID, truncate(s.URL, 40), intervalLabel(s.Cron), last, next)
	}
	return nil
}

func scheduleAdd(ctx *cli.Context) error {
	rawURL := ctx.Args().First()
	if rawURL == "" || rawURL == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	expr, err := resolveCron()
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	st, err := scheduleStore(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "add", err)
		return nil
	}
	s, err := st.Add(context.Background(), ctypes.ScheduleAddParams{
		URL:    rawURL,
		Cron:   expr,
		Folder: schedFolder,
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "add", err)
		return nil
	}
	next := "unknown"
	if s.NextRun != nil {
		next = humanize.Time(*s.NextRun)
	}
	fmt.Printf("tubequeue: schedule %d added (%s), next run %s\n", s.ID, intervalLabel(s.Cron), next)
	return nil
}

func scheduleUpdate(ctx *cli.Context) error {
	ids, err := parseIDArgs(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	expr, err := resolveCron()
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	st, err := scheduleStore(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "update", err)
		return nil
	}
	if err := st.Update(context.Background(), ids, expr); err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "update", err)
		return nil
	}
	fmt.Printf("tubequeue: updated %s to %s\n", idList(ids), intervalLabel(expr))
	return nil
}

func scheduleRemove(ctx *cli.Context) error {
	ids, err := parseIDArgs(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	st, err := scheduleStore(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "remove", err)
		return nil
	}
	if err := st.Remove(context.Background(), ids); err != nil {
		common.PrintRuntimeErr(ctx, "schedule", "remove", err)
		return nil
	}
	fmt.Printf("tubequeue: removed %s\n", idList(ids))
	return nil
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "schedule " + strings.Join(parts, ", ")
}
