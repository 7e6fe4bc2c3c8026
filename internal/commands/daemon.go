package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/wimvanhooff/google-tasks-tools/internal/config"
	"github.com/wimvanhooff/google-tasks-tools/internal/exitcode"
	"github.com/wimvanhooff/google-tasks-tools/internal/scheduler"
)

func init() {
	Register(&DaemonCmd{})
}

// DaemonCmd runs reconciliation cycles on a fixed interval until
// interrupted.
type DaemonCmd struct {
	dryRun   bool
	limit    int
	interval int
}

func (c *DaemonCmd) Name() string      { return "daemon" }
func (c *DaemonCmd) Aliases() []string { return []string{"watch"} }
func (c *DaemonCmd) Synopsis() string  { return "Run reconciliation cycles on an interval" }
func (c *DaemonCmd) Usage() string {
	return "tasksync daemon [--dry-run] [--limit <n>] [--interval <minutes>]"
}
func (c *DaemonCmd) NeedsAuth() bool { return true }

func (c *DaemonCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.dryRun, "dry-run", false, "")
	fs.IntVar(&c.limit, "limit", 0, "")
	fs.IntVar(&c.interval, "interval", 0, "")
}

func (c *DaemonCmd) Run(ctx context.Context, cfg *config.Config, gws *Gateways, log zerolog.Logger, args []string, out, errOut io.Writer) int {
	minutes := c.interval
	if minutes <= 0 {
		minutes = cfg.Sync.IntervalMinutes
	}

	sched := scheduler.New(newReconciler(cfg, gws, log, c.dryRun, c.limit), log)
	if err := sched.RunForever(ctx, time.Duration(minutes)*time.Minute); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.Failure
	}
	return exitcode.Success
}
