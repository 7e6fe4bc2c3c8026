package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/wimvanhooff/google-tasks-tools/internal/config"
	"github.com/wimvanhooff/google-tasks-tools/internal/exitcode"
	"github.com/wimvanhooff/google-tasks-tools/internal/mapping"
	"github.com/wimvanhooff/google-tasks-tools/internal/scheduler"
	syncengine "github.com/wimvanhooff/google-tasks-tools/internal/sync"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd runs exactly one reconciliation cycle.
type SyncCmd struct {
	dryRun bool
	limit  int
}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return []string{"run", "run-once"} }
func (c *SyncCmd) Synopsis() string  { return "Run one reconciliation cycle" }
func (c *SyncCmd) Usage() string     { return "tasksync sync [--dry-run] [--limit <n>]" }
func (c *SyncCmd) NeedsAuth() bool   { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.dryRun, "dry-run", false, "")
	fs.IntVar(&c.limit, "limit", 0, "")
}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, gws *Gateways, log zerolog.Logger, args []string, out, errOut io.Writer) int {
	sched := scheduler.New(newReconciler(cfg, gws, log, c.dryRun, c.limit), log)
	if err := sched.RunOnce(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.Failure
	}
	return exitcode.Success
}

// newReconciler wires the mapping store and rules from config into an
// engine instance. Shared by sync and daemon.
func newReconciler(cfg *config.Config, gws *Gateways, log zerolog.Logger, dryRun bool, limit int) *syncengine.Reconciler {
	store := mapping.NewStore(cfg.MappingFilePath(), log)
	store.Load()
	return syncengine.New(gws.Source, gws.Mirror, store, rulesFromConfig(cfg), log,
		syncengine.WithDryRun(dryRun),
		syncengine.WithLimit(limit),
	)
}

func rulesFromConfig(cfg *config.Config) syncengine.Rules {
	s := cfg.Sync
	return syncengine.Rules{
		TargetCollection:   s.TargetCollection,
		ExcludeCollections: s.ExcludeCollections,
		PriorityFloor:      s.PriorityFloor,
		Labels:             s.Labels,
		StarMarker:         s.StarMarker,
		Tag:                s.Tag,
		SkipVirtual:        s.SkipVirtual,
		RequireSchedule:    s.RequireSchedule,
		LookaheadDays:      s.LookaheadDays,
		CompareDue:         s.CompareDue,
		Provenance:         s.Provenance,
		StripMarkers:       s.StripMarkers,
		PrependRecurrence:  s.PrependRecurrence,
		CascadeCompletion:  s.CascadeCompletion,
		RepeatCompleted:    s.RepeatCompleted,
		CascadeSlackDays:   s.CascadeSlackDays,
	}
}
