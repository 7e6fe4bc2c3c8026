// Package scheduler runs reconciliation cycles once or on a fixed interval.
// It is a plain sleep-loop, not a hard scheduler: no backpressure and no
// mid-cycle cancellation; interruption only prevents starting the next cycle.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	syncengine "github.com/wimvanhooff/google-tasks-tools/internal/sync"
)

// Cycler is what the scheduler drives; satisfied by *sync.Reconciler.
type Cycler interface {
	Sync(ctx context.Context) (syncengine.Summary, error)
}

// Scheduler drives a Cycler.
type Scheduler struct {
	cycler Cycler
	log    zerolog.Logger
}

// New creates a scheduler.
func New(cycler Cycler, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cycler: cycler,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// RunOnce executes exactly one reconciliation cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	sum, err := s.cycler.Sync(ctx)
	if err != nil {
		return err
	}
	s.log.Info().
		Int("created", sum.Created).
		Int("updated", sum.Updated).
		Int("deleted", sum.Deleted).
		Int("completed", sum.Completed).
		Bool("limit_reached", sum.LimitReached).
		Dur("took", time.Since(start)).
		Msg("sync cycle finished")
	return nil
}

// RunForever loops: cycle, sleep, repeat. A cycle error is logged and the
// loop continues after the normal interval; ctx cancellation terminates the
// loop cleanly between cycles.
func (s *Scheduler) RunForever(ctx context.Context, interval time.Duration) error {
	s.log.Info().Dur("interval", interval).Msg("starting daemon loop")
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("sync cycle failed, continuing")
		}
		select {
		case <-ctx.Done():
			s.log.Info().Msg("interrupted, stopping daemon loop")
			return nil
		case <-time.After(interval):
		}
	}
}
