package sync

import (
	"context"
	"time"

	"github.com/wimvanhooff/google-tasks-tools/internal/directive"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

// cascadeCompletions processes every completed mirror item before the
// forward pass. Mapped items may complete their source counterpart, subject
// to the date-tolerance check; the completed mirror item and its pair are
// removed either way. Unmapped completed items are orphans and deleted
// unconditionally.
func (r *Reconciler) cascadeCompletions(ctx context.Context, c *cycle) {
	for id, mi := range c.mirror {
		e := mi.entity
		if e.Status != service.StatusCompleted {
			continue
		}
		if r.limitReached(c) {
			return
		}

		if r.rules.RepeatCompleted {
			if !r.repeatCompleted(ctx, c, mi) {
				// Replacement creation failed; keep the completed
				// item so the directive is retried next cycle.
				continue
			}
		}

		sourceID, mapped := r.store.LookupByMirror(id)
		if mapped {
			if r.rules.CascadeCompletion {
				r.completeSource(ctx, c, e, sourceID)
			}
			// The mirror item is stale regardless of the cascade
			// decision.
			r.store.RemoveByMirror(id)
			r.deleteMirror(ctx, c, mi.collectionID, id, e.Title, "mirror item completed")
		} else {
			r.deleteMirror(ctx, c, mi.collectionID, id, e.Title, "orphaned completed mirror item")
		}
		delete(c.mirror, id)
	}
}

// completeSource propagates a mirror completion to the source item when the
// date-tolerance check allows it. Any error evaluating eligibility fails
// open: blocking cleanup is worse than completing one extra item.
func (r *Reconciler) completeSource(ctx context.Context, c *cycle, mirrorEnt service.Entity, sourceID string) {
	cascade := true
	var sourceColl string
	srcEnt, err := r.source.GetItem(ctx, "", sourceID)
	if err != nil {
		r.log.Warn().Err(err).Str("source_id", sourceID).Msg("could not fetch source item for cascade check, allowing completion")
	} else {
		sourceColl = srcEnt.CollectionID
		cascade = shouldCascade(mirrorEnt.Due, scheduleDate(srcEnt), r.rules.cascadeSlackDays())
	}

	if !cascade {
		r.log.Warn().Str("title", srcEnt.Title).Msg("source item due well after completed mirror, skipping completion")
		return
	}
	if r.dryRun {
		r.log.Info().Str("source_id", sourceID).Msg("dry-run: would complete source item")
		c.sum.Completed++
		return
	}
	if err := r.source.CompleteItem(ctx, sourceColl, sourceID); err != nil {
		r.log.Error().Err(err).Str("source_id", sourceID).Msg("failed to complete source item")
		return
	}
	c.sum.Completed++
	r.log.Info().Str("source_id", sourceID).Msg("completed source item")
}

// shouldCascade decides whether completing the mirror item should also
// complete the source item. A source item due more than slack days after the
// mirror snapshot is likely a later recurrence instance and is left open.
// Unparseable or absent dates allow the cascade.
func shouldCascade(mirrorDue, sourceDue string, slackDays int) bool {
	if mirrorDue == "" {
		return true
	}
	md, err := parseDate(mirrorDue)
	if err != nil {
		return true
	}
	if sourceDue == "" {
		return true
	}
	sd, err := parseDate(sourceDue)
	if err != nil {
		return true
	}
	return daysBetween(md, sd) <= slackDays
}

// repeatCompleted recreates a completed mirror item carrying an
// "every! N days" directive with due = completion + N days. Returns false
// only when a required replacement could not be created.
func (r *Reconciler) repeatCompleted(ctx context.Context, c *cycle, mi mirrorItem) bool {
	e := mi.entity
	days, ok := directive.ParseRepeatAfter(e.Notes)
	if !ok {
		return true
	}
	if e.CompletedAt == "" {
		r.log.Warn().Str("title", e.Title).Msg("completed item has no completion timestamp, skipping repeat")
		return true
	}
	done, err := time.Parse(time.RFC3339, e.CompletedAt)
	if err != nil {
		r.log.Warn().Err(err).Str("title", e.Title).Msg("unparseable completion timestamp, skipping repeat")
		return true
	}

	next := normalizeDue(dateOnly(done.UTC()).AddDate(0, 0, days).Format("2006-01-02"))
	replacement := service.Entity{Title: e.Title, Notes: e.Notes, Due: next}

	if r.dryRun {
		r.log.Info().Str("title", e.Title).Str("due", next).Msg("dry-run: would recreate recurring item")
		c.sum.Created++
		return true
	}
	if _, err := r.mirror.InsertItem(ctx, mi.collectionID, replacement); err != nil {
		r.log.Error().Err(err).Str("title", e.Title).Msg("failed to recreate recurring item")
		return false
	}
	c.sum.Created++
	r.log.Info().Str("title", e.Title).Str("due", next).Msg("recreated recurring item")
	return true
}
