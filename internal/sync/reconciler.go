package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wimvanhooff/google-tasks-tools/internal/directive"
	"github.com/wimvanhooff/google-tasks-tools/internal/mapping"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

// Summary reports what one cycle did.
type Summary struct {
	Created      int
	Updated      int
	Deleted      int
	Completed    int
	LimitReached bool
}

// Mutations is the number of entity operations issued (or, in dry-run mode,
// that would have been issued).
func (s Summary) Mutations() int {
	return s.Created + s.Updated + s.Deleted + s.Completed
}

// Reconciler converges the mirror service to the eligible subset of the
// source service. One instance owns its mapping store exclusively; cycles
// are strictly sequential.
type Reconciler struct {
	source service.Gateway
	mirror service.Gateway
	store  *mapping.Store
	rules  Rules
	log    zerolog.Logger

	dryRun bool
	limit  int
	now    func() time.Time
}

// Option adjusts reconciler behavior.
type Option func(*Reconciler)

// WithDryRun suppresses every mutating gateway call and the state save,
// logging intended actions instead.
func WithDryRun(on bool) Option {
	return func(r *Reconciler) { r.dryRun = on }
}

// WithLimit stops the cycle after n entity operations. Zero means no limit.
func WithLimit(n int) Option {
	return func(r *Reconciler) { r.limit = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a reconciler. The store must already be loaded.
func New(source, mirror service.Gateway, store *mapping.Store, rules Rules, log zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		source: source,
		mirror: mirror,
		store:  store,
		rules:  rules,
		log:    log.With().Str("component", "reconciler").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// target binds a set of source collections to one mirror collection.
type target struct {
	sources  []service.Collection
	mirrorID string
	created  bool // mirror collection created this cycle, nothing to list
}

type mirrorItem struct {
	collectionID string
	entity       service.Entity
}

// cycle is the per-run working state.
type cycle struct {
	targets []target
	// mirror indexes every item of the involved mirror collections by ID.
	mirror map[string]mirrorItem
	// seen collects the source IDs that were eligible this cycle.
	seen map[string]bool
	// partial marks a cycle that failed to observe part of the source or
	// mirror state; the orphan sweep must not infer absence from it.
	partial bool
	sum     Summary
}

// Sync runs one reconciliation cycle: completion cascade first, then the
// forward sync, then the orphan sweep, then state persistence. Single-entity
// failures are logged and skipped; only enumeration and persistence failures
// surface as errors.
func (r *Reconciler) Sync(ctx context.Context) (Summary, error) {
	c := &cycle{
		mirror: make(map[string]mirrorItem),
		seen:   make(map[string]bool),
	}

	if err := r.resolveTargets(ctx, c); err != nil {
		return c.sum, err
	}
	if err := r.indexMirror(ctx, c); err != nil {
		return c.sum, err
	}

	// Completions must be observed before the forward pass, or a
	// just-completed mirror item would be recreated in the same cycle.
	r.cascadeCompletions(ctx, c)

	r.forward(ctx, c)
	r.sweepOrphans(ctx, c)

	if r.dryRun {
		r.log.Info().Msg("dry-run: state not saved")
		return c.sum, nil
	}
	if err := r.store.Save(); err != nil {
		// Remote effects already happened and are not rolled back; the
		// next cycle reconverges from remote state.
		r.log.Error().Err(err).Msg("failed to persist sync state")
		return c.sum, err
	}
	return c.sum, nil
}

// resolveTargets enumerates both sides' collections once and decides which
// source collections feed which mirror collection.
func (r *Reconciler) resolveTargets(ctx context.Context, c *cycle) error {
	mirrorColls, err := r.mirror.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mirror collections: %w", err)
	}
	sourceColls, err := r.source.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list source collections: %w", err)
	}

	if name := r.rules.TargetCollection; name != "" {
		mirrorID, created, err := r.ensureCollection(ctx, mirrorColls, name)
		if err != nil {
			return err
		}
		var sources []service.Collection
		for _, coll := range sourceColls {
			// The mirror collection itself must never be scanned as
			// a source, or same-service profiles would feed back.
			if coll.ID == mirrorID || coll.Name == name || r.rules.excluded(coll.Name) {
				continue
			}
			if r.rules.SkipVirtual && coll.Virtual {
				continue
			}
			sources = append(sources, coll)
		}
		c.targets = []target{{sources: sources, mirrorID: mirrorID, created: created}}
		return nil
	}

	// Per-collection mode: each source collection maps to a mirror
	// collection of the same name, lazily created and existence-validated.
	mirrorByID := make(map[string]service.Collection, len(mirrorColls))
	for _, coll := range mirrorColls {
		mirrorByID[coll.ID] = coll
	}
	// scanned tracks which source collections made it into the cycle;
	// mirror collections of the rest still need indexing for the sweep.
	scanned := make(map[string]bool, len(sourceColls))
	for _, src := range sourceColls {
		if r.rules.excluded(src.Name) {
			continue
		}
		if r.rules.SkipVirtual && src.Virtual {
			continue
		}
		if mapped, ok := r.store.CollectionFor(src.ID); ok {
			if _, exists := mirrorByID[mapped]; exists {
				scanned[src.ID] = true
				c.targets = append(c.targets, target{sources: []service.Collection{src}, mirrorID: mapped})
				continue
			}
			r.log.Info().Str("collection", src.Name).Msg("mapped mirror collection gone, remapping")
			r.store.RemoveCollection(src.ID)
		}
		mirrorID, created, err := r.ensureCollection(ctx, mirrorColls, src.Name)
		if err != nil {
			r.log.Error().Err(err).Str("collection", src.Name).Msg("could not resolve mirror collection, skipping")
			c.partial = true
			scanned[src.ID] = true
			continue
		}
		scanned[src.ID] = true
		r.store.MapCollection(src.ID, mirrorID)
		c.targets = append(c.targets, target{sources: []service.Collection{src}, mirrorID: mirrorID, created: created})
	}

	// Mirror collections whose source collection vanished (or was excluded
	// after syncing) still hold mapped items. Index them with no sources so
	// the sweep can delete the items instead of leaking them.
	for srcID, mirrorID := range r.store.CollectionPairs() {
		if scanned[srcID] {
			continue
		}
		if _, exists := mirrorByID[mirrorID]; !exists {
			// Both sides gone; the item pairs resolve as absent.
			r.store.RemoveCollection(srcID)
			continue
		}
		c.targets = append(c.targets, target{mirrorID: mirrorID})
	}
	return nil
}

// ensureCollection finds a mirror collection by name or creates it.
func (r *Reconciler) ensureCollection(ctx context.Context, colls []service.Collection, name string) (id string, created bool, err error) {
	for _, coll := range colls {
		if coll.Name == name {
			return coll.ID, false, nil
		}
	}
	if r.dryRun {
		r.log.Info().Str("collection", name).Msg("dry-run: would create mirror collection")
		return "dry-run:" + name, true, nil
	}
	id, err = r.mirror.CreateCollection(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("failed to create mirror collection %q: %w", name, err)
	}
	r.log.Info().Str("collection", name).Str("id", id).Msg("created mirror collection")
	return id, true, nil
}

// indexMirror loads every item (completed included) of the involved mirror
// collections into the cycle index.
func (r *Reconciler) indexMirror(ctx context.Context, c *cycle) error {
	done := make(map[string]bool)
	for _, t := range c.targets {
		if t.created || done[t.mirrorID] {
			continue
		}
		done[t.mirrorID] = true
		items, err := r.mirror.ListItems(ctx, t.mirrorID, true)
		if err != nil {
			return fmt.Errorf("failed to list mirror items: %w", err)
		}
		for _, e := range items {
			c.mirror[e.ID] = mirrorItem{collectionID: t.mirrorID, entity: e}
		}
	}
	return nil
}

// forward is the source-to-mirror convergence pass.
func (r *Reconciler) forward(ctx context.Context, c *cycle) {
	for _, t := range c.targets {
		for _, coll := range t.sources {
			items, err := r.source.ListItems(ctx, coll.ID, false)
			if err != nil {
				r.log.Error().Err(err).Str("collection", coll.Name).Msg("failed to list source items, skipping collection")
				c.partial = true
				continue
			}
			for _, item := range items {
				if r.limitReached(c) {
					return
				}
				if !r.rules.eligible(item, r.now()) {
					continue
				}
				c.seen[item.ID] = true
				r.converge(ctx, c, t.mirrorID, item)
			}
		}
	}
}

// converge issues the minimal operation for one eligible source item.
func (r *Reconciler) converge(ctx context.Context, c *cycle, mirrorCollID string, item service.Entity) {
	desired := r.render(item)

	mirrorID, mapped := r.store.LookupBySource(item.ID)
	if !mapped {
		r.create(ctx, c, mirrorCollID, item.ID, desired)
		return
	}

	mi, present := c.mirror[mirrorID]
	if !present {
		// The mirror item vanished between cycles; recreate under a
		// fresh pair (self-healing).
		r.log.Info().Str("title", desired.Title).Msg("mapped mirror item missing, recreating")
		r.create(ctx, c, mirrorCollID, item.ID, desired)
		return
	}

	if !r.differs(desired, mi.entity) {
		return
	}
	if r.dryRun {
		r.log.Info().Str("title", desired.Title).Msg("dry-run: would update mirror item")
		c.sum.Updated++
		return
	}
	err := r.mirror.UpdateItem(ctx, mi.collectionID, mirrorID, desired)
	if errors.Is(err, service.ErrNotFound) {
		r.create(ctx, c, mirrorCollID, item.ID, desired)
		return
	}
	if err != nil {
		r.log.Error().Err(err).Str("title", desired.Title).Msg("failed to update mirror item")
		return
	}
	c.sum.Updated++
	r.log.Info().Str("title", desired.Title).Msg("updated mirror item")
}

// create inserts a mirror item and records the pair. On failure the mapping
// is left untouched so the next cycle retries naturally.
func (r *Reconciler) create(ctx context.Context, c *cycle, collID, sourceID string, desired service.Entity) {
	if r.dryRun {
		r.log.Info().Str("title", desired.Title).Msg("dry-run: would create mirror item")
		c.sum.Created++
		return
	}
	id, err := r.mirror.InsertItem(ctx, collID, desired)
	if err != nil {
		r.log.Error().Err(err).Str("title", desired.Title).Msg("failed to create mirror item")
		return
	}
	r.store.Insert(sourceID, id)
	c.sum.Created++
	r.log.Info().Str("title", desired.Title).Str("id", id).Msg("created mirror item")
}

// sweepOrphans deletes mirror items whose source item left the eligible set
// (deleted, un-starred, un-tagged, or completed upstream) and drops pairs
// whose mirror item is already gone.
func (r *Reconciler) sweepOrphans(ctx context.Context, c *cycle) {
	if c.partial {
		// An unobserved collection makes "not seen" meaningless; deleting
		// on it would destroy mirror items over a transient failure.
		r.log.Warn().Msg("cycle saw only part of the source state, skipping orphan sweep")
		return
	}
	for sourceID, mirrorID := range r.store.Pairs() {
		if c.seen[sourceID] {
			continue
		}
		mi, present := c.mirror[mirrorID]
		if !present {
			r.store.RemoveBySource(sourceID)
			continue
		}
		if r.limitReached(c) {
			return
		}
		if r.deleteMirror(ctx, c, mi.collectionID, mirrorID, mi.entity.Title, "source item no longer eligible") {
			r.store.RemoveBySource(sourceID)
		}
	}
}

// deleteMirror removes a mirror item, treating an already-gone item as
// success. Reports whether the item is gone.
func (r *Reconciler) deleteMirror(ctx context.Context, c *cycle, collID, itemID, title, reason string) bool {
	if r.dryRun {
		r.log.Info().Str("title", title).Str("reason", reason).Msg("dry-run: would delete mirror item")
		c.sum.Deleted++
		return true
	}
	err := r.mirror.DeleteItem(ctx, collID, itemID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		r.log.Warn().Err(err).Str("title", title).Msg("could not delete mirror item")
		return false
	}
	c.sum.Deleted++
	r.log.Info().Str("title", title).Str("reason", reason).Msg("deleted mirror item")
	return true
}

// render builds the desired mirror representation of a source item.
func (r *Reconciler) render(item service.Entity) service.Entity {
	title := item.Title
	notes := item.Notes
	if r.rules.StripMarkers {
		title = directive.StripStar(title)
		notes = directive.StripStar(notes)
		if r.rules.Tag != "" {
			notes = directive.StripTag(notes, r.rules.Tag)
		}
	}

	switch {
	case r.rules.Provenance:
		n := fmt.Sprintf("Synced from %s\nOriginal ID: %s", r.source.Name(), item.ID)
		if item.Due != "" && item.Deadline != "" {
			n += "\nDeadline: " + item.Deadline
		}
		notes = n
	case r.rules.PrependRecurrence && item.Recurring && item.RecurrenceText != "":
		if notes != "" {
			notes = item.RecurrenceText + "\n\n" + notes
		} else {
			notes = item.RecurrenceText
		}
	}

	return service.Entity{
		Title: title,
		Notes: notes,
		Due:   normalizeDue(scheduleDate(item)),
	}
}

// differs computes the update-worthy field diff.
func (r *Reconciler) differs(desired, current service.Entity) bool {
	if desired.Title != current.Title {
		return true
	}
	if desired.Notes != current.Notes {
		return true
	}
	if r.rules.CompareDue && normalizeDue(desired.Due) != normalizeDue(current.Due) {
		return true
	}
	return false
}

func (r *Reconciler) limitReached(c *cycle) bool {
	if r.limit > 0 && c.sum.Mutations() >= r.limit {
		if !c.sum.LimitReached {
			r.log.Warn().Int("limit", r.limit).Msg("operation limit reached, stopping cycle early")
			c.sum.LimitReached = true
		}
		return true
	}
	return false
}
