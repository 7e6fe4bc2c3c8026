// Package sync implements the reconciliation engine that converges a mirror
// task service to the eligible subset of a source task service.
package sync

import (
	"time"

	"github.com/wimvanhooff/google-tasks-tools/internal/directive"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

// Default heuristic constants. Both are deliberate approximations carried
// over from long-running deployments; they are tunable per run, not
// invariants.
const (
	// DefaultLookaheadDays keeps the mirror focused on near-term items:
	// anything due further out is skipped this cycle.
	DefaultLookaheadDays = 1

	// DefaultCascadeSlackDays bounds how much later the source item may be
	// due than the completed mirror before completion stops propagating.
	DefaultCascadeSlackDays = 1
)

// Rules configures one reconciliation profile. Zero values disable the
// corresponding check.
type Rules struct {
	// TargetCollection is the mirror collection name for single-target
	// mode. When empty, each source collection maps to a mirror
	// collection of the same name (per-collection mode).
	TargetCollection string

	// ExcludeCollections are source collection names skipped entirely.
	ExcludeCollections []string

	// Eligibility selectors; any one match makes an item eligible. When
	// none is configured every item passing the schedule checks is
	// eligible.
	PriorityFloor int
	Labels        []string
	StarMarker    bool
	Tag           string

	// SkipVirtual leaves virtual collections (such as the Todoist inbox)
	// out of the source scan.
	SkipVirtual bool

	// RequireSchedule rejects items with neither due date nor deadline.
	RequireSchedule bool

	// LookaheadDays rejects items with a parseable due date more than
	// this many days in the future. Zero means DefaultLookaheadDays.
	LookaheadDays int

	// CompareDue includes the due date in the update diff. Profiles that
	// leave it off never clobber due-date edits made on the mirror.
	CompareDue bool

	// Provenance writes an origin note on mirror items instead of
	// copying source notes.
	Provenance bool

	// StripMarkers removes star glyphs and the configured tag from
	// title and notes before writing the mirror.
	StripMarkers bool

	// PrependRecurrence copies the raw source recurrence phrase to the
	// top of mirror notes so a repeat-after-completion pass can see it.
	PrependRecurrence bool

	// CascadeCompletion propagates mirror completions back to the source
	// item, subject to the date-tolerance check.
	CascadeCompletion bool

	// RepeatCompleted recreates completed mirror items carrying an
	// "every! N days" directive with a shifted due date.
	RepeatCompleted bool

	// CascadeSlackDays overrides DefaultCascadeSlackDays when positive.
	CascadeSlackDays int
}

func (r Rules) lookaheadDays() int {
	if r.LookaheadDays > 0 {
		return r.LookaheadDays
	}
	return DefaultLookaheadDays
}

func (r Rules) cascadeSlackDays() int {
	if r.CascadeSlackDays > 0 {
		return r.CascadeSlackDays
	}
	return DefaultCascadeSlackDays
}

func (r Rules) excluded(name string) bool {
	for _, n := range r.ExcludeCollections {
		if n == name {
			return true
		}
	}
	return false
}

// hasSelectors reports whether any eligibility selector is configured.
func (r Rules) hasSelectors() bool {
	return r.PriorityFloor > 0 || len(r.Labels) > 0 || r.StarMarker || r.Tag != ""
}

// eligible decides whether a source item belongs in the mirror this cycle.
func (r Rules) eligible(e service.Entity, now time.Time) bool {
	if e.Status == service.StatusCompleted {
		return false
	}

	hasSchedule := e.Due != "" || e.Deadline != ""
	if r.RequireSchedule && !hasSchedule {
		return false
	}

	// Items due beyond the lookahead window stay out of the mirror no
	// matter what else matches. Unparseable dates fail open.
	if due := scheduleDate(e); due != "" {
		if d, err := parseDate(due); err == nil {
			if daysBetween(dateOnly(now), d) > r.lookaheadDays() {
				return false
			}
		}
	}

	if !r.hasSelectors() {
		return true
	}

	if r.PriorityFloor > 0 && e.Priority >= r.PriorityFloor {
		return true
	}
	if len(r.Labels) > 0 && intersects(r.Labels, e.Labels) {
		return true
	}
	if r.StarMarker && directive.IsStarred(e.Title, e.Notes) {
		return true
	}
	if r.Tag != "" && directive.IsTagged(e.Notes, r.Tag) {
		return true
	}
	return false
}

// scheduleDate picks the date that positions an item in time: the due date,
// or the deadline when no due date exists.
func scheduleDate(e service.Entity) string {
	if e.Due != "" {
		return e.Due
	}
	return e.Deadline
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
