package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func TestEligible_CompletedNeverEligible(t *testing.T) {
	r := Rules{}
	e := service.Entity{Title: "done", Status: service.StatusCompleted}
	assert.False(t, r.eligible(e, testNow))
}

func TestEligible_NoSelectorsMeansEverything(t *testing.T) {
	r := Rules{}
	assert.True(t, r.eligible(service.Entity{Title: "anything"}, testNow))
}

func TestEligible_RequireSchedule(t *testing.T) {
	r := Rules{RequireSchedule: true}
	assert.False(t, r.eligible(service.Entity{Title: "no dates"}, testNow))
	assert.True(t, r.eligible(service.Entity{Title: "due", Due: "2024-01-15"}, testNow))
	assert.True(t, r.eligible(service.Entity{Title: "deadline", Deadline: "2024-01-15"}, testNow))
}

func TestEligible_LookaheadWindow(t *testing.T) {
	r := Rules{}
	assert.True(t, r.eligible(service.Entity{Due: "2024-01-14"}, testNow), "overdue stays in")
	assert.True(t, r.eligible(service.Entity{Due: "2024-01-15"}, testNow))
	assert.True(t, r.eligible(service.Entity{Due: "2024-01-16"}, testNow), "tomorrow is inside the window")
	assert.False(t, r.eligible(service.Entity{Due: "2024-01-17"}, testNow), "beyond lookahead")

	wide := Rules{LookaheadDays: 7}
	assert.True(t, wide.eligible(service.Entity{Due: "2024-01-22"}, testNow))
	assert.False(t, wide.eligible(service.Entity{Due: "2024-01-23"}, testNow))
}

func TestEligible_UnparseableDateFailsOpen(t *testing.T) {
	r := Rules{}
	assert.True(t, r.eligible(service.Entity{Due: "someday"}, testNow))
}

func TestEligible_Selectors(t *testing.T) {
	r := Rules{PriorityFloor: 3, Labels: []string{"urgent"}, StarMarker: true, Tag: "trmnl"}

	assert.True(t, r.eligible(service.Entity{Priority: 4}, testNow))
	assert.True(t, r.eligible(service.Entity{Priority: 3}, testNow))
	assert.True(t, r.eligible(service.Entity{Labels: []string{"home", "urgent"}}, testNow))
	assert.True(t, r.eligible(service.Entity{Title: "call mom ⭐"}, testNow))
	assert.True(t, r.eligible(service.Entity{Notes: "show on trmnl"}, testNow))
	assert.False(t, r.eligible(service.Entity{Title: "plain", Priority: 2}, testNow))
}

func TestEligible_SelectorSkippedOutsideWindow(t *testing.T) {
	// A starred item due far out still stays out of the mirror.
	r := Rules{StarMarker: true}
	assert.False(t, r.eligible(service.Entity{Title: "later ⭐", Due: "2024-03-01"}, testNow))
}

func TestScheduleDate_DuePreferredOverDeadline(t *testing.T) {
	assert.Equal(t, "2024-01-15", scheduleDate(service.Entity{Due: "2024-01-15", Deadline: "2024-02-01"}))
	assert.Equal(t, "2024-02-01", scheduleDate(service.Entity{Deadline: "2024-02-01"}))
	assert.Equal(t, "", scheduleDate(service.Entity{}))
}

func TestNormalizeDue(t *testing.T) {
	assert.Equal(t, "2024-01-15T00:00:00.000Z", normalizeDue("2024-01-15"))
	assert.Equal(t, "2024-01-15T09:30:00Z", normalizeDue("2024-01-15T09:30:00Z"))
	assert.Equal(t, "", normalizeDue(""))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-01-15T23:59:00Z")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-01-15")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("next tuesday")
	assert.Error(t, err)
}

func TestShouldCascade(t *testing.T) {
	tests := []struct {
		name      string
		mirrorDue string
		sourceDue string
		want      bool
	}{
		{"same day", "2024-01-10", "2024-01-10", true},
		{"one day later", "2024-01-10", "2024-01-11", true},
		{"two days later", "2024-01-10", "2024-01-12", false},
		{"source earlier", "2024-01-10", "2024-01-05", true},
		{"no mirror due", "", "2024-01-12", true},
		{"no source due", "2024-01-10", "", true},
		{"unparseable mirror due", "whenever", "2024-01-12", true},
		{"unparseable source due", "2024-01-10", "whenever", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, shouldCascade(tc.mirrorDue, tc.sourceDue, DefaultCascadeSlackDays))
		})
	}
}

func TestShouldCascade_WiderSlack(t *testing.T) {
	assert.True(t, shouldCascade("2024-01-10", "2024-01-13", 3))
	assert.False(t, shouldCascade("2024-01-10", "2024-01-14", 3))
}
