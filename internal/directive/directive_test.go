package directive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wimvanhooff/google-tasks-tools/internal/directive"
)

func TestParseRecurrence(t *testing.T) {
	tests := []struct {
		text string
		days int
		ok   bool
	}{
		{"every 3 days", 3, true},
		{"every day", 1, true},
		{"daily", 1, true},
		{"every 2 weeks", 14, true},
		{"every week", 7, true},
		{"weekly", 7, true},
		{"every monday", 7, true},
		{"every Friday", 7, true},
		{"every 2 months", 60, true},
		{"monthly", 30, true},
		{"every 15th", 30, true},
		{"every 1st", 30, true},
		{"every year", 365, true},
		{"annually", 365, true},
		{"every 2 years", 730, true},
		{"Every 3 Days", 3, true},
		{"every! 5 days", 5, true},
		{"every other tuesday", 7, true}, // unmatched "every" falls back
		{"no recurrence here", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			days, ok := directive.ParseRecurrence(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.days, days)
		})
	}
}

func TestParseRecurrence_NumericWinsOverQualitative(t *testing.T) {
	// "every 3 weeks" contains "week" but the numeric pattern must win.
	days, ok := directive.ParseRecurrence("every 3 weeks")
	assert.True(t, ok)
	assert.Equal(t, 21, days)
}

func TestParseRepeatAfter(t *testing.T) {
	tests := []struct {
		notes string
		days  int
		ok    bool
	}{
		{"every! 10 days", 10, true},
		{"water plants\nevery! 3 days", 3, true},
		{"EVERY! 1 day", 1, true},
		{"every 10 days", 0, false}, // only the strict form matches
		{"every! ten days", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		days, ok := directive.ParseRepeatAfter(tc.notes)
		assert.Equal(t, tc.ok, ok, tc.notes)
		assert.Equal(t, tc.days, days, tc.notes)
	}
}

func TestIsStarred(t *testing.T) {
	assert.True(t, directive.IsStarred("Pay rent ⭐", ""))
	assert.True(t, directive.IsStarred("Pay rent *", ""))
	assert.True(t, directive.IsStarred("Pay rent*  ", ""))
	assert.True(t, directive.IsStarred("Pay rent", "important ⭐"))
	assert.False(t, directive.IsStarred("Pay rent", ""))
	assert.False(t, directive.IsStarred("⭐ leading only counts at the end", ""))
}

func TestStripStar(t *testing.T) {
	assert.Equal(t, "Pay rent", directive.StripStar("Pay rent ⭐"))
	assert.Equal(t, "Pay rent", directive.StripStar("Pay rent*"))
	assert.Equal(t, "Pay rent", directive.StripStar("Pay rent **"))
	assert.Equal(t, "Pay rent", directive.StripStar("Pay ⭐ rent"))
	assert.Equal(t, "", directive.StripStar("⭐"))
}

func TestStripStar_Idempotent(t *testing.T) {
	inputs := []string{"Pay rent ⭐", "Pay rent ***", "plain", "a ⭐ b *"}
	for _, in := range inputs {
		once := directive.StripStar(in)
		assert.Equal(t, once, directive.StripStar(once), in)
	}
}

func TestIsTagged(t *testing.T) {
	assert.True(t, directive.IsTagged("show on trmnl", "trmnl"))
	assert.True(t, directive.IsTagged("TRMNL please", "trmnl"))
	assert.True(t, directive.IsTagged("trmnl", "trmnl"))
	assert.False(t, directive.IsTagged("trmnlish", "trmnl"))
	assert.False(t, directive.IsTagged("nothing", "trmnl"))
	assert.False(t, directive.IsTagged("anything", ""))
}

func TestStripTag(t *testing.T) {
	assert.Equal(t, "show on", directive.StripTag("show on trmnl", "trmnl"))
	assert.Equal(t, "a b", directive.StripTag("a trmnl b", "trmnl"))
	assert.Equal(t, "", directive.StripTag("trmnl", "trmnl"))
	assert.Equal(t, "keep\nlines", directive.StripTag("keep trmnl\nlines", "trmnl"))

	once := directive.StripTag("a trmnl b trmnl", "trmnl")
	assert.Equal(t, once, directive.StripTag(once, "trmnl"))
}
