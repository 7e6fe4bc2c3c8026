// Package directive extracts structured markers from free-text task fields:
// recurrence phrases, star markers, and tag tokens. All functions are pure
// text transforms.
package directive

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical day counts for qualitative recurrence phrases. Months and years
// are fixed approximations, not calendar-accurate.
const (
	DaysPerWeek  = 7
	DaysPerMonth = 30
	DaysPerYear  = 365

	// DefaultInterval is used when text signals recurrence but no pattern
	// matches.
	DefaultInterval = 7
)

// StarGlyph is the marker recognized at the end of a title or notes field,
// alongside a literal trailing asterisk.
const StarGlyph = "⭐"

var (
	everyDaysRe   = regexp.MustCompile(`every\s+(\d+)\s+days?`)
	everyWeeksRe  = regexp.MustCompile(`every\s+(\d+)\s+weeks?`)
	everyMonthsRe = regexp.MustCompile(`every\s+(\d+)\s+months?`)
	everyYearsRe  = regexp.MustCompile(`every\s+(\d+)\s+years?`)
	ordinalRe     = regexp.MustCompile(`every\s+(\d+)(?:st|nd|rd|th)`)
	repeatAfterRe = regexp.MustCompile(`(?i)every!\s+(\d+)\s+days?`)
)

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// ParseRecurrence extracts a recurrence interval in days from a
// human-readable phrase such as "every 3 days", "every monday" or "monthly".
// Explicit numeric patterns win over qualitative keywords. Text that
// mentions "every" but matches nothing falls back to DefaultInterval.
// Returns false when the text carries no recurrence signal at all.
func ParseRecurrence(text string) (int, bool) {
	s := strings.ToLower(text)
	// "every!" is the non-strict variant; treat it as "every".
	s = strings.ReplaceAll(s, "every!", "every")

	for _, p := range []struct {
		re   *regexp.Regexp
		unit int
	}{
		{everyDaysRe, 1},
		{everyWeeksRe, DaysPerWeek},
		{everyMonthsRe, DaysPerMonth},
		{everyYearsRe, DaysPerYear},
	} {
		if m := p.re.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n * p.unit, true
			}
		}
	}

	if strings.Contains(s, "every day") || strings.Contains(s, "daily") {
		return 1, true
	}
	if strings.Contains(s, "every week") || strings.Contains(s, "weekly") {
		return DaysPerWeek, true
	}
	for _, day := range weekdays {
		if strings.Contains(s, "every "+day) {
			return DaysPerWeek, true
		}
	}
	if strings.Contains(s, "every month") || strings.Contains(s, "monthly") {
		return DaysPerMonth, true
	}
	// "every 15th" and friends mean monthly on that day.
	if ordinalRe.MatchString(s) {
		return DaysPerMonth, true
	}
	if strings.Contains(s, "every year") || strings.Contains(s, "yearly") ||
		strings.Contains(s, "annually") {
		return DaysPerYear, true
	}

	if strings.Contains(s, "every") {
		return DefaultInterval, true
	}
	return 0, false
}

// ParseRepeatAfter extracts the strict repeat-after-completion directive
// "every! N days" from notes. Unlike ParseRecurrence it matches only the
// explicit form and never falls back.
func ParseRepeatAfter(notes string) (int, bool) {
	m := repeatAfterRe.FindStringSubmatch(notes)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsStarred reports whether the title or notes end with the star glyph or a
// literal asterisk after trimming trailing whitespace.
func IsStarred(title, notes string) bool {
	for _, s := range []string{title, notes} {
		t := strings.TrimSpace(s)
		if strings.HasSuffix(t, StarGlyph) || strings.HasSuffix(t, "*") {
			return true
		}
	}
	return false
}

// StripStar removes every star glyph and any trailing asterisks from text.
// Stripping is idempotent and leaves no leading/trailing whitespace.
func StripStar(text string) string {
	s := strings.ReplaceAll(text, StarGlyph, "")
	for {
		s = strings.TrimSpace(s)
		if !strings.HasSuffix(s, "*") {
			break
		}
		s = strings.TrimSuffix(s, "*")
	}
	return collapse(s)
}

// IsTagged reports whether notes contain tag as a case-insensitive whole
// word anywhere in the text. An empty tag never matches.
func IsTagged(notes, tag string) bool {
	if tag == "" {
		return false
	}
	return tagPattern(tag).MatchString(notes)
}

// StripTag removes every whole-word occurrence of tag from notes,
// idempotently, collapsing the whitespace left behind.
func StripTag(notes, tag string) string {
	if tag == "" {
		return collapse(notes)
	}
	return collapse(tagPattern(tag).ReplaceAllString(notes, " "))
}

func tagPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tag) + `\b`)
}

// collapse squeezes runs of spaces and tabs into single spaces while
// preserving line structure, and trims the edges.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.Join(strings.Fields(ln), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
