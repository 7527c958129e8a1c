package extraction

import (
	"strings"
	"time"
)

// dateLayouts are the shapes carrier documents tend to use for dates and
// cutoffs. Tried in order; the first one that parses wins.
var dateLayouts = []string{
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"02-01-2006 15:04",
	"02-01-2006",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

// normalizeDate parses a date/time string lifted from a carrier document
// into UTC, preserving time-of-day when the source included one. Returns
// nil when nothing in dateLayouts matches.
func normalizeDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// extractLabeledDate finds the first line containing label and returns the
// normalized date/time value following it, if any.
func extractLabeledDate(text string, label interface{ MatchString(string) bool }) *time.Time {
	for _, line := range strings.Split(text, "\n") {
		if !label.MatchString(line) {
			continue
		}
		m := dateValuePattern.FindStringSubmatch(line)
		if len(m) > 1 {
			if t := normalizeDate(m[1]); t != nil {
				return t
			}
		}
	}
	return nil
}
