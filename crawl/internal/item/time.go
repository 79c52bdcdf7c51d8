package item

import (
	"strconv"
	"strings"
	"time"
)

// ParsePostedAt interprets the platform's rendered timestamps relative to
// now. Observed shapes:
//
//	"37s ago", "12m ago", "3h ago", "2d ago", "1w ago"
//	"3-14"       (month-day, current year)
//	"2026-3-14"  (year-month-day)
//
// The "ago" suffix is optional; some layouts render just "3h". Returns
// false when the text matches none of these.
func ParsePostedAt(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "ago"))
	if s == "" {
		return time.Time{}, false
	}

	if d, ok := parseRelative(s); ok {
		return now.Add(-d), true
	}

	parts := strings.Split(s, "-")
	switch len(parts) {
	case 2:
		month, err1 := strconv.Atoi(parts[0])
		day, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		ts := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
		// A month-day in the future belongs to last year.
		if ts.After(now) {
			ts = ts.AddDate(-1, 0, 0)
		}
		return ts, true
	case 3:
		year, err1 := strconv.Atoi(parts[0])
		month, err2 := strconv.Atoi(parts[1])
		day, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || year < 2000 || month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
	}

	return time.Time{}, false
}

func parseRelative(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	switch s[len(s)-1] {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	}
	return 0, false
}
