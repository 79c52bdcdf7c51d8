package store

import (
	"strconv"
	"strings"
)

// ParseViewCount normalises a scraped view-count string to an integer.
// The platform renders counts as "892", "12.3K", "1.4M" or "2B"; commas and
// surrounding whitespace are tolerated. Unparseable input yields 0, a
// missing count is not an error at this boundary.
func ParseViewCount(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")

	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1_000, s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1_000_000, s[:len(s)-1]
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		mult, s = 1_000_000_000, s[:len(s)-1]
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n * mult
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f * float64(mult))
}
