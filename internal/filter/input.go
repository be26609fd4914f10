package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PriceCeiling caps an open-ended price range like "10000-".
const PriceCeiling = 999999

// ErrMalformed marks filter input that is silently ignored by the bot surface.
var ErrMalformed = fmt.Errorf("malformed filter input")

// ExpandYearRange parses free-text year input into individual year members.
//
// Accepted forms: "2015" (single year), "2015-2017" (inclusive range, expanded
// to every year), "2015-" (open-ended, capped at the current year). Anything
// non-numeric returns ErrMalformed.
func ExpandYearRange(input string, now time.Time) ([]string, error) {
	from, to, hasTo, err := splitRange(input)
	if err != nil {
		return nil, err
	}
	if !hasTo {
		if strings.Contains(input, "-") {
			to = now.Year()
		} else {
			to = from
		}
	}
	if to < from {
		return nil, ErrMalformed
	}

	years := make([]string, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years, nil
}

// NormalizePriceRange parses free-text price input into a single stored
// "from-to" range string. Price ranges are large, so unlike years they are
// stored as ranges rather than expanded.
//
// Accepted forms: "12000" (stored as "12000-12000"), "10000-15000",
// "10000-" (capped at PriceCeiling).
func NormalizePriceRange(input string) (string, error) {
	from, to, hasTo, err := splitRange(input)
	if err != nil {
		return "", err
	}
	if !hasTo {
		if strings.Contains(input, "-") {
			to = PriceCeiling
		} else {
			to = from
		}
	}
	if to < from {
		return "", ErrMalformed
	}
	return fmt.Sprintf("%d-%d", from, to), nil
}

// ParsePriceRange splits a stored "from-to" range string into its bounds.
func ParsePriceRange(r string) (int, int, error) {
	parts := strings.SplitN(r, "-", 2)
	if len(parts) != 2 {
		return 0, 0, ErrMalformed
	}
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrMalformed
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrMalformed
	}
	return lo, hi, nil
}

// splitRange parses "A", "A-B" or "A-" into numeric bounds; hasTo is false
// when the upper bound is absent.
func splitRange(input string) (from, to int, hasTo bool, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, 0, false, ErrMalformed
	}

	parts := strings.SplitN(s, "-", 2)
	from, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || from < 0 {
		return 0, 0, false, ErrMalformed
	}
	if len(parts) == 1 || strings.TrimSpace(parts[1]) == "" {
		return from, 0, false, nil
	}
	to, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || to < 0 {
		return 0, 0, false, ErrMalformed
	}
	return from, to, true, nil
}
