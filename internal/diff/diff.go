// Package diff detects which listings in a fresh page snapshot are new.
//
// The site lists ads newest-first and ads may be deleted between polls, so
// comparing against a single "last seen" link is fragile. Instead the engine
// keeps a tail of recently stored links and scans the snapshot in
// chronological order until any tail link is observed (the anchor). Everything
// after the anchor is new. If no tail link appears in the snapshot at all, the
// page changed more than the tail can explain and the whole snapshot is
// reported as new: over-reporting beats silently dropping ads.
package diff

import (
	"strings"

	"autoads_bot/internal/model"
)

// PromoMarker identifies boosted/promoted ads by a link substring. They are
// pinned out of chronological order and would corrupt anchor detection, so
// they are excluded from diffing and never stored.
const PromoMarker = "booster"

// DefaultTailWindow is the number of recent links kept as the anchor tail.
// It must exceed the plausible number of ads deleted between two polls.
const DefaultTailWindow = 19

// Compute returns the listings from fresh that are not yet known, in
// chronological order (oldest new listing first).
//
// fresh is the page snapshot as scraped, newest-first. tail holds recently
// stored links in any order; an empty tail means a first run and every
// listing is new.
func Compute(fresh []model.Listing, tail []string) []model.Listing {
	known := make(map[string]struct{}, len(tail))
	for _, link := range tail {
		known[link] = struct{}{}
	}

	chronological := make([]model.Listing, 0, len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		if IsPromo(fresh[i].Link) {
			continue
		}
		chronological = append(chronological, fresh[i])
	}

	anchorFound := len(known) == 0
	var fresh2 []model.Listing
	for _, l := range chronological {
		if _, ok := known[l.Link]; ok {
			anchorFound = true
			continue
		}
		if anchorFound {
			fresh2 = append(fresh2, l)
		}
	}

	if len(known) != 0 && !anchorFound {
		return chronological
	}
	return fresh2
}

// IsPromo reports whether a link belongs to a promoted ad.
func IsPromo(link string) bool {
	return strings.Contains(link, PromoMarker)
}
