// Package filter implements the listing matching engine and the parsing of
// free-text filter input.
package filter

import (
	"strconv"
	"strings"

	"autoads_bot/internal/model"
)

// Matches decides whether a listing should be delivered to a user with the
// given filter sets.
//
// A user with every set empty never matches: subscribers must pick at least
// one filter before receiving notifications. Non-empty dimensions combine
// with AND; values within one dimension combine with OR.
func Matches(l model.Listing, fs model.FilterSet) bool {
	if fs.Empty() {
		return false
	}

	for dim, values := range fs {
		if len(values) == 0 {
			continue
		}
		if !matchesDimension(l, dim, values) {
			return false
		}
	}
	return true
}

func matchesDimension(l model.Listing, dim model.Dimension, values []string) bool {
	switch dim {
	case model.DimBrand:
		title := strings.ToUpper(l.Title)
		for _, v := range values {
			if strings.Contains(title, strings.ToUpper(v)) {
				return true
			}
		}
		return false
	case model.DimYear:
		return contains(values, l.Year)
	case model.DimPrice:
		return matchesPrice(l.Price, values)
	case model.DimRegistration:
		return contains(values, l.Registration)
	case model.DimFuel:
		return contains(values, l.FuelType)
	case model.DimTransmission:
		return contains(values, l.Transmission)
	case model.DimCondition:
		return contains(values, l.Condition)
	case model.DimAuthor:
		return contains(values, l.Author)
	case model.DimWheel:
		return contains(values, l.Wheel)
	default:
		return false
	}
}

// matchesPrice strips the currency token from the listing price and checks it
// against each stored inclusive "from-to" range. A non-numeric price (the
// negotiable sentinel) never matches a price filter.
func matchesPrice(price string, ranges []string) bool {
	n, ok := NumericPrice(price)
	if !ok {
		return false
	}
	for _, r := range ranges {
		lo, hi, err := ParsePriceRange(r)
		if err != nil {
			continue
		}
		if n >= lo && n <= hi {
			return true
		}
	}
	return false
}

// NumericPrice extracts the numeric value from a listing price string,
// dropping currency symbols, spaces and non-breaking spaces. The second
// return is false when no digits remain.
func NumericPrice(price string) (int, bool) {
	var b strings.Builder
	for _, r := range price {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
