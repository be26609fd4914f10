package bot

import (
	"fmt"
	"html"
	"strings"

	"autoads_bot/internal/model"
)

// FormatCaption formats a listing as the HTML caption of a notification.
func FormatCaption(l model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s %s</b> (%s)\n",
		html.EscapeString(l.Title), html.EscapeString(l.Year), html.EscapeString(l.Price))
	fmt.Fprintf(&b, "%s; %s\n", html.EscapeString(l.Engine), html.EscapeString(l.Transmission))
	b.WriteString(html.EscapeString(l.Mileage))
	b.WriteString("\n")
	fmt.Fprintf(&b, `<i><a href="%s"> *** ССЫЛКА *** </a></i>`, l.Link)
	return b.String()
}

// FormatFilters formats a user's filter sets for display, one line per
// dimension in menu order.
func FormatFilters(fs model.FilterSet) string {
	if fs.Empty() {
		return "You have no filters yet. Without filters you will not receive notifications."
	}

	var b strings.Builder
	b.WriteString("Your filters:\n")
	for _, dim := range model.Dimensions {
		values := fs[dim]
		if len(values) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", dimensionLabels[dim], formatValues(dim, values))
	}
	return b.String()
}

// formatValues compresses long expanded year runs into "first-last".
func formatValues(dim model.Dimension, values []string) string {
	if dim == model.DimYear && len(values) > 5 {
		return fmt.Sprintf("%s-%s (%d years)", values[0], values[len(values)-1], len(values))
	}
	return strings.Join(values, ", ")
}
