package domain

import (
	"fmt"
	"strings"
)

const ReportFilename = "instagram_reels_sorted.txt"

// FormatReport renders the export file body. Records are written in the
// order given.
func FormatReport(d Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Reels Tracked: %d\n\n", len(d))
	for _, r := range d {
		fmt.Fprintf(&b, "Views: %d - Link: %s\n", r.Views, r.Link)
	}
	return b.String()
}
