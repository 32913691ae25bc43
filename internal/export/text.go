package export

import (
	"fmt"
	"strings"

	"github.com/sadopc/billr/internal/ledger"
)

// Text renders a human-readable report: a summary block followed by one
// detail stanza per entry.
func Text(r ledger.Report) []byte {
	var b strings.Builder

	b.WriteString("TIME REPORT\n")
	fmt.Fprintf(&b, "Period: %s\n\n", r.Label)

	section(&b, "SUMMARY")
	fmt.Fprintf(&b, "Total hours:     %s\n", hours(r.Totals.Minutes))
	fmt.Fprintf(&b, "Total revenue:   %s\n", r.Totals.Revenue.StringFixed(2))
	fmt.Fprintf(&b, "Entries:         %d\n", r.Totals.Entries)
	fmt.Fprintf(&b, "Days in range:   %d\n", r.Totals.Days)
	fmt.Fprintf(&b, "Average per day: %.2f h\n", r.Totals.AvgHoursPerDay)

	if len(r.ByProject) > 0 {
		b.WriteString("\nBy project:\n")
		for _, g := range r.ByProject {
			fmt.Fprintf(&b, "  %s: %s h, %s (%s)\n",
				oneLine(g.Name), hours(g.Minutes), g.Revenue.StringFixed(2), plural(g.Entries, "entry", "entries"))
		}
	}
	if len(r.ByClient) > 0 {
		b.WriteString("\nBy client:\n")
		for _, g := range r.ByClient {
			fmt.Fprintf(&b, "  %s: %s h, %s (%s, %s)\n",
				oneLine(g.Name), hours(g.Minutes), g.Revenue.StringFixed(2),
				plural(g.Projects, "project", "projects"), plural(g.Entries, "entry", "entries"))
		}
	}

	b.WriteString("\n")
	section(&b, "DETAILS")
	if len(r.Rows) == 0 {
		b.WriteString("No entries.\n")
	}
	for i, row := range r.Rows {
		e := row.Entry
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s / %s\n", e.Date, oneLine(row.ProjectName), oneLine(row.ClientName))
		fmt.Fprintf(&b, "  %s\n", oneLine(e.Description))
		fmt.Fprintf(&b, "  %d min (%s h) x %s = %s %s\n",
			e.Duration, hours(e.Duration), row.HourlyRate.StringFixed(2), row.Revenue.StringFixed(2), row.Currency)
	}
	return []byte(b.String())
}

func section(b *strings.Builder, title string) {
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len(title)))
	b.WriteString("\n")
}

var lineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func oneLine(s string) string {
	return lineReplacer.Replace(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
