package export

import (
	"fmt"
	"strings"

	"github.com/sadopc/billr/internal/model"
)

// InvoiceText renders a plain-text invoice. Line items show hours only; the
// amount is the invoice's frozen total.
func InvoiceText(inv model.Invoice, client model.Client, project model.Project, entries []model.TimeEntry) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "INVOICE %s\n", inv.Number)
	fmt.Fprintf(&b, "Status: %s\n\n", inv.Status)
	fmt.Fprintf(&b, "Issue date: %s\n", inv.IssueDate)
	fmt.Fprintf(&b, "Due date:   %s\n\n", inv.DueDate)

	b.WriteString("Bill to:\n")
	fmt.Fprintf(&b, "  %s\n", oneLine(client.Name))
	fmt.Fprintf(&b, "  %s\n", client.Email)
	if client.Phone != "" {
		fmt.Fprintf(&b, "  %s\n", client.Phone)
	}
	for _, line := range strings.Split(strings.TrimSpace(client.Address), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\nProject: %s\n", oneLine(project.Name))
	fmt.Fprintf(&b, "Rate:    %s %s/h\n\n", project.HourlyRate.StringFixed(2), inv.Currency)

	section(&b, "ITEMS")
	if len(entries) == 0 {
		b.WriteString("Fixed amount\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %6s h  %s\n", e.Date, hours(e.Duration), oneLine(e.Description))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total hours:  %.2f\n", inv.TotalHours)
	fmt.Fprintf(&b, "Total amount: %s %s\n", inv.TotalAmount.StringFixed(2), inv.Currency)
	if inv.CustomDescription != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", oneLine(inv.CustomDescription))
	}
	return []byte(b.String())
}
