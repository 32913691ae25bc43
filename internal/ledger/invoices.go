package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

var invoiceNumberPattern = regexp.MustCompile(`(?i)^INV-(\d{4})-(\d+)$`)

// InvoiceTotals is the computed value of a selection of entries.
type InvoiceTotals struct {
	Minutes  int
	Hours    float64
	Amount   decimal.Decimal
	Currency string
	Entries  []model.TimeEntry
	// Overridden is set when Amount came from a caller-supplied value.
	Overridden bool
}

type InvoiceInput struct {
	ClientID  string
	ProjectID string
	// Number is generated for the current year when empty.
	Number string
	// IssueDate defaults to today, DueDate to IssueDate plus the
	// invoice_due_days setting.
	IssueDate         string
	DueDate           string
	Status            model.InvoiceStatus
	EntryIDs          []string
	CustomAmount      *decimal.Decimal
	CustomDescription string
}

// InvoicePatch is a partial update; nil fields are left unchanged. Totals are
// recomputed only when EntryIDs, CustomAmount or ClearCustomAmount is set, and
// a stored custom amount is kept across entry re-selection.
type InvoicePatch struct {
	Number            *string
	IssueDate         *string
	DueDate           *string
	Status            *model.InvoiceStatus
	EntryIDs          *[]string
	CustomAmount      *decimal.Decimal
	// ClearCustomAmount drops a stored override so the total is computed
	// from the entries again.
	ClearCustomAmount bool
	CustomDescription *string
}

type InvoiceFilter struct {
	ClientID  string
	ProjectID string
	Status    model.InvoiceStatus
}

func (l *Ledger) Invoices(f InvoiceFilter) []model.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.invoices.filter(func(inv model.Invoice) bool {
		return (f.ClientID == "" || inv.ClientID == f.ClientID) &&
			(f.ProjectID == "" || inv.ProjectID == f.ProjectID) &&
			(f.Status == "" || inv.Status == f.Status)
	})
}

func (l *Ledger) Invoice(id string) (model.Invoice, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inv, ok := l.invoices.get(id)
	if !ok {
		return model.Invoice{}, notFoundErr("invoice", id)
	}
	return inv, nil
}

// InvoiceEntries returns the entries an invoice bills, most recent first.
// Entries that no longer exist are skipped.
func (l *Ledger) InvoiceEntries(id string) ([]model.TimeEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inv, ok := l.invoices.get(id)
	if !ok {
		return nil, notFoundErr("invoice", id)
	}
	out := make([]model.TimeEntry, 0, len(inv.TimeEntryIDs))
	for _, eid := range inv.TimeEntryIDs {
		if e, ok := l.entries.get(eid); ok {
			out = append(out, e)
		}
	}
	sortRecentFirst(out)
	return out, nil
}

// EligibleEntries returns the project's entries that no invoice bills, most
// recent first.
func (l *Ledger) EligibleEntries(projectID string) ([]model.TimeEntry, error) {
	return l.EligibleEntriesFor(projectID, "")
}

// EligibleEntriesFor is EligibleEntries with the given invoice's own entries
// counted as eligible, for re-selecting entries on an existing invoice.
func (l *Ledger) EligibleEntriesFor(projectID, invoiceID string) ([]model.TimeEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.projects.get(projectID); !ok {
		return nil, notFoundErr("project", projectID)
	}
	billed := l.billedLocked(invoiceID)
	out := l.entries.filter(func(e model.TimeEntry) bool {
		return e.ProjectID == projectID && !billed[e.ID]
	})
	sortRecentFirst(out)
	return out, nil
}

// billedLocked maps entry ids to true for every invoice except exceptID.
func (l *Ledger) billedLocked(exceptID string) map[string]bool {
	billed := make(map[string]bool)
	for _, inv := range l.invoices.rows {
		if inv.ID == exceptID {
			continue
		}
		for _, id := range inv.TimeEntryIDs {
			billed[id] = true
		}
	}
	return billed
}

// CalculateInvoice prices a selection of eligible entries at the project's
// current rate. A non-nil override replaces the computed amount verbatim.
func (l *Ledger) CalculateInvoice(projectID string, entryIDs []string, override *decimal.Decimal) (InvoiceTotals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.projects.get(projectID)
	if !ok {
		return InvoiceTotals{}, notFoundErr("project", projectID)
	}
	return l.totalsLocked(p, entryIDs, override, "")
}

func (l *Ledger) totalsLocked(p model.Project, entryIDs []string, override *decimal.Decimal, invoiceID string) (InvoiceTotals, error) {
	billed := l.billedLocked(invoiceID)
	seen := make(map[string]bool, len(entryIDs))
	t := InvoiceTotals{Currency: p.Currency, Entries: make([]model.TimeEntry, 0, len(entryIDs))}
	for _, id := range entryIDs {
		if seen[id] {
			return InvoiceTotals{}, validationErr("invoice", "timeEntries", "entry "+id+" selected twice")
		}
		seen[id] = true
		e, ok := l.entries.get(id)
		if !ok {
			return InvoiceTotals{}, validationErr("invoice", "timeEntries", "unknown time entry "+id)
		}
		if e.ProjectID != p.ID {
			return InvoiceTotals{}, validationErr("invoice", "timeEntries", "entry "+id+" belongs to another project")
		}
		if billed[id] {
			inv, _ := l.invoiceOfOtherLocked(id, invoiceID)
			return InvoiceTotals{}, &Error{Kind: ErrConflict, Entity: "invoice", Field: "timeEntries",
				Msg: "entry " + id + " is already billed on " + inv.Number}
		}
		t.Minutes += e.Duration
		t.Entries = append(t.Entries, e)
	}
	sortRecentFirst(t.Entries)
	t.Hours = float64(t.Minutes) / 60
	if override != nil {
		t.Amount = *override
		t.Overridden = true
	} else {
		t.Amount = priceMinutes(t.Minutes, p.HourlyRate)
	}
	return t, nil
}

func (l *Ledger) invoiceOfOtherLocked(entryID, exceptID string) (model.Invoice, bool) {
	for _, inv := range l.invoices.rows {
		if inv.ID != exceptID && inv.References(entryID) {
			return inv, true
		}
	}
	return model.Invoice{}, false
}

// priceMinutes returns minutes/60 * rate rounded to cents.
func priceMinutes(minutes int, rate decimal.Decimal) decimal.Decimal {
	return Revenue(minutes, rate).Round(2)
}

// Revenue returns minutes/60 * rate without rounding.
func Revenue(minutes int, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Mul(rate).Div(decimal.NewFromInt(60))
}

// NextInvoiceNumber returns INV-{year}-{seq} with seq one past the highest
// sequence already used in that year.
func (l *Ledger) NextInvoiceNumber(year int) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextNumberLocked(year)
}

func (l *Ledger) nextNumberLocked(year int) string {
	prefix := strconv.Itoa(year)
	highest := 0
	for _, inv := range l.invoices.rows {
		m := invoiceNumberPattern.FindStringSubmatch(inv.Number)
		if m == nil || m[1] != prefix {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > highest {
			highest = n
		}
	}
	for seq := highest + 1; ; seq++ {
		if n := fmt.Sprintf("INV-%d-%03d", year, seq); !l.numberTakenLocked(n, "") {
			return n
		}
	}
}

func (l *Ledger) numberTakenLocked(number, exceptID string) bool {
	return l.invoices.any(func(inv model.Invoice) bool {
		return inv.ID != exceptID && strings.EqualFold(inv.Number, number)
	})
}

// CreateInvoice bills a selection of eligible entries. Eligibility is checked
// and the invoice inserted in one critical section, so an entry can never be
// billed twice.
func (l *Ledger) CreateInvoice(in InvoiceInput) (model.Invoice, error) {
	dueDays := l.dueDays()
	if in.Status == "" {
		in.Status = model.InvoiceDraft
	}
	if !in.Status.Valid() {
		return model.Invoice{}, validationErr("invoice", "status", "unknown status "+string(in.Status))
	}
	if len(in.EntryIDs) == 0 && in.CustomAmount == nil {
		return model.Invoice{}, validationErr("invoice", "timeEntries", "select at least one entry or set a custom amount")
	}
	if in.CustomAmount != nil && in.CustomAmount.IsNegative() {
		return model.Invoice{}, validationErr("invoice", "totalAmount", "must not be negative")
	}
	desc, err := optionalText("invoice", "customDescription", in.CustomDescription, maxInvoiceDescLen)
	if err != nil {
		return model.Invoice{}, err
	}

	var out model.Invoice
	err = l.mutate(func() ([]model.Kind, error) {
		if _, ok := l.clients.get(in.ClientID); !ok {
			return nil, &Error{Kind: ErrValidation, Entity: "invoice", Field: "clientId", Msg: "unknown client " + in.ClientID}
		}
		p, ok := l.projects.get(in.ProjectID)
		if !ok {
			return nil, &Error{Kind: ErrValidation, Entity: "invoice", Field: "projectId", Msg: "unknown project " + in.ProjectID}
		}
		if p.ClientID != in.ClientID {
			return nil, validationErr("invoice", "projectId", "project belongs to another client")
		}
		totals, err := l.totalsLocked(p, in.EntryIDs, in.CustomAmount, "")
		if err != nil {
			return nil, err
		}

		now := l.now()
		number := strings.TrimSpace(in.Number)
		if number == "" {
			number = l.nextNumberLocked(now.In(l.loc).Year())
		} else if l.numberTakenLocked(number, "") {
			return nil, &Error{Kind: ErrConflict, Entity: "invoice", Field: "invoiceNumber", Msg: "number " + number + " already exists"}
		}
		issue, due, err := resolveInvoiceDates(in.IssueDate, in.DueDate, model.DateOf(now, l.loc), dueDays)
		if err != nil {
			return nil, err
		}

		out = model.Invoice{
			ID:                l.newID(),
			ClientID:          in.ClientID,
			ProjectID:         in.ProjectID,
			Number:            number,
			IssueDate:         issue,
			DueDate:           due,
			Status:            in.Status,
			TimeEntryIDs:      append([]string{}, in.EntryIDs...),
			TotalHours:        totals.Hours,
			TotalAmount:       totals.Amount,
			CustomAmount:      totals.Overridden,
			Currency:          totals.Currency,
			CustomDescription: desc,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		l.invoices.put(out)
		l.log.Info(context.Background(), "invoice created", "number", number, "entries", len(in.EntryIDs), "amount", totals.Amount.String())
		return []model.Kind{model.KindInvoices}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Invoice{}, err
	}
	return out, err
}

func resolveInvoiceDates(issue, due, today string, dueDays int) (string, string, error) {
	if issue == "" {
		issue = today
	} else if err := validDate("invoice", "issueDate", issue); err != nil {
		return "", "", err
	}
	if due == "" {
		d, err := model.AddDays(issue, dueDays)
		if err != nil {
			return "", "", validationErr("invoice", "issueDate", "must be a YYYY-MM-DD date")
		}
		due = d
	} else if err := validDate("invoice", "dueDate", due); err != nil {
		return "", "", err
	}
	if due < issue {
		return "", "", validationErr("invoice", "dueDate", "must not precede the issue date")
	}
	return issue, due, nil
}

func (l *Ledger) dueDays() int {
	n, err := strconv.Atoi(l.Setting(SettingInvoiceDueDays, ""))
	if err != nil || n < 0 {
		n, _ = strconv.Atoi(SettingDefaults[SettingInvoiceDueDays])
	}
	return n
}

// UpdateInvoice edits an invoice. Re-selecting entries recomputes this
// invoice's totals only.
func (l *Ledger) UpdateInvoice(id string, p InvoicePatch) (model.Invoice, error) {
	if p.Status != nil && !p.Status.Valid() {
		return model.Invoice{}, validationErr("invoice", "status", "unknown status "+string(*p.Status))
	}
	if p.CustomAmount != nil && p.CustomAmount.IsNegative() {
		return model.Invoice{}, validationErr("invoice", "totalAmount", "must not be negative")
	}
	var out model.Invoice
	err := l.mutate(func() ([]model.Kind, error) {
		inv, ok := l.invoices.get(id)
		if !ok {
			return nil, notFoundErr("invoice", id)
		}
		if p.Number != nil {
			n := strings.TrimSpace(*p.Number)
			if n == "" {
				return nil, validationErr("invoice", "invoiceNumber", "must not be empty")
			}
			if l.numberTakenLocked(n, id) {
				return nil, &Error{Kind: ErrConflict, Entity: "invoice", Field: "invoiceNumber", Msg: "number " + n + " already exists"}
			}
			inv.Number = n
		}
		if p.IssueDate != nil {
			inv.IssueDate = *p.IssueDate
		}
		if p.DueDate != nil {
			inv.DueDate = *p.DueDate
		}
		if err := validDate("invoice", "issueDate", inv.IssueDate); err != nil {
			return nil, err
		}
		if err := validDate("invoice", "dueDate", inv.DueDate); err != nil {
			return nil, err
		}
		if inv.DueDate < inv.IssueDate {
			return nil, validationErr("invoice", "dueDate", "must not precede the issue date")
		}
		if p.Status != nil {
			inv.Status = *p.Status
		}
		if p.CustomDescription != nil {
			d, err := optionalText("invoice", "customDescription", *p.CustomDescription, maxInvoiceDescLen)
			if err != nil {
				return nil, err
			}
			inv.CustomDescription = d
		}
		if p.EntryIDs != nil || p.CustomAmount != nil || p.ClearCustomAmount {
			ids := inv.TimeEntryIDs
			if p.EntryIDs != nil {
				ids = *p.EntryIDs
			}
			override := p.CustomAmount
			if override == nil && inv.CustomAmount && !p.ClearCustomAmount {
				kept := inv.TotalAmount
				override = &kept
			}
			if len(ids) == 0 && override == nil {
				return nil, validationErr("invoice", "timeEntries", "select at least one entry or set a custom amount")
			}
			proj, ok := l.projects.get(inv.ProjectID)
			if !ok {
				return nil, &Error{Kind: ErrValidation, Entity: "invoice", Field: "projectId", Msg: "unknown project " + inv.ProjectID}
			}
			totals, err := l.totalsLocked(proj, ids, override, id)
			if err != nil {
				return nil, err
			}
			inv.TimeEntryIDs = append([]string{}, ids...)
			inv.TotalHours = totals.Hours
			inv.TotalAmount = totals.Amount
			inv.CustomAmount = totals.Overridden
		}
		inv.UpdatedAt = l.now()
		l.invoices.put(inv)
		out = inv
		l.log.Debug(context.Background(), "invoice updated", "id", id)
		return []model.Kind{model.KindInvoices}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Invoice{}, err
	}
	return out, err
}

func (l *Ledger) SetInvoiceStatus(id string, status model.InvoiceStatus) (model.Invoice, error) {
	return l.UpdateInvoice(id, InvoicePatch{Status: &status})
}

// DeleteInvoice removes an invoice, returning its entries to the eligible set.
func (l *Ledger) DeleteInvoice(id string) error {
	return l.mutate(func() ([]model.Kind, error) {
		inv, ok := l.invoices.get(id)
		if !ok {
			return nil, notFoundErr("invoice", id)
		}
		l.invoices.remove(id)
		l.log.Info(context.Background(), "invoice deleted", "number", inv.Number)
		return []model.Kind{model.KindInvoices}, nil
	})
}
