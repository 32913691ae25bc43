package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateInvoiceExample(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)
	a := addEntry(t, l, p.ID, "2024-05-13", 210)
	b := addEntry(t, l, p.ID, "2024-05-14", 135)

	totals, err := l.CalculateInvoice(p.ID, []string{a.ID, b.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 345, totals.Minutes)
	assert.InDelta(t, 5.75, totals.Hours, 1e-9)
	assert.Equal(t, "488.75", totals.Amount.StringFixed(2))
	assert.Equal(t, "EUR", totals.Currency)
	assert.False(t, totals.Overridden)
	require.Len(t, totals.Entries, 2)
	assert.Equal(t, b.ID, totals.Entries[0].ID)
}

func TestCalculateInvoiceOverride(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)
	a := addEntry(t, l, p.ID, "2024-05-13", 60)
	override := decimal.RequireFromString("1234.56")

	totals, err := l.CalculateInvoice(p.ID, []string{a.ID}, &override)
	require.NoError(t, err)
	assert.True(t, override.Equal(totals.Amount))
	assert.True(t, totals.Overridden)
	assert.Equal(t, 60, totals.Minutes)
}

func TestCalculateInvoiceRejectsBadSelections(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	other, err := l.AddProject(ProjectInput{Name: "Other", ClientID: c.ID})
	require.NoError(t, err)
	mine := addEntry(t, l, p.ID, "2024-05-13", 60)
	foreign := addEntry(t, l, other.ID, "2024-05-13", 60)

	_, err = l.CalculateInvoice(p.ID, []string{mine.ID, mine.ID}, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.CalculateInvoice(p.ID, []string{foreign.ID}, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.CalculateInvoice(p.ID, []string{"ghost"}, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.CalculateInvoice("ghost", nil, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNextInvoiceNumberSkipsGaps(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(100)
	for _, n := range []string{"INV-2024-001", "INV-2024-003", "INV-2023-017", "CUSTOM-9"} {
		_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, Number: n, CustomAmount: &amount})
		require.NoError(t, err)
	}

	assert.Equal(t, "INV-2024-004", l.NextInvoiceNumber(2024))
	assert.Equal(t, "INV-2023-018", l.NextInvoiceNumber(2023))
	assert.Equal(t, "INV-2025-001", l.NextInvoiceNumber(2025))
}

func TestNextInvoiceNumberIgnoresCase(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(100)
	_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, Number: "inv-2024-001", CustomAmount: &amount})
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-002", l.NextInvoiceNumber(2024))
	generated, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, CustomAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-002", generated.Number)

	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, Number: "INV-2024-001", CustomAmount: &amount})
	require.ErrorIs(t, err, ErrConflict)
}

func TestGeneratedNumbersAreGapFree(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(10)

	var got []string
	for i := 0; i < 4; i++ {
		inv, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, CustomAmount: &amount})
		require.NoError(t, err)
		got = append(got, inv.Number)
	}
	assert.Equal(t, []string{"INV-2024-001", "INV-2024-002", "INV-2024-003", "INV-2024-004"}, got)
}

func TestCreateInvoiceDefaults(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	e := addEntry(t, l, p.ID, "2024-05-13", 90)

	inv, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceDraft, inv.Status)
	assert.Equal(t, "2024-05-15", inv.IssueDate)
	assert.Equal(t, "2024-05-29", inv.DueDate)
	assert.Equal(t, "EUR", inv.Currency)
	assert.InDelta(t, 1.5, inv.TotalHours, 1e-9)
	assert.Equal(t, "127.50", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, []string{e.ID}, inv.TimeEntryIDs)
}

func TestCreateInvoiceValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	stranger, err := l.AddClient(ClientInput{Name: "S", Email: "s@s.io"})
	require.NoError(t, err)
	e := addEntry(t, l, p.ID, "2024-05-13", 90)

	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "timeEntries", FieldOf(err))

	_, err = l.CreateInvoice(InvoiceInput{ClientID: stranger.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "projectId", FieldOf(err))

	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}, IssueDate: "2024-05-10", DueDate: "2024-05-01"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "dueDate", FieldOf(err))

	assert.Empty(t, l.Invoices(InvoiceFilter{}))
}

func TestCreateInvoiceDuplicateNumberConflicts(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(10)
	_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, Number: "INV-2024-001", CustomAmount: &amount})
	require.NoError(t, err)

	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, Number: "INV-2024-001", CustomAmount: &amount})
	require.ErrorIs(t, err, ErrConflict)
}

func TestNoEntryOnTwoInvoices(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	a := addEntry(t, l, p.ID, "2024-05-13", 60)
	b := addEntry(t, l, p.ID, "2024-05-14", 30)

	first, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{a.ID}})
	require.NoError(t, err)

	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{a.ID, b.ID}})
	require.ErrorIs(t, err, ErrConflict)

	eligible, err := l.EligibleEntries(p.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, b.ID, eligible[0].ID)

	forEdit, err := l.EligibleEntriesFor(p.ID, first.ID)
	require.NoError(t, err)
	assert.Len(t, forEdit, 2)

	require.NoError(t, l.DeleteInvoice(first.ID))
	eligible, err = l.EligibleEntries(p.ID)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
}

func TestConcurrentInvoicesNeverDoubleBill(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	e := addEntry(t, l, p.ID, "2024-05-13", 60)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)

	seen := map[string]int{}
	for _, inv := range l.Invoices(InvoiceFilter{}) {
		for _, id := range inv.TimeEntryIDs {
			seen[id]++
		}
	}
	assert.Equal(t, 1, seen[e.ID])
}

func TestUpdateInvoiceReselectsEntries(t *testing.T) {
	l, _, clock := newTestLedger(t)
	c, p := seedProject(t, l, 60)
	a := addEntry(t, l, p.ID, "2024-05-13", 60)
	b := addEntry(t, l, p.ID, "2024-05-14", 30)
	first, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{a.ID}})
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{b.ID}})
	require.NoError(t, err)

	// Re-selecting an entry billed elsewhere conflicts.
	_, err = l.UpdateInvoice(first.ID, InvoicePatch{EntryIDs: &[]string{a.ID, b.ID}})
	require.ErrorIs(t, err, ErrConflict)

	rate := decimal.NewFromInt(120)
	_, err = l.UpdateProject(p.ID, ProjectPatch{HourlyRate: &rate})
	require.NoError(t, err)

	// Untouched invoices keep their frozen amount.
	kept, err := l.Invoice(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", kept.TotalAmount.StringFixed(2))

	updated, err := l.UpdateInvoice(first.ID, InvoicePatch{EntryIDs: &[]string{a.ID}})
	require.NoError(t, err)
	assert.Equal(t, "120.00", updated.TotalAmount.StringFixed(2))

	_, err = l.UpdateInvoice(first.ID, InvoicePatch{Number: &second.Number})
	require.ErrorIs(t, err, ErrConflict)
}

func TestUpdateInvoiceKeepsCustomAmount(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 60)
	a := addEntry(t, l, p.ID, "2024-05-13", 60)
	b := addEntry(t, l, p.ID, "2024-05-14", 30)
	amount := decimal.NewFromInt(500)
	inv, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{a.ID}, CustomAmount: &amount})
	require.NoError(t, err)
	assert.True(t, inv.CustomAmount)

	updated, err := l.UpdateInvoice(inv.ID, InvoicePatch{EntryIDs: &[]string{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, "500.00", updated.TotalAmount.StringFixed(2))
	assert.InDelta(t, 1.5, updated.TotalHours, 1e-9)
	assert.True(t, updated.CustomAmount)

	cleared, err := l.UpdateInvoice(inv.ID, InvoicePatch{ClearCustomAmount: true})
	require.NoError(t, err)
	assert.Equal(t, "90.00", cleared.TotalAmount.StringFixed(2))
	assert.False(t, cleared.CustomAmount)

	// Without entries or an override there is nothing left to bill.
	_, err = l.UpdateInvoice(inv.ID, InvoicePatch{EntryIDs: &[]string{}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSetInvoiceStatus(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(10)
	inv, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, CustomAmount: &amount})
	require.NoError(t, err)

	got, err := l.SetInvoiceStatus(inv.ID, model.InvoicePaid)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, got.Status)

	_, err = l.SetInvoiceStatus(inv.ID, "lost")
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.SetInvoiceStatus("ghost", model.InvoiceSent)
	require.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, l.Invoices(InvoiceFilter{Status: model.InvoicePaid}), 1)
	assert.Empty(t, l.Invoices(InvoiceFilter{Status: model.InvoiceDraft}))
}

func TestDeleteClientOrProjectWithInvoiceConflicts(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	amount := decimal.NewFromInt(10)
	_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, CustomAmount: &amount})
	require.NoError(t, err)

	require.ErrorIs(t, l.DeleteProject(p.ID), ErrConflict)
	require.ErrorIs(t, l.DeleteClient(c.ID), ErrConflict)
}
