package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/billr.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCollection(model.KindClients, []json.RawMessage{json.RawMessage(`{"id":"c1"}`)}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migrations do not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	docs, err := s2.LoadCollection(model.KindClients)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document after reopen, got %d", len(docs))
	}
}

// ============================================================
// Documents
// ============================================================

func TestSaveCollectionReplacesKind(t *testing.T) {
	s := newTestStore(t)

	first := []json.RawMessage{
		json.RawMessage(`{"id":"a","name":"A"}`),
		json.RawMessage(`{"id":"b","name":"B"}`),
	}
	if err := s.SaveCollection(model.KindClients, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCollection(model.KindProjects, []json.RawMessage{json.RawMessage(`{"id":"p"}`)}); err != nil {
		t.Fatal(err)
	}

	second := []json.RawMessage{json.RawMessage(`{"id":"b","name":"B2"}`)}
	if err := s.SaveCollection(model.KindClients, second); err != nil {
		t.Fatal(err)
	}

	docs, err := s.LoadCollection(model.KindClients)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || string(docs[0]) != `{"id":"b","name":"B2"}` {
		t.Fatalf("unexpected clients: %s", docs)
	}

	counts, err := s.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.KindProjects] != 1 {
		t.Fatalf("projects should be untouched, got %d", counts[model.KindProjects])
	}
}

func TestLoadCollectionKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	docs := []json.RawMessage{
		json.RawMessage(`{"id":"z"}`),
		json.RawMessage(`{"id":"a"}`),
		json.RawMessage(`{"id":"m"}`),
	}
	if err := s.SaveCollection(model.KindTimeEntries, docs); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadCollection(model.KindTimeEntries)
	if err != nil {
		t.Fatal(err)
	}
	for i := range docs {
		if string(got[i]) != string(docs[i]) {
			t.Fatalf("position %d: got %s, want %s", i, got[i], docs[i])
		}
	}
}

func TestSaveEmptyCollectionClears(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCollection(model.KindActiveTimer, []json.RawMessage{json.RawMessage(`{"id":"t"}`)}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCollection(model.KindActiveTimer, nil); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadCollection(model.KindActiveTimer)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}
}

func TestDuplicateIDsRollBack(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCollection(model.KindClients, []json.RawMessage{json.RawMessage(`{"id":"keep"}`)}); err != nil {
		t.Fatal(err)
	}

	dup := []json.RawMessage{json.RawMessage(`{"id":"x"}`), json.RawMessage(`{"id":"x"}`)}
	if err := s.SaveCollection(model.KindClients, dup); err == nil {
		t.Fatal("expected error for duplicate ids")
	}

	got, err := s.LoadCollection(model.KindClients)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0]) != `{"id":"keep"}` {
		t.Fatalf("failed save should roll back, got %s", got)
	}
}

func TestDocumentsWithoutIDUsePosition(t *testing.T) {
	s := newTestStore(t)
	docs := []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`[1]`)}
	if err := s.SaveCollection(model.KindInvoices, docs); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadCollection(model.KindInvoices)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(got))
	}
}

// ============================================================
// Settings
// ============================================================

func TestSeededSettings(t *testing.T) {
	s := newTestStore(t)
	want := map[string]string{
		"default_currency": "EUR",
		"invoice_due_days": "14",
		"week_start":       "monday",
		"theme":            "dark",
	}
	for k, v := range want {
		got, err := s.LoadScalar(k, "unused")
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestLoadScalarDefault(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadScalar("missing", "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fallback" {
		t.Fatalf("got %q, want fallback", got)
	}
}

func TestSaveScalarUpserts(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveScalar("theme", "light"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveScalar("theme", "solarized"); err != nil {
		t.Fatal(err)
	}
	all, err := s.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if all["theme"] != "solarized" {
		t.Fatalf("theme = %q", all["theme"])
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 settings, got %d", len(all))
	}
}

// ============================================================
// Ledger integration
// ============================================================

func TestLedgerRoundTripThroughSQLite(t *testing.T) {
	s := newTestStore(t)
	clock := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	l := ledger.New(s, ledger.WithClock(now), ledger.WithLocation(time.UTC))
	c, err := l.AddClient(ledger.ClientInput{Name: "Acme", Email: "a@acme.io"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := l.AddProject(ledger.ProjectInput{Name: "Site", ClientID: c.ID, HourlyRate: decimal.RequireFromString("85.50")})
	if err != nil {
		t.Fatal(err)
	}
	e, err := l.AddTimeEntry(ledger.EntryInput{ProjectID: p.ID, Description: "build", Duration: 120})
	if err != nil {
		t.Fatal(err)
	}
	inv, err := l.CreateInvoice(ledger.InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.StartTimer(p.ID, "next"); err != nil {
		t.Fatal(err)
	}

	reloaded := ledger.New(s, ledger.WithClock(now), ledger.WithLocation(time.UTC))
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Invoice(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalAmount.StringFixed(2) != "171.00" {
		t.Fatalf("invoice amount = %s, want 171.00", got.TotalAmount.StringFixed(2))
	}
	rp, err := reloaded.Project(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !rp.HourlyRate.Equal(p.HourlyRate) {
		t.Fatalf("rate = %s, want %s", rp.HourlyRate, p.HourlyRate)
	}
	if _, running := reloaded.ActiveTimer(); !running {
		t.Fatal("expected running timer after reload")
	}
	if err := reloaded.DeleteTimeEntry(e.ID); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict deleting billed entry, got %v", err)
	}
}

func TestLedgerSettingsThroughSQLite(t *testing.T) {
	s := newTestStore(t)
	l := ledger.New(s)
	if got := l.Setting(ledger.SettingInvoiceDueDays, ""); got != "14" {
		t.Fatalf("due days = %q", got)
	}
	if err := l.SetSetting(ledger.SettingDefaultCurrency, "USD"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.LoadScalar(ledger.SettingDefaultCurrency, ""); v != "USD" {
		t.Fatalf("stored currency = %q", v)
	}
}
