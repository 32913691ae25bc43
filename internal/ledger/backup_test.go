package ledger

import (
	"testing"
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	l, _, clock := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	e := addEntry(t, l, p.ID, "2024-05-14", 60)
	_, err := l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
	require.NoError(t, err)
	require.NoError(t, l.SetSetting(SettingTheme, "light"))

	b := l.Backup()
	assert.Equal(t, model.BackupVersion, b.Version)
	assert.Equal(t, clock.Now(), b.ExportedAt)
	assert.Equal(t, "light", b.Settings[SettingTheme])

	other, store, _ := newTestLedger(t)
	require.NoError(t, other.Restore(b))
	assert.Equal(t, b.Clients, other.Clients())
	assert.Equal(t, b.Projects, other.Projects())
	assert.Equal(t, b.Invoices, other.Invoices(InvoiceFilter{}))
	assert.Len(t, other.TimeEntries(EntryFilter{}), 1)
	assert.Equal(t, "light", other.Setting(SettingTheme, ""))
	assert.Equal(t, 1, store.Count(model.KindInvoices))
}

func TestRestoreRejectsBrokenReferences(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	client := model.Client{ID: "c1", Name: "A", Email: "a@b.co", CreatedAt: now}
	project := model.Project{ID: "p1", Name: "P", ClientID: "c1", HourlyRate: decimal.NewFromInt(1), Currency: "EUR", Status: model.ProjectActive}
	entry := model.TimeEntry{ID: "e1", ProjectID: "p1", Description: "x", Date: "2024-05-01", Duration: 10}
	inv := func(id, number string, entries ...string) model.Invoice {
		return model.Invoice{ID: id, ClientID: "c1", ProjectID: "p1", Number: number, TimeEntryIDs: entries}
	}

	tests := []struct {
		name string
		b    model.Backup
	}{
		{"project without client", model.Backup{Projects: []model.Project{project}}},
		{"entry without project", model.Backup{Clients: []model.Client{client}, TimeEntries: []model.TimeEntry{entry}}},
		{"double billed entry", model.Backup{
			Clients: []model.Client{client}, Projects: []model.Project{project}, TimeEntries: []model.TimeEntry{entry},
			Invoices: []model.Invoice{inv("i1", "INV-1", "e1"), inv("i2", "INV-2", "e1")},
		}},
		{"duplicate number", model.Backup{
			Clients: []model.Client{client}, Projects: []model.Project{project},
			Invoices: []model.Invoice{inv("i1", "INV-1"), inv("i2", "INV-1")},
		}},
		{"future version", model.Backup{Version: model.BackupVersion + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _ := newTestLedger(t)
			_, _ = seedProject(t, l, 10)

			err := l.Restore(tt.b)
			require.ErrorIs(t, err, ErrValidation)
			assert.Len(t, l.Clients(), 1)
			assert.Len(t, l.Projects(), 1)
		})
	}
}

func TestRestoreDiscardsOrphanedTimer(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 10)
	_, err := l.StartTimer(p.ID, "orphan")
	require.NoError(t, err)

	require.NoError(t, l.Restore(model.Backup{Version: model.BackupVersion}))
	_, running := l.ActiveTimer()
	assert.False(t, running)
	assert.Empty(t, l.Projects())
}
