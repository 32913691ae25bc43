package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	updated = created.Add(time.Hour)
)

func str(s string) *string { return &s }

func TestClientRoundTrip(t *testing.T) {
	for _, w := range []Client{
		{ID: "c1", Name: "Acme", Email: "a@acme.io", Phone: str("+1 555"), Address: str("1 Main St"), IsActive: true, CreatedAt: created, UpdatedAt: updated},
		{ID: "c2", Name: "Bare", Email: "b@b.io", CreatedAt: created, UpdatedAt: created},
	} {
		assert.Equal(t, w, ClientToWire(ClientFromWire(w)))
	}
}

func TestEmptyOptionalTextIsNull(t *testing.T) {
	var w Client
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c1","name":"Acme","email":"a@acme.io","phone":"","address":null}`), &w))
	require.NotNil(t, w.Phone)

	got := ClientToWire(ClientFromWire(w))
	assert.Nil(t, got.Phone)
	assert.Nil(t, got.Address)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"phone":null`)

	// The canonical form is stable from here on.
	assert.Equal(t, got, ClientToWire(ClientFromWire(got)))
}

func TestProjectRoundTrip(t *testing.T) {
	w := Project{
		ID: "p1", Name: "Site", Description: str("Landing page"), ClientID: "c1",
		HourlyRate: 85.5, Currency: "EUR", StartDate: str("2024-01-01"), Status: "on-hold",
		CreatedAt: created, UpdatedAt: updated,
	}
	got := ProjectToWire(ProjectFromWire(w))
	assert.Equal(t, w, got)
	assert.Nil(t, got.EndDate)
}

func TestTimeEntryRoundTrip(t *testing.T) {
	start := created
	end := created.Add(90 * time.Minute)
	for _, w := range []TimeEntry{
		{ID: "e1", ProjectID: "p1", Description: "timed", StartTime: &start, EndTime: &end, Duration: 90, Date: "2024-05-15", CreatedAt: created, UpdatedAt: created},
		{ID: "e2", ProjectID: "p1", Description: "manual", Duration: 30, Date: "2024-05-14", IsManual: true, CreatedAt: created, UpdatedAt: updated},
	} {
		assert.Equal(t, w, TimeEntryToWire(TimeEntryFromWire(w)))
	}
}

func TestTimeEntryTimesAreCopied(t *testing.T) {
	start := created
	e := model.TimeEntry{ID: "e", StartTime: &start}
	w := TimeEntryToWire(e)
	*w.StartTime = w.StartTime.Add(time.Hour)
	assert.Equal(t, created, *e.StartTime)
}

func TestInvoiceRoundTrip(t *testing.T) {
	w := Invoice{
		ID: "i1", ClientID: "c1", ProjectID: "p1", InvoiceNumber: "INV-2024-001",
		IssueDate: "2024-05-15", DueDate: "2024-05-29", TotalHours: 5.75, TotalAmount: 488.75,
		Currency: "EUR", Status: "sent", TimeEntries: []string{"e1", "e2"},
		CustomDescription: str("May work"), CreatedAt: created, UpdatedAt: updated,
	}
	assert.Equal(t, w, InvoiceToWire(InvoiceFromWire(w)))

	custom := w
	custom.IsCustomAmount = true
	assert.True(t, InvoiceFromWire(custom).CustomAmount)
	assert.Equal(t, custom, InvoiceToWire(InvoiceFromWire(custom)))

	empty := w
	empty.TimeEntries = []string{}
	empty.CustomDescription = nil
	assert.Equal(t, empty, InvoiceToWire(InvoiceFromWire(empty)))
}

func TestActiveTimerRoundTrip(t *testing.T) {
	w := ActiveTimer{ID: "t1", ProjectID: "p1", Description: "work", StartTime: created, CreatedAt: created}
	assert.Equal(t, w, ActiveTimerToWire(ActiveTimerFromWire(w)))
}

func TestJSONShape(t *testing.T) {
	inv := model.Invoice{
		ID: "i1", Number: "INV-2024-001", TotalAmount: decimal.RequireFromString("488.75"),
		Status: model.InvoiceDraft, CreatedAt: created, UpdatedAt: created,
	}
	data, err := json.Marshal(InvoiceToWire(inv))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "INV-2024-001", raw["invoice_number"])
	assert.Equal(t, 488.75, raw["total_amount"])
	assert.Equal(t, []any{}, raw["time_entries"])
	assert.Contains(t, raw, "custom_description")
	assert.Nil(t, raw["custom_description"])

	data, err = json.Marshal(ClientToWire(model.Client{ID: "c", Active: true}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phone":null`)
	assert.Contains(t, string(data), `"is_active":true`)
}

func TestRequestConversions(t *testing.T) {
	var pc ProjectCreate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Site","client_id":"c1","hourly_rate":85.5}`), &pc))
	in := pc.Input()
	assert.Equal(t, "c1", in.ClientID)
	assert.Equal(t, "85.5", in.HourlyRate.String())
	assert.Empty(t, in.Status)

	var pu ProjectUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"hourly_rate":100,"status":"completed"}`), &pu))
	patch := pu.Patch()
	require.NotNil(t, patch.HourlyRate)
	assert.Equal(t, "100", patch.HourlyRate.String())
	assert.Equal(t, model.ProjectCompleted, *patch.Status)
	assert.Nil(t, patch.Name)

	var ic InvoiceCreate
	require.NoError(t, json.Unmarshal([]byte(`{"client_id":"c1","project_id":"p1","time_entries":["e1"],"custom_amount":120.5}`), &ic))
	input := ic.Input()
	assert.Equal(t, []string{"e1"}, input.EntryIDs)
	require.NotNil(t, input.CustomAmount)
	assert.Equal(t, "120.5", input.CustomAmount.String())

	var iu InvoiceUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"status":"paid"}`), &iu))
	ip := iu.Patch()
	assert.Equal(t, model.InvoicePaid, *ip.Status)
	assert.Nil(t, ip.EntryIDs)
	assert.Nil(t, ip.CustomAmount)
	assert.False(t, ip.ClearCustomAmount)

	require.NoError(t, json.Unmarshal([]byte(`{"clear_custom_amount":true}`), &iu))
	assert.True(t, iu.Patch().ClearCustomAmount)

	var cu ClientUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"is_active":false}`), &cu))
	cp := cu.Patch()
	require.NotNil(t, cp.Active)
	assert.False(t, *cp.Active)
}
