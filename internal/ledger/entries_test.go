package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestAddTimeEntryFromStartEnd(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)
	start := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"exact", start.Add(90 * time.Minute), 90},
		{"rounds up", start.Add(89*time.Minute + 40*time.Second), 90},
		{"rounds down", start.Add(89*time.Minute + 20*time.Second), 89},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := l.AddTimeEntry(EntryInput{
				ProjectID: p.ID, Description: "x", Date: "2024-05-14",
				Duration: 5, StartTime: ptr(start), EndTime: ptr(tt.end),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Duration)
			assert.True(t, e.Manual)
		})
	}
}

func TestAddTimeEntryRejectsNonPositiveSpan(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)
	start := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

	for _, end := range []time.Time{start, start.Add(-time.Minute), start.Add(20 * time.Second)} {
		_, err := l.AddTimeEntry(EntryInput{ProjectID: p.ID, Description: "x", StartTime: ptr(start), EndTime: ptr(end)})
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "endTime", FieldOf(err))
	}
	assert.Empty(t, l.TimeEntries(EntryFilter{}))
}

func TestAddTimeEntryValidationOrder(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)

	tests := []struct {
		name  string
		in    EntryInput
		field string
	}{
		{"project first", EntryInput{ProjectID: "missing", Description: "", Duration: 0}, "projectId"},
		{"then description", EntryInput{ProjectID: p.ID, Description: " ", Duration: 0}, "description"},
		{"then duration", EntryInput{ProjectID: p.ID, Description: "x", Duration: 0}, "duration"},
		{"negative duration", EntryInput{ProjectID: p.ID, Description: "x", Duration: -5}, "duration"},
		{"then date", EntryInput{ProjectID: p.ID, Description: "x", Duration: 10, Date: "14/05/2024"}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.AddTimeEntry(tt.in)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.field, FieldOf(err))
		})
	}
}

func TestAddTimeEntryDefaultsDateToToday(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)

	e, err := l.AddTimeEntry(EntryInput{ProjectID: p.ID, Description: "x", Duration: 15})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", e.Date)
	assert.Nil(t, e.StartTime)
}

func TestTimeEntriesMostRecentFirst(t *testing.T) {
	l, _, clock := newTestLedger(t)
	_, p := seedProject(t, l, 85)

	a := addEntry(t, l, p.ID, "2024-05-10", 10)
	clock.Advance(time.Second)
	b := addEntry(t, l, p.ID, "2024-05-12", 10)
	clock.Advance(time.Second)
	c := addEntry(t, l, p.ID, "2024-05-10", 10)

	got := l.TimeEntries(EntryFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	ranged := l.TimeEntries(EntryFilter{From: "2024-05-11", To: "2024-05-12"})
	require.Len(t, ranged, 1)
	assert.Equal(t, b.ID, ranged[0].ID)
}

func TestTimeEntriesFilterByClient(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c1, p1 := seedProject(t, l, 85)
	c2, err := l.AddClient(ClientInput{Name: "Other", Email: "o@o.io"})
	require.NoError(t, err)
	p2, err := l.AddProject(ProjectInput{Name: "Other", ClientID: c2.ID})
	require.NoError(t, err)
	addEntry(t, l, p1.ID, "2024-05-10", 10)
	addEntry(t, l, p2.ID, "2024-05-10", 20)

	got := l.TimeEntries(EntryFilter{ClientID: c1.ID})
	require.Len(t, got, 1)
	assert.Equal(t, p1.ID, got[0].ProjectID)
}

func TestUpdateTimeEntry(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, p := seedProject(t, l, 85)
	start := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
	e, err := l.AddTimeEntry(EntryInput{ProjectID: p.ID, Description: "x", StartTime: ptr(start), EndTime: ptr(start.Add(time.Hour))})
	require.NoError(t, err)
	require.Equal(t, 60, e.Duration)

	u, err := l.UpdateTimeEntry(e.ID, EntryPatch{EndTime: ptr(start.Add(2 * time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, 120, u.Duration)

	u, err = l.UpdateTimeEntry(e.ID, EntryPatch{Duration: ptr(45)})
	require.NoError(t, err)
	assert.Equal(t, 45, u.Duration)
	assert.Nil(t, u.StartTime)
	assert.Nil(t, u.EndTime)

	_, err = l.UpdateTimeEntry(e.ID, EntryPatch{Duration: ptr(0)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.UpdateTimeEntry("missing", EntryPatch{Duration: ptr(5)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBilledEntryCannotBeDeletedOrMoved(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, p := seedProject(t, l, 85)
	other, err := l.AddProject(ProjectInput{Name: "Other", ClientID: c.ID})
	require.NoError(t, err)
	e := addEntry(t, l, p.ID, "2024-05-14", 60)
	_, err = l.CreateInvoice(InvoiceInput{ClientID: c.ID, ProjectID: p.ID, EntryIDs: []string{e.ID}})
	require.NoError(t, err)

	require.ErrorIs(t, l.DeleteTimeEntry(e.ID), ErrConflict)
	_, err = l.UpdateTimeEntry(e.ID, EntryPatch{ProjectID: &other.ID})
	require.ErrorIs(t, err, ErrConflict)

	u, err := l.UpdateTimeEntry(e.ID, EntryPatch{Description: ptr("clarified")})
	require.NoError(t, err)
	assert.Equal(t, "clarified", u.Description)
}

func TestDeleteTimeEntryNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)
	require.ErrorIs(t, l.DeleteTimeEntry("nope"), ErrNotFound)
}
