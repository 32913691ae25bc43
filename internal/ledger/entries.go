package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sadopc/billr/internal/model"
)

// EntryInput describes a manually recorded entry. When both StartTime and
// EndTime are set the duration is derived from them and Duration is ignored.
type EntryInput struct {
	ProjectID   string
	Description string
	// Date defaults to today on the ledger clock.
	Date      string
	Duration  int
	StartTime *time.Time
	EndTime   *time.Time
}

// EntryPatch is a partial update; nil fields are left unchanged. Setting
// Duration without new times, or ClearTimes, turns the entry into a
// duration-only entry.
type EntryPatch struct {
	ProjectID   *string
	Description *string
	Date        *string
	Duration    *int
	StartTime   *time.Time
	EndTime     *time.Time
	ClearTimes  bool
}

// EntryFilter narrows TimeEntries. Zero fields match everything; From and To
// bound the entry date inclusively.
type EntryFilter struct {
	ProjectID string
	ClientID  string
	From      string
	To        string
}

// TimeEntries returns matching entries, most recent first.
func (l *Ledger) TimeEntries(f EntryFilter) []model.TimeEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entriesLocked(f)
}

func (l *Ledger) entriesLocked(f EntryFilter) []model.TimeEntry {
	out := l.entries.filter(func(e model.TimeEntry) bool {
		if f.ProjectID != "" && e.ProjectID != f.ProjectID {
			return false
		}
		if f.ClientID != "" {
			p, ok := l.projects.get(e.ProjectID)
			if !ok || p.ClientID != f.ClientID {
				return false
			}
		}
		if f.From != "" && e.Date < f.From {
			return false
		}
		if f.To != "" && e.Date > f.To {
			return false
		}
		return true
	})
	sortRecentFirst(out)
	return out
}

func sortRecentFirst(entries []model.TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (l *Ledger) TimeEntry(id string) (model.TimeEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries.get(id)
	if !ok {
		return model.TimeEntry{}, notFoundErr("time entry", id)
	}
	return e, nil
}

// AddTimeEntry validates and records a manual entry.
func (l *Ledger) AddTimeEntry(in EntryInput) (model.TimeEntry, error) {
	e := model.TimeEntry{
		ProjectID:   in.ProjectID,
		Description: in.Description,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Manual:      true,
	}
	err := l.mutate(func() ([]model.Kind, error) {
		if err := l.resolveEntryLocked(&e, in.Duration); err != nil {
			return nil, err
		}
		now := l.now()
		e.ID = l.newID()
		e.CreatedAt, e.UpdatedAt = now, now
		l.entries.put(e)
		l.log.Debug(context.Background(), "time entry added", "id", e.ID, "project", e.ProjectID, "minutes", e.Duration)
		return []model.Kind{model.KindTimeEntries}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.TimeEntry{}, err
	}
	return e, err
}

func (l *Ledger) UpdateTimeEntry(id string, p EntryPatch) (model.TimeEntry, error) {
	var out model.TimeEntry
	err := l.mutate(func() ([]model.Kind, error) {
		e, ok := l.entries.get(id)
		if !ok {
			return nil, notFoundErr("time entry", id)
		}
		if p.ProjectID != nil && *p.ProjectID != e.ProjectID {
			if inv, billed := l.invoiceOfLocked(id); billed {
				return nil, conflictErr("time entry", id, "entry is billed on invoice "+inv.Number)
			}
			e.ProjectID = *p.ProjectID
		}
		if p.Description != nil {
			e.Description = *p.Description
		}
		if p.Date != nil {
			e.Date = *p.Date
		}
		if p.ClearTimes || (p.Duration != nil && p.StartTime == nil && p.EndTime == nil) {
			e.StartTime, e.EndTime = nil, nil
		}
		if p.StartTime != nil {
			e.StartTime = p.StartTime
		}
		if p.EndTime != nil {
			e.EndTime = p.EndTime
		}
		duration := e.Duration
		if p.Duration != nil {
			duration = *p.Duration
		}
		if e.Date == "" {
			return nil, validationErr("time entry", "date", "must not be empty")
		}
		if err := l.resolveEntryLocked(&e, duration); err != nil {
			return nil, err
		}
		e.UpdatedAt = l.now()
		l.entries.put(e)
		out = e
		l.log.Debug(context.Background(), "time entry updated", "id", id)
		return []model.Kind{model.KindTimeEntries}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.TimeEntry{}, err
	}
	return out, err
}

// DeleteTimeEntry removes an entry that no invoice bills.
func (l *Ledger) DeleteTimeEntry(id string) error {
	return l.mutate(func() ([]model.Kind, error) {
		if _, ok := l.entries.get(id); !ok {
			return nil, notFoundErr("time entry", id)
		}
		if inv, billed := l.invoiceOfLocked(id); billed {
			return nil, conflictErr("time entry", id, "entry is billed on invoice "+inv.Number)
		}
		l.entries.remove(id)
		l.log.Debug(context.Background(), "time entry deleted", "id", id)
		return []model.Kind{model.KindTimeEntries}, nil
	})
}

// resolveEntryLocked applies the entry rules in order: project, description,
// duration, date. l.mu must be held.
func (l *Ledger) resolveEntryLocked(e *model.TimeEntry, duration int) error {
	if _, ok := l.projects.get(e.ProjectID); !ok {
		return &Error{Kind: ErrValidation, Entity: "time entry", Field: "projectId", Msg: "unknown project " + e.ProjectID}
	}
	desc, err := requireText("time entry", "description", e.Description, maxDescriptionLen)
	if err != nil {
		return err
	}
	e.Description = desc

	if e.StartTime != nil && e.EndTime != nil {
		d := roundMinutes(e.EndTime.Sub(*e.StartTime))
		if d <= 0 {
			return validationErr("time entry", "endTime", "end time must be after start time")
		}
		e.Duration = d
	} else {
		if duration < 1 {
			return validationErr("time entry", "duration", "must be at least one minute")
		}
		e.Duration = duration
	}

	if e.Date == "" {
		e.Date = l.today()
	} else if err := validDate("time entry", "date", e.Date); err != nil {
		return err
	}
	return nil
}

// invoiceOfLocked returns the invoice billing an entry, if any.
func (l *Ledger) invoiceOfLocked(entryID string) (model.Invoice, bool) {
	for _, inv := range l.invoices.rows {
		if inv.References(entryID) {
			return inv, true
		}
	}
	return model.Invoice{}, false
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
