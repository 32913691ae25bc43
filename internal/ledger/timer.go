package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/sadopc/billr/internal/model"
)

// ActiveTimer returns the running timer, if any.
func (l *Ledger) ActiveTimer() (model.ActiveTimer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.timer == nil {
		return model.ActiveTimer{}, false
	}
	return *l.timer, true
}

// Elapsed returns how long the running timer has been running, or zero.
func (l *Ledger) Elapsed() time.Duration {
	t, ok := l.ActiveTimer()
	if !ok {
		return 0
	}
	if d := l.now().Sub(t.StartTime); d > 0 {
		return d
	}
	return 0
}

// StartTimer moves the timer from idle to running. The project must exist
// and be active.
func (l *Ledger) StartTimer(projectID, description string) (model.ActiveTimer, error) {
	var out model.ActiveTimer
	err := l.mutate(func() ([]model.Kind, error) {
		if l.timer != nil {
			return nil, invalidStateErr("timer is already running")
		}
		p, ok := l.projects.get(projectID)
		if !ok {
			return nil, &Error{Kind: ErrValidation, Entity: "timer", Field: "projectId", Msg: "unknown project " + projectID}
		}
		if p.Status != model.ProjectActive {
			return nil, &Error{Kind: ErrValidation, Entity: "timer", Field: "projectId", Msg: "project is " + string(p.Status)}
		}
		desc, err := requireText("timer", "description", description, maxDescriptionLen)
		if err != nil {
			return nil, err
		}
		now := l.now()
		out = model.ActiveTimer{
			ID:          l.newID(),
			ProjectID:   projectID,
			Description: desc,
			StartTime:   now,
			CreatedAt:   now,
		}
		t := out
		l.timer = &t
		l.log.Info(context.Background(), "timer started", "project", projectID)
		return []model.Kind{model.KindActiveTimer}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.ActiveTimer{}, err
	}
	return out, err
}

// StopTimer moves the timer from running to idle and records exactly one
// timer entry. The entry insert and the timer clear are applied under one
// lock.
func (l *Ledger) StopTimer() (model.TimeEntry, error) {
	l.mu.Lock()
	if l.timer == nil {
		l.mu.Unlock()
		return model.TimeEntry{}, invalidStateErr("no timer is running")
	}
	t := *l.timer
	if _, ok := l.projects.get(t.ProjectID); !ok {
		l.timer = nil
		snaps := l.snapshotLocked(model.KindActiveTimer)
		l.mu.Unlock()
		l.log.Warn(context.Background(), "discarding timer of missing project", "project", t.ProjectID)
		if err := l.flush(snaps); err != nil {
			l.log.Warn(context.Background(), "persist discarded timer failed", "err", err)
		}
		return model.TimeEntry{}, &Error{Kind: ErrValidation, Entity: "timer", Field: "projectId", Msg: "unknown project " + t.ProjectID}
	}

	now := l.now()
	end := now
	if end.Before(t.StartTime) {
		end = t.StartTime
	}
	start := t.StartTime
	minutes := roundMinutes(end.Sub(start))
	if minutes < 1 {
		minutes = 1
	}
	e := model.TimeEntry{
		ID:          l.newID(),
		ProjectID:   t.ProjectID,
		Description: t.Description,
		Date:        model.DateOf(start, l.loc),
		Duration:    minutes,
		StartTime:   &start,
		EndTime:     &end,
		Manual:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.entries.put(e)
	l.timer = nil
	snaps := l.snapshotLocked(model.KindTimeEntries, model.KindActiveTimer)
	l.mu.Unlock()

	l.log.Info(context.Background(), "timer stopped", "project", e.ProjectID, "minutes", minutes)
	return e, l.flush(snaps)
}

// Reconciliation is the outcome of comparing the local timer with the
// remote one.
type Reconciliation string

const (
	ReconcileInSync   Reconciliation = "in-sync"
	ReconcileCleared  Reconciliation = "cleared"
	ReconcileAdopted  Reconciliation = "adopted"
	ReconcileUpdated  Reconciliation = "updated"
	ReconcileConflict Reconciliation = "conflict"
)

// ReconcileTimer aligns the local timer with the remote source of truth.
// Remote absence is authoritative and clears a local timer without recording
// an entry. A remote timer is adopted when local is idle, and replaces a local
// timer with the same id whose content drifted. When both exist
// with different ids the local timer is kept and the conflict is reported.
func (l *Ledger) ReconcileTimer(remote *model.ActiveTimer) (Reconciliation, error) {
	l.mu.Lock()
	local := l.timer
	var outcome Reconciliation
	switch {
	case remote == nil && local == nil:
		l.mu.Unlock()
		return ReconcileInSync, nil
	case remote == nil:
		l.timer = nil
		outcome = ReconcileCleared
	case local == nil:
		t := *remote
		l.timer = &t
		outcome = ReconcileAdopted
	case local.ID == remote.ID:
		if sameTimer(*local, *remote) {
			l.mu.Unlock()
			return ReconcileInSync, nil
		}
		t := *remote
		l.timer = &t
		outcome = ReconcileUpdated
	default:
		localID := local.ID
		l.mu.Unlock()
		l.log.Warn(context.Background(), "timer conflict with remote, keeping local",
			"local", localID, "remote", remote.ID)
		return ReconcileConflict, nil
	}
	snaps := l.snapshotLocked(model.KindActiveTimer)
	l.mu.Unlock()

	l.log.Info(context.Background(), "timer reconciled", "outcome", outcome)
	return outcome, l.flush(snaps)
}

func sameTimer(a, b model.ActiveTimer) bool {
	return a.ProjectID == b.ProjectID &&
		strings.TrimSpace(a.Description) == strings.TrimSpace(b.Description) &&
		a.StartTime.Equal(b.StartTime)
}
