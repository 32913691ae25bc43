package ledger

import (
	"context"
	"fmt"

	"github.com/sadopc/billr/internal/model"
)

// Backup returns a snapshot of every collection and setting, stamped with
// the ledger clock.
func (l *Ledger) Backup() model.Backup {
	settings := l.Settings()
	l.mu.RLock()
	defer l.mu.RUnlock()
	return model.Backup{
		Version:     model.BackupVersion,
		ExportedAt:  l.now(),
		Clients:     l.clients.all(),
		Projects:    l.projects.all(),
		TimeEntries: l.entries.all(),
		Invoices:    l.invoices.all(),
		Settings:    settings,
	}
}

// Restore replaces all four collections with the backup's contents after
// checking referential integrity. On a validation failure nothing changes.
// A running timer whose project is not in the backup is discarded.
func (l *Ledger) Restore(b model.Backup) error {
	if err := checkBackup(b); err != nil {
		return err
	}
	var warn error
	for k, v := range b.Settings {
		if _, err := normalizeSetting(k, v); err != nil {
			l.log.Warn(context.Background(), "skipping backup setting", "key", k, "err", err)
			continue
		}
		if err := l.SetSetting(k, v); err != nil {
			warn = err
		}
	}
	err := l.mutate(func() ([]model.Kind, error) {
		l.clients.replace(b.Clients)
		l.projects.replace(b.Projects)
		l.entries.replace(b.TimeEntries)
		l.invoices.replace(b.Invoices)
		kinds := []model.Kind{model.KindClients, model.KindProjects, model.KindTimeEntries, model.KindInvoices}
		if l.timer != nil {
			if _, ok := l.projects.get(l.timer.ProjectID); !ok {
				l.timer = nil
				kinds = append(kinds, model.KindActiveTimer)
			}
		}
		l.log.Info(context.Background(), "backup restored",
			"clients", len(b.Clients), "projects", len(b.Projects),
			"entries", len(b.TimeEntries), "invoices", len(b.Invoices))
		return kinds, nil
	})
	if err != nil {
		return err
	}
	return warn
}

func checkBackup(b model.Backup) error {
	if b.Version > model.BackupVersion {
		return validationErr("backup", "version", fmt.Sprintf("unsupported version %d", b.Version))
	}
	clients := make(map[string]bool, len(b.Clients))
	for _, c := range b.Clients {
		if c.ID == "" || clients[c.ID] {
			return validationErr("backup", "clients", "missing or duplicate client id "+c.ID)
		}
		clients[c.ID] = true
	}
	projects := make(map[string]model.Project, len(b.Projects))
	for _, p := range b.Projects {
		if _, dup := projects[p.ID]; p.ID == "" || dup {
			return validationErr("backup", "projects", "missing or duplicate project id "+p.ID)
		}
		if !clients[p.ClientID] {
			return validationErr("backup", "projects", "project "+p.ID+" references unknown client "+p.ClientID)
		}
		projects[p.ID] = p
	}
	entries := make(map[string]model.TimeEntry, len(b.TimeEntries))
	for _, e := range b.TimeEntries {
		if _, dup := entries[e.ID]; e.ID == "" || dup {
			return validationErr("backup", "timeEntries", "missing or duplicate time entry id "+e.ID)
		}
		if _, ok := projects[e.ProjectID]; !ok {
			return validationErr("backup", "timeEntries", "entry "+e.ID+" references unknown project "+e.ProjectID)
		}
		if e.Duration < 1 {
			return validationErr("backup", "timeEntries", "entry "+e.ID+" has no duration")
		}
		entries[e.ID] = e
	}
	billed := make(map[string]string)
	numbers := make(map[string]bool)
	invoices := make(map[string]bool)
	for _, inv := range b.Invoices {
		if inv.ID == "" || invoices[inv.ID] {
			return validationErr("backup", "invoices", "missing or duplicate invoice id "+inv.ID)
		}
		invoices[inv.ID] = true
		if numbers[inv.Number] {
			return validationErr("backup", "invoices", "duplicate invoice number "+inv.Number)
		}
		numbers[inv.Number] = true
		p, ok := projects[inv.ProjectID]
		if !ok || p.ClientID != inv.ClientID {
			return validationErr("backup", "invoices", "invoice "+inv.Number+" has an inconsistent client or project")
		}
		for _, id := range inv.TimeEntryIDs {
			e, ok := entries[id]
			if !ok || e.ProjectID != inv.ProjectID {
				return validationErr("backup", "invoices", "invoice "+inv.Number+" bills foreign entry "+id)
			}
			if other, dup := billed[id]; dup {
				return validationErr("backup", "invoices", "entry "+id+" billed on "+other+" and "+inv.Number)
			}
			billed[id] = inv.Number
		}
	}
	return nil
}
