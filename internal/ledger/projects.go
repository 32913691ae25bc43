package ledger

import (
	"context"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

type ProjectInput struct {
	Name        string
	Description string
	ClientID    string
	HourlyRate  decimal.Decimal
	// Currency defaults to the default_currency setting.
	Currency  string
	StartDate string
	EndDate   string
	// Status defaults to active.
	Status model.ProjectStatus
}

// ProjectPatch is a partial update; nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
	ClientID    *string
	HourlyRate  *decimal.Decimal
	Currency    *string
	StartDate   *string
	EndDate     *string
	Status      *model.ProjectStatus
}

func (l *Ledger) Projects() []model.Project {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.projects.all()
}

// ClientProjects returns the projects owned by a client.
func (l *Ledger) ClientProjects(clientID string) []model.Project {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.projects.filter(func(p model.Project) bool { return p.ClientID == clientID })
}

func (l *Ledger) Project(id string) (model.Project, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.projects.get(id)
	if !ok {
		return model.Project{}, notFoundErr("project", id)
	}
	return p, nil
}

func (l *Ledger) AddProject(in ProjectInput) (model.Project, error) {
	if in.Currency == "" {
		in.Currency = l.Setting(SettingDefaultCurrency, "")
	}
	if in.Status == "" {
		in.Status = model.ProjectActive
	}
	p := model.Project{
		Name:        in.Name,
		Description: in.Description,
		ClientID:    in.ClientID,
		HourlyRate:  in.HourlyRate,
		Currency:    in.Currency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      in.Status,
	}
	p, err := normalizeProject(p)
	if err != nil {
		return model.Project{}, err
	}

	err = l.mutate(func() ([]model.Kind, error) {
		if _, ok := l.clients.get(p.ClientID); !ok {
			return nil, &Error{Kind: ErrValidation, Entity: "project", Field: "clientId", Msg: "unknown client " + p.ClientID}
		}
		now := l.now()
		p.ID = l.newID()
		p.CreatedAt, p.UpdatedAt = now, now
		l.projects.put(p)
		l.log.Debug(context.Background(), "project added", "id", p.ID, "client", p.ClientID)
		return []model.Kind{model.KindProjects}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Project{}, err
	}
	return p, err
}

// UpdateProject applies a partial update. A rate change takes effect for
// every report computed afterwards; frozen invoice totals are untouched.
func (l *Ledger) UpdateProject(id string, patch ProjectPatch) (model.Project, error) {
	var out model.Project
	err := l.mutate(func() ([]model.Kind, error) {
		p, ok := l.projects.get(id)
		if !ok {
			return nil, notFoundErr("project", id)
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.ClientID != nil && *patch.ClientID != p.ClientID {
			if _, ok := l.clients.get(*patch.ClientID); !ok {
				return nil, &Error{Kind: ErrValidation, Entity: "project", Field: "clientId", Msg: "unknown client " + *patch.ClientID}
			}
			if l.invoices.any(func(inv model.Invoice) bool { return inv.ProjectID == id }) {
				return nil, conflictErr("project", id, "invoiced project cannot change client")
			}
			p.ClientID = *patch.ClientID
		}
		if patch.HourlyRate != nil {
			p.HourlyRate = *patch.HourlyRate
		}
		if patch.Currency != nil {
			p.Currency = *patch.Currency
		}
		if patch.StartDate != nil {
			p.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			p.EndDate = *patch.EndDate
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		p, err := normalizeProject(p)
		if err != nil {
			return nil, err
		}
		p.UpdatedAt = l.now()
		l.projects.put(p)
		out = p
		l.log.Debug(context.Background(), "project updated", "id", id)
		return []model.Kind{model.KindProjects}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Project{}, err
	}
	return out, err
}

// DeleteProject removes a project that no time entry or invoice references.
func (l *Ledger) DeleteProject(id string) error {
	return l.mutate(func() ([]model.Kind, error) {
		if _, ok := l.projects.get(id); !ok {
			return nil, notFoundErr("project", id)
		}
		if l.entries.any(func(e model.TimeEntry) bool { return e.ProjectID == id }) {
			return nil, conflictErr("project", id, "project has time entries")
		}
		if l.invoices.any(func(inv model.Invoice) bool { return inv.ProjectID == id }) {
			return nil, conflictErr("project", id, "project has invoices")
		}
		if l.timer != nil && l.timer.ProjectID == id {
			return nil, conflictErr("project", id, "timer is running for this project")
		}
		l.projects.remove(id)
		l.log.Debug(context.Background(), "project deleted", "id", id)
		return []model.Kind{model.KindProjects}, nil
	})
}

func normalizeProject(p model.Project) (model.Project, error) {
	var err error
	if p.Name, err = requireText("project", "name", p.Name, maxNameLen); err != nil {
		return p, err
	}
	if p.Description, err = optionalText("project", "description", p.Description, maxAddressLen); err != nil {
		return p, err
	}
	if p.HourlyRate.IsNegative() {
		return p, validationErr("project", "hourlyRate", "must not be negative")
	}
	if p.Currency, err = validCurrency("project", p.Currency); err != nil {
		return p, err
	}
	if !p.Status.Valid() {
		return p, validationErr("project", "status", "unknown status "+string(p.Status))
	}
	if p.StartDate != "" {
		if err := validDate("project", "startDate", p.StartDate); err != nil {
			return p, err
		}
	}
	if p.EndDate != "" {
		if err := validDate("project", "endDate", p.EndDate); err != nil {
			return p, err
		}
	}
	if p.StartDate != "" && p.EndDate != "" && p.EndDate < p.StartDate {
		return p, validationErr("project", "endDate", "must not precede the start date")
	}
	return p, nil
}
