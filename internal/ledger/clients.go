package ledger

import (
	"context"
	"strings"

	"github.com/sadopc/billr/internal/model"
)

type ClientInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	// Active defaults to true when nil.
	Active *bool
}

// ClientPatch is a partial update; nil fields are left unchanged.
type ClientPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Active  *bool
}

func (l *Ledger) Clients() []model.Client {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clients.all()
}

func (l *Ledger) Client(id string) (model.Client, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.clients.get(id)
	if !ok {
		return model.Client{}, notFoundErr("client", id)
	}
	return c, nil
}

func (l *Ledger) AddClient(in ClientInput) (model.Client, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	c := model.Client{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
		Active:  active,
	}
	c, err := normalizeClient(c)
	if err != nil {
		return model.Client{}, err
	}

	err = l.mutate(func() ([]model.Kind, error) {
		if err := l.checkEmailFree(c.Email, ""); err != nil {
			return nil, err
		}
		now := l.now()
		c.ID = l.newID()
		c.CreatedAt, c.UpdatedAt = now, now
		l.clients.put(c)
		l.log.Debug(context.Background(), "client added", "id", c.ID)
		return []model.Kind{model.KindClients}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Client{}, err
	}
	return c, err
}

func (l *Ledger) UpdateClient(id string, p ClientPatch) (model.Client, error) {
	var out model.Client
	err := l.mutate(func() ([]model.Kind, error) {
		c, ok := l.clients.get(id)
		if !ok {
			return nil, notFoundErr("client", id)
		}
		if p.Name != nil {
			c.Name = *p.Name
		}
		if p.Email != nil {
			c.Email = *p.Email
		}
		if p.Phone != nil {
			c.Phone = *p.Phone
		}
		if p.Address != nil {
			c.Address = *p.Address
		}
		if p.Active != nil {
			c.Active = *p.Active
		}
		c, err := normalizeClient(c)
		if err != nil {
			return nil, err
		}
		if err := l.checkEmailFree(c.Email, id); err != nil {
			return nil, err
		}
		c.UpdatedAt = l.now()
		l.clients.put(c)
		out = c
		l.log.Debug(context.Background(), "client updated", "id", id)
		return []model.Kind{model.KindClients}, nil
	})
	if err != nil && !IsWarning(err) {
		return model.Client{}, err
	}
	return out, err
}

// DeleteClient removes a client that no project or invoice references.
func (l *Ledger) DeleteClient(id string) error {
	return l.mutate(func() ([]model.Kind, error) {
		if _, ok := l.clients.get(id); !ok {
			return nil, notFoundErr("client", id)
		}
		if l.projects.any(func(p model.Project) bool { return p.ClientID == id }) {
			return nil, conflictErr("client", id, "client has projects")
		}
		if l.invoices.any(func(inv model.Invoice) bool { return inv.ClientID == id }) {
			return nil, conflictErr("client", id, "client has invoices")
		}
		l.clients.remove(id)
		l.log.Debug(context.Background(), "client deleted", "id", id)
		return []model.Kind{model.KindClients}, nil
	})
}

func normalizeClient(c model.Client) (model.Client, error) {
	var err error
	if c.Name, err = requireText("client", "name", c.Name, maxNameLen); err != nil {
		return c, err
	}
	if c.Email, err = validEmail(c.Email); err != nil {
		return c, err
	}
	if c.Phone, err = optionalText("client", "phone", c.Phone, maxPhoneLen); err != nil {
		return c, err
	}
	if c.Address, err = optionalText("client", "address", c.Address, maxAddressLen); err != nil {
		return c, err
	}
	return c, nil
}

// checkEmailFree must be called with l.mu held.
func (l *Ledger) checkEmailFree(email, exceptID string) error {
	taken := l.clients.any(func(c model.Client) bool {
		return c.ID != exceptID && strings.EqualFold(c.Email, email)
	})
	if taken {
		return &Error{Kind: ErrConflict, Entity: "client", Field: "email", Msg: "email already registered"}
	}
	return nil
}
