package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

type clientsModel struct {
	ledger *ledger.Ledger
	width  int
	height int

	clients  []model.Client
	projects map[string]int // client id -> project count
	cursor   int

	formActive bool
	form       *huh.Form
	editingID  string // empty for a new client

	// Form field pointers (survive value copies)
	formName     *string
	formEmail    *string
	formPhone    *string
	formAddress  *string
	formIsActive *bool
}

func newClientsModel(l *ledger.Ledger) clientsModel {
	name, email, phone, addr, active := "", "", "", "", true
	return clientsModel{
		ledger:       l,
		formName:     &name,
		formEmail:    &email,
		formPhone:    &phone,
		formAddress:  &addr,
		formIsActive: &active,
	}
}

func (c *clientsModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type clientsDataMsg struct {
	clients  []model.Client
	projects map[string]int
}

func (c clientsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		counts := make(map[string]int)
		for _, p := range c.ledger.Projects() {
			counts[p.ClientID]++
		}
		return clientsDataMsg{clients: c.ledger.Clients(), projects: counts}
	}
}

func (c clientsModel) update(msg tea.Msg) (clientsModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case clientsDataMsg:
		c.clients = msg.clients
		c.projects = msg.projects
		c.cursor = clampCursor(c.cursor, len(c.clients))
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.clients)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.New):
			return c.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(c.clients) > 0 {
				cl := c.clients[c.cursor]
				return c.showForm(&cl)
			}
		case key.Matches(msg, keys.Delete):
			if len(c.clients) > 0 {
				cl := c.clients[c.cursor]
				err := c.ledger.DeleteClient(cl.ID)
				return c, tea.Batch(c.refresh(), statusOr("Deleted client "+cl.Name, err))
			}
		}
	}
	return c, nil
}

func (c clientsModel) showForm(cl *model.Client) (clientsModel, tea.Cmd) {
	if cl == nil {
		c.editingID = ""
		*c.formName, *c.formEmail, *c.formPhone, *c.formAddress = "", "", "", ""
		*c.formIsActive = true
	} else {
		c.editingID = cl.ID
		*c.formName, *c.formEmail, *c.formPhone, *c.formAddress = cl.Name, cl.Email, cl.Phone, cl.Address
		*c.formIsActive = cl.Active
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").CharLimit(255).Value(c.formName).Validate(required("name")),
			huh.NewInput().Title("Email").CharLimit(255).Value(c.formEmail).Validate(required("email")),
			huh.NewInput().Title("Phone").CharLimit(50).Value(c.formPhone),
			huh.NewText().Title("Address").CharLimit(500).Lines(3).Value(c.formAddress),
			huh.NewConfirm().Title("Active").Value(c.formIsActive),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c clientsModel) updateForm(msg tea.Msg) (clientsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		c.formActive = false
		c.form = nil
		return c, nil
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		c.form = nil
		return c, tea.Batch(c.refresh(), c.save())
	}
	return c, cmd
}

func (c clientsModel) save() tea.Cmd {
	if c.editingID == "" {
		cl, err := c.ledger.AddClient(ledger.ClientInput{
			Name:    *c.formName,
			Email:   *c.formEmail,
			Phone:   *c.formPhone,
			Address: *c.formAddress,
			Active:  c.formIsActive,
		})
		return statusOr("Added client "+cl.Name, err)
	}
	name, email, phone, addr, active := *c.formName, *c.formEmail, *c.formPhone, *c.formAddress, *c.formIsActive
	cl, err := c.ledger.UpdateClient(c.editingID, ledger.ClientPatch{
		Name:    &name,
		Email:   &email,
		Phone:   &phone,
		Address: &addr,
		Active:  &active,
	})
	return statusOr("Updated client "+cl.Name, err)
}

func (c clientsModel) view() string {
	w := c.width - 4
	if c.formActive && c.form != nil {
		title := "New Client"
		if c.editingID != "" {
			title = "Edit Client"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", c.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Clients")
	if len(c.clients) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No clients yet. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %-30s %-16s %8s  %s", "Name", "Email", "Phone", "Projects", "")))
	for i, cl := range c.clients {
		state := successStyle.Render("active")
		if !cl.Active {
			state = mutedStyle.Render("inactive")
		}
		line := fmt.Sprintf("%-24s %-30s %-16s %8d",
			truncate(cl.Name, 24), truncate(cl.Email, 30), truncate(cl.Phone, 16), c.projects[cl.ID])
		rows = append(rows, listRow(i == c.cursor, line)+"  "+state)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: edit  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// required rejects blank input in a form field.
func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
