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
	"github.com/shopspring/decimal"
)

type projectsModel struct {
	ledger *ledger.Ledger
	width  int
	height int

	projects    []model.Project
	clients     []model.Client
	clientNames map[string]string
	cursor      int

	formActive bool
	form       *huh.Form
	editingID  string // empty for a new project

	// Form field pointers (survive value copies)
	formName        *string
	formClient      *string
	formRate        *string
	formCurrency    *string
	formStatus      *model.ProjectStatus
	formStart       *string
	formEnd         *string
	formDescription *string
}

func newProjectsModel(l *ledger.Ledger) projectsModel {
	name, client, rate, cur, start, end, desc := "", "", "", "", "", "", ""
	st := model.ProjectActive
	return projectsModel{
		ledger:          l,
		formName:        &name,
		formClient:      &client,
		formRate:        &rate,
		formCurrency:    &cur,
		formStatus:      &st,
		formStart:       &start,
		formEnd:         &end,
		formDescription: &desc,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type projectsDataMsg struct {
	projects []model.Project
	clients  []model.Client
}

func (p projectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return projectsDataMsg{projects: p.ledger.Projects(), clients: p.ledger.Clients()}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		p.clients = msg.clients
		p.clientNames = make(map[string]string, len(msg.clients))
		for _, c := range msg.clients {
			p.clientNames[c.ID] = c.Name
		}
		p.cursor = clampCursor(p.cursor, len(p.projects))
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.projects)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.New):
			if len(p.clients) == 0 {
				return p, func() tea.Msg {
					return statusMsg{text: "Add a client first (press 2).", isError: true}
				}
			}
			return p.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(p.projects) > 0 {
				proj := p.projects[p.cursor]
				return p.showForm(&proj)
			}
		case key.Matches(msg, keys.Status):
			if len(p.projects) > 0 {
				return p, p.cycleStatus(p.projects[p.cursor])
			}
		case key.Matches(msg, keys.Delete):
			if len(p.projects) > 0 {
				proj := p.projects[p.cursor]
				err := p.ledger.DeleteProject(proj.ID)
				return p, tea.Batch(p.refresh(), statusOr("Deleted project "+proj.Name, err))
			}
		}
	}
	return p, nil
}

func (p projectsModel) cycleStatus(proj model.Project) tea.Cmd {
	next := model.ProjectStatuses[0]
	for i, s := range model.ProjectStatuses {
		if s == proj.Status {
			next = model.ProjectStatuses[(i+1)%len(model.ProjectStatuses)]
		}
	}
	_, err := p.ledger.UpdateProject(proj.ID, ledger.ProjectPatch{Status: &next})
	return tea.Batch(p.refresh(), statusOr(fmt.Sprintf("%s is now %s", proj.Name, next), err))
}

func (p projectsModel) showForm(proj *model.Project) (projectsModel, tea.Cmd) {
	if proj == nil {
		p.editingID = ""
		*p.formName, *p.formRate, *p.formStart, *p.formEnd, *p.formDescription = "", "", "", "", ""
		*p.formClient = p.clients[0].ID
		*p.formCurrency = p.ledger.Setting(ledger.SettingDefaultCurrency, "EUR")
		*p.formStatus = model.ProjectActive
	} else {
		p.editingID = proj.ID
		*p.formName = proj.Name
		*p.formClient = proj.ClientID
		*p.formRate = proj.HourlyRate.String()
		*p.formCurrency = proj.Currency
		*p.formStatus = proj.Status
		*p.formStart, *p.formEnd = proj.StartDate, proj.EndDate
		*p.formDescription = proj.Description
	}

	clientOptions := make([]huh.Option[string], len(p.clients))
	for i, c := range p.clients {
		clientOptions[i] = huh.NewOption(c.Name, c.ID)
	}
	statusOptions := make([]huh.Option[model.ProjectStatus], len(model.ProjectStatuses))
	for i, s := range model.ProjectStatuses {
		statusOptions[i] = huh.NewOption(string(s), s)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").CharLimit(255).Value(p.formName).Validate(required("name")),
			huh.NewSelect[string]().Title("Client").Options(clientOptions...).Value(p.formClient),
			huh.NewInput().Title("Hourly rate").Placeholder("85.00").Value(p.formRate).Validate(validRate),
			huh.NewInput().Title("Currency").CharLimit(3).Value(p.formCurrency),
		),
		huh.NewGroup(
			huh.NewSelect[model.ProjectStatus]().Title("Status").Options(statusOptions...).Value(p.formStatus),
			huh.NewInput().Title("Start date").Placeholder(model.DateLayout).Value(p.formStart).Validate(optionalDate),
			huh.NewInput().Title("End date").Placeholder(model.DateLayout).Value(p.formEnd).Validate(optionalDate),
			huh.NewText().Title("Description").CharLimit(500).Lines(3).Value(p.formDescription),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		p.form = nil
		return p, tea.Batch(p.refresh(), p.save())
	}

	return p, cmd
}

func (p projectsModel) save() tea.Cmd {
	rate, err := decimal.NewFromString(strings.TrimSpace(*p.formRate))
	if err != nil {
		return errStatus("Error", fmt.Errorf("hourly rate: %w", err))
	}
	currency := strings.ToUpper(strings.TrimSpace(*p.formCurrency))

	if p.editingID == "" {
		proj, err := p.ledger.AddProject(ledger.ProjectInput{
			Name:        *p.formName,
			Description: *p.formDescription,
			ClientID:    *p.formClient,
			HourlyRate:  rate,
			Currency:    currency,
			StartDate:   strings.TrimSpace(*p.formStart),
			EndDate:     strings.TrimSpace(*p.formEnd),
			Status:      *p.formStatus,
		})
		return statusOr("Added project "+proj.Name, err)
	}

	name, desc, client := *p.formName, *p.formDescription, *p.formClient
	start, end, st := strings.TrimSpace(*p.formStart), strings.TrimSpace(*p.formEnd), *p.formStatus
	proj, err := p.ledger.UpdateProject(p.editingID, ledger.ProjectPatch{
		Name:        &name,
		Description: &desc,
		ClientID:    &client,
		HourlyRate:  &rate,
		Currency:    &currency,
		StartDate:   &start,
		EndDate:     &end,
		Status:      &st,
	})
	return statusOr("Updated project "+proj.Name, err)
}

func (p projectsModel) view() string {
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		if p.editingID != "" {
			title = titleStyle.Render("Edit Project")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(p.width - 4).Render(content)
	}
	return p.renderProjectList()
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("    %-24s %-20s %14s  %s", "Name", "Client", "Rate", "Status"))
	rows = append(rows, header)

	for i, proj := range p.projects {
		dot := lipgloss.NewStyle().Foreground(seriesColor(i)).Render("●")
		client := p.clientNames[proj.ClientID]
		line := fmt.Sprintf("%-24s %-20s %14s",
			truncate(proj.Name, 24), truncate(client, 20), formatMoney(proj.HourlyRate, proj.Currency)+"/h")
		status := projectStatusStyle(proj.Status).Render(string(proj.Status))
		rows = append(rows, dot+listRow(i == p.cursor, line)+"  "+status)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: edit  c: cycle status  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func validRate(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a number like 85 or 85.50")
	}
	if d.IsNegative() {
		return fmt.Errorf("rate cannot be negative")
	}
	return nil
}

func optionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("use %s", model.DateLayout)
	}
	return nil
}
