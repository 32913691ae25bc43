package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

type dashboardModel struct {
	ledger *ledger.Ledger
	timer  timerModel
	width  int
	height int

	stats        ledger.DashboardStats
	projects     []model.Project
	projectNames map[string]string
	currency     string

	// Project picker state
	picking      bool
	pickerCursor int

	// Description prompt shown after a project is picked.
	formActive  bool
	form        *huh.Form
	pending     model.Project
	description *string
}

func newDashboardModel(l *ledger.Ledger) dashboardModel {
	desc := ""
	return dashboardModel{
		ledger:      l,
		timer:       newTimerModel(l),
		description: &desc,
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) isRunning() bool { return d.timer.running() }
func (d dashboardModel) elapsed() time.Duration {
	return d.timer.currentElapsed()
}

type dashboardDataMsg struct {
	stats        ledger.DashboardStats
	projects     []model.Project
	projectNames map[string]string
	currency     string
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		names := make(map[string]string)
		var active []model.Project
		for _, p := range d.ledger.Projects() {
			names[p.ID] = p.Name
			if p.Status == model.ProjectActive {
				active = append(active, p)
			}
		}
		return dashboardDataMsg{
			stats:        d.ledger.Dashboard(),
			projects:     active,
			projectNames: names,
			currency:     d.ledger.Setting(ledger.SettingDefaultCurrency, "EUR"),
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	// Data and clock messages arrive while the prompt is open too.
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.stats = msg.stats
		d.projects = msg.projects
		d.projectNames = msg.projectNames
		d.currency = msg.currency
		d.pickerCursor = clampCursor(d.pickerCursor, len(d.projects))
		d.timer.sync()
		return d, nil

	case tickMsg:
		d.timer.tick()
		return d, nil

	case TimerSyncMsg:
		d.timer.sync()
		return d, d.loadData()
	}

	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if d.timer.running() {
				return d, status("Timer already running. Press x to stop it first.")
			}
			if len(d.projects) == 0 {
				return d, func() tea.Msg {
					return statusMsg{text: "No active projects. Press 3 to go to Projects and create one.", isError: true}
				}
			}
			if len(d.projects) == 1 {
				return d.askDescription(d.projects[0])
			}
			d.picking = true
			d.pickerCursor = 0
			return d, nil

		case key.Matches(msg, keys.Stop):
			return d.stopTimer()
		}
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.projects)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		p := d.projects[d.pickerCursor]
		d.picking = false
		return d.askDescription(p)
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d dashboardModel) askDescription(p model.Project) (dashboardModel, tea.Cmd) {
	*d.description = ""
	d.pending = p
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What are you working on?").
				Description(p.Name).
				CharLimit(500).
				Value(d.description).
				Validate(required("description")),
		),
	).WithShowHelp(true).WithShowErrors(true)
	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		d.formActive = false
		d.form = nil
		return d, nil
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}
	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.form = nil
		return d.startTimer(d.pending, *d.description)
	}
	return d, cmd
}

func (d dashboardModel) startTimer(p model.Project, description string) (dashboardModel, tea.Cmd) {
	err := d.timer.start(p.ID, description)
	if err != nil && !ledger.IsWarning(err) {
		return d, errStatus("Error", err)
	}
	at, _ := d.ledger.ActiveTimer()
	cmds := []tea.Cmd{d.loadData(), func() tea.Msg { return timerStartedMsg{timer: at} }}
	if err != nil {
		cmds = append(cmds, errStatus("Timer started", err))
	}
	return d, tea.Batch(cmds...)
}

func (d dashboardModel) stopTimer() (dashboardModel, tea.Cmd) {
	if !d.timer.running() {
		return d, nil
	}
	entry, err := d.timer.stop()
	if err != nil && !ledger.IsWarning(err) {
		return d, errStatus("Error", err)
	}
	cmds := []tea.Cmd{d.loadData(), func() tea.Msg { return timerStoppedMsg{entry: entry} }}
	if err != nil {
		cmds = append(cmds, errStatus("Timer stopped", err))
	}
	return d, tea.Batch(cmds...)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.formActive && d.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Start Timer"), "", d.form.View())
		return activePanelStyle.Width(contentWidth).Render(content)
	}

	timerPanel := d.renderTimerPanel(contentWidth)
	summaryPanel := d.renderSummaryPanel(contentWidth)

	var bottomPanel string
	if d.picking {
		bottomPanel = d.renderProjectPicker(contentWidth)
	} else {
		bottomPanel = d.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	if d.timer.running() {
		timeDisplay := timerRunningStyle.Width(w - 6).Render(formatDuration(d.timer.currentElapsed()))
		indicator := successStyle.Render("●  RUNNING")

		projectLine := highlightStyle.Render(d.timer.projectName)
		if desc := d.timer.description(); desc != "" {
			projectLine += mutedStyle.Render(" / " + truncate(desc, 40))
		}

		content := lipgloss.JoinVertical(lipgloss.Center,
			timeDisplay,
			indicator,
			projectLine,
		)
		return activePanelStyle.Width(w).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  STOPPED"),
		mutedStyle.Render("Press s to start tracking"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	s := d.stats
	stat := func(label, value string) string {
		return fmt.Sprintf("  %-14s %s", label, highlightStyle.Render(value))
	}
	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Time"),
		stat("Today", formatMinutes(s.TodayMinutes)),
		stat("This week", formatMinutes(s.WeekMinutes)),
		stat("Entries", fmt.Sprintf("%d", s.EntryCount)),
	)
	outstanding := formatMoney(s.Outstanding, d.currency)
	if s.OutstandingCount > 0 {
		outstanding += mutedStyle.Render(fmt.Sprintf(" (%d)", s.OutstandingCount))
	}
	right := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Money"),
		stat("Revenue", formatMoney(s.TotalRevenue, d.currency)),
		stat("Invoiced", formatMoney(s.TotalInvoiced, d.currency)),
		stat("Outstanding", outstanding),
	)
	counts := mutedStyle.Render(fmt.Sprintf("%d active clients  %d active projects", s.ActiveClients, s.ActiveProjects))

	cols := lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(w/2).Render(left), right)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, cols, "", counts))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Entries")
	if len(d.stats.Recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No entries yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, e := range d.stats.Recent {
		pName, ok := d.projectNames[e.ProjectID]
		if !ok {
			pName = "?"
		}
		mark := "●"
		if e.Manual {
			mark = "✎"
		}
		row := fmt.Sprintf("  %s %s  %-18s %8s  %s",
			mark, e.Date, truncate(pName, 18), formatMinutes(e.Duration), mutedStyle.Render(truncate(e.Description, 40)))
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderProjectPicker(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Select Project"))
	for i, p := range d.projects {
		dot := lipgloss.NewStyle().Foreground(seriesColor(i)).Render("●")
		rows = append(rows, listRow(i == d.pickerCursor, dot+" "+p.Name))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
