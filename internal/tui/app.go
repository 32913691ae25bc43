package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
)

// Options configures the terminal UI.
type Options struct {
	// ExportDir receives report, invoice and backup files.
	ExportDir string
}

type exportChoice struct {
	label  string
	format export.Format // empty for a full backup
}

var exportChoices = []exportChoice{
	{"Report as CSV", export.FormatCSV},
	{"Report as text", export.FormatText},
	{"Report as JSON", export.FormatJSON},
	{"Full backup (JSON)", ""},
}

// App is the root Bubble Tea model.
type App struct {
	ledger *ledger.Ledger
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	clients   clientsModel
	projects  projectsModel
	entries   entriesModel
	invoices  invoicesModel
	reports   reportsModel
	settings  settingsModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(l *ledger.Ledger, opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	return App{
		ledger:     l,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(l),
		clients:    newClientsModel(l),
		projects:   newProjectsModel(l),
		entries:    newEntriesModel(l),
		invoices:   newInvoicesModel(l, opts.ExportDir),
		reports:    newReportsModel(l, opts.ExportDir),
		settings:   newSettingsModel(l, opts.ExportDir),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.reports.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.clients.setSize(a.width, contentHeight)
		a.projects.setSize(a.width, contentHeight)
		a.entries.setSize(a.width, contentHeight)
		a.invoices.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			if a.activeView == viewInvoices {
				return a.updateActiveView(msg)
			}
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewClients)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewProjects)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewEntries)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewInvoices)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewReports)
		case key.Matches(msg, keys.Tab7):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// Always route ticks to dashboard timer
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case TimerSyncMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		switch msg.Outcome {
		case ledger.ReconcileAdopted:
			a.setStatus("Timer picked up from another device", false)
		case ledger.ReconcileCleared:
			a.setStatus("Timer stopped on another device", false)
		case ledger.ReconcileUpdated:
			a.setStatus("Timer changed on another device", false)
		}
		return a, tea.Batch(cmd, a.refreshCurrentView())

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case timerStoppedMsg:
		a.setStatus("Timer stopped. Logged "+formatMinutes(msg.entry.Duration), false)
		return a, nil

	case timerStartedMsg:
		a.setStatus("Timer started", false)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil

	// Data loads go to their owner regardless of the visible view.
	case dashboardDataMsg:
		a.dashboard, _ = a.dashboard.update(msg)
		return a, nil
	case reportsDataMsg:
		a.reports, _ = a.reports.update(msg)
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewClients:
		a.clients, cmd = a.clients.update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.update(msg)
	case viewEntries:
		a.entries, cmd = a.entries.update(msg)
	case viewInvoices:
		a.invoices, cmd = a.invoices.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.formActive || a.dashboard.picking
	case viewClients:
		return a.clients.formActive
	case viewProjects:
		return a.projects.formActive
	case viewEntries:
		return a.entries.formActive
	case viewInvoices:
		return a.invoices.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewClients:
		return a.clients.refresh()
	case viewProjects:
		return a.projects.refresh()
	case viewEntries:
		return a.entries.refresh()
	case viewInvoices:
		return a.invoices.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewClients:
		content = a.clients.view()
	case viewProjects:
		content = a.projects.view()
	case viewEntries:
		content = a.entries.view()
	case viewInvoices:
		content = a.invoices.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("billr")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator in footer
	timerInfo := ""
	if a.dashboard.isRunning() {
		timerInfo = successStyle.Render(" ● " + formatDuration(a.dashboard.elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	q := a.reports.query()
	var rows []string
	rows = append(rows, titleStyle.Render("Export"))
	rows = append(rows, mutedStyle.Render("  Reports cover "+q.From+" to "+q.To+" (change it on the Reports tab)"))
	rows = append(rows, "")
	for i, c := range exportChoices {
		rows = append(rows, listRow(i == a.exportCursor, c.label))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportChoices)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportChoices[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(c exportChoice) tea.Cmd {
	if c.format == "" {
		return a.settings.exportBackup()
	}
	return a.reports.exportReport(c.format)
}
