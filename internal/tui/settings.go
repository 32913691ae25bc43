package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
)

var settingLabels = map[string]string{
	ledger.SettingDefaultCurrency: "Default currency",
	ledger.SettingInvoiceDueDays:  "Invoice due after",
	ledger.SettingWeekStart:       "Week starts on",
	ledger.SettingTheme:           "Theme",
}

type settingsModel struct {
	ledger    *ledger.Ledger
	exportDir string
	width     int
	height    int

	settings   map[string]string
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	currency  *string
	dueDays   *string
	weekStart *string
	theme     *string
}

func newSettingsModel(l *ledger.Ledger, exportDir string) settingsModel {
	cur, due, ws, theme := "", "", "", ""
	return settingsModel{
		ledger:    l,
		exportDir: exportDir,
		currency:  &cur,
		dueDays:   &due,
		weekStart: &ws,
		theme:     &theme,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings map[string]string
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{settings: s.ledger.Settings()}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.currency = s.ledger.Setting(ledger.SettingDefaultCurrency, "EUR")
	*s.dueDays = s.ledger.Setting(ledger.SettingInvoiceDueDays, "14")
	*s.weekStart = s.ledger.Setting(ledger.SettingWeekStart, "monday")
	*s.theme = s.ledger.Setting(ledger.SettingTheme, "dark")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Default currency").Description("ISO code for new projects").
				CharLimit(3).Value(s.currency),
			huh.NewInput().Title("Invoice due after (days)").Value(s.dueDays).Validate(validDueDays),
		).Title("Invoicing"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).Value(s.theme),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, tea.Batch(s.refresh(), s.saveSettings())
	}

	return s, cmd
}

// saveSettings stores every field and reports the first rejected one.
func (s settingsModel) saveSettings() tea.Cmd {
	values := map[string]string{
		ledger.SettingDefaultCurrency: strings.ToUpper(strings.TrimSpace(*s.currency)),
		ledger.SettingInvoiceDueDays:  strings.TrimSpace(*s.dueDays),
		ledger.SettingWeekStart:       *s.weekStart,
		ledger.SettingTheme:           *s.theme,
	}
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		if err := s.ledger.SetSetting(k, values[k]); err != nil {
			return errStatus("Setting "+settingLabels[k], err)
		}
	}
	return status("Settings saved")
}

// exportBackup writes a full backup to the export directory.
func (s settingsModel) exportBackup() tea.Cmd {
	return func() tea.Msg {
		payload, err := export.BackupPayload(s.ledger.Backup())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Backup error: %v", err), isError: true}
		}
		path, err := savePayload(s.exportDir, payload)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Backup error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"))
	rows = append(rows, "")

	names := make([]string, 0, len(s.settings))
	for k := range s.settings {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		name, ok := settingLabels[k]
		if !ok {
			name = k
		}
		label := lipgloss.NewStyle().Width(24).Render(name)
		value := highlightStyle.Render(formatSettingValue(k, s.settings[k]))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  Exports and backups are written to "+s.exportDir))
	rows = append(rows, mutedStyle.Render("  enter: edit settings  e: export or back up"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case ledger.SettingInvoiceDueDays:
		if n, err := strconv.Atoi(v); err == nil {
			if n == 1 {
				return "1 day"
			}
			return fmt.Sprintf("%d days", n)
		}
	case ledger.SettingWeekStart:
		if v != "" {
			return strings.ToUpper(v[:1]) + v[1:]
		}
	}
	return v
}

func validDueDays(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 365 {
		return fmt.Errorf("enter a number of days from 0 to 365")
	}
	return nil
}
