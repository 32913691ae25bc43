package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

// maxListedEntries caps the entries list; older ones stay reachable through
// reports and exports.
const maxListedEntries = 200

type entriesModel struct {
	ledger *ledger.Ledger
	width  int
	height int

	entries  []model.TimeEntry
	projects []model.Project
	names    map[string]string
	billed   map[string]string // entry id -> invoice number
	cursor   int
	filter   int // 0 = all projects, i = projects[i-1]

	formActive bool
	form       *huh.Form
	editingID  string

	// Form field pointers (survive value copies)
	formProject     *string
	formDescription *string
	formDate        *string
	formDuration    *string
	formStart       *string // HH:MM, optional
	formEnd         *string
}

func newEntriesModel(l *ledger.Ledger) entriesModel {
	project, desc, date, dur, start, end := "", "", "", "", "", ""
	return entriesModel{
		ledger:          l,
		formProject:     &project,
		formDescription: &desc,
		formDate:        &date,
		formDuration:    &dur,
		formStart:       &start,
		formEnd:         &end,
	}
}

func (e *entriesModel) setSize(w, h int) {
	e.width = w
	e.height = h
}

type entriesDataMsg struct {
	entries  []model.TimeEntry
	projects []model.Project
	billed   map[string]string
}

func (e entriesModel) refresh() tea.Cmd {
	projectID := e.filterProject()
	return func() tea.Msg {
		billed := make(map[string]string)
		for _, inv := range e.ledger.Invoices(ledger.InvoiceFilter{}) {
			for _, id := range inv.TimeEntryIDs {
				billed[id] = inv.Number
			}
		}
		entries := e.ledger.TimeEntries(ledger.EntryFilter{ProjectID: projectID})
		if len(entries) > maxListedEntries {
			entries = entries[:maxListedEntries]
		}
		return entriesDataMsg{
			entries:  entries,
			projects: e.ledger.Projects(),
			billed:   billed,
		}
	}
}

func (e entriesModel) filterProject() string {
	if e.filter == 0 || e.filter > len(e.projects) {
		return ""
	}
	return e.projects[e.filter-1].ID
}

func (e entriesModel) update(msg tea.Msg) (entriesModel, tea.Cmd) {
	if e.formActive && e.form != nil {
		return e.updateForm(msg)
	}

	switch msg := msg.(type) {
	case entriesDataMsg:
		e.entries = msg.entries
		e.projects = msg.projects
		e.billed = msg.billed
		e.names = make(map[string]string, len(msg.projects))
		for _, p := range msg.projects {
			e.names[p.ID] = p.Name
		}
		if e.filter > len(e.projects) {
			e.filter = 0
		}
		e.cursor = clampCursor(e.cursor, len(e.entries))
		return e, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if e.cursor > 0 {
				e.cursor--
			}
		case key.Matches(msg, keys.Down):
			if e.cursor < len(e.entries)-1 {
				e.cursor++
			}
		case key.Matches(msg, keys.Left):
			e.filter = (e.filter + len(e.projects)) % (len(e.projects) + 1)
			e.cursor = 0
			return e, e.refresh()
		case key.Matches(msg, keys.Right):
			e.filter = (e.filter + 1) % (len(e.projects) + 1)
			e.cursor = 0
			return e, e.refresh()
		case key.Matches(msg, keys.New):
			if len(e.projects) == 0 {
				return e, func() tea.Msg {
					return statusMsg{text: "Create a project first (press 3).", isError: true}
				}
			}
			return e.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(e.entries) > 0 {
				entry := e.entries[e.cursor]
				return e.showForm(&entry)
			}
		case key.Matches(msg, keys.Delete):
			if len(e.entries) > 0 {
				entry := e.entries[e.cursor]
				err := e.ledger.DeleteTimeEntry(entry.ID)
				return e, tea.Batch(e.refresh(), statusOr("Deleted entry", err))
			}
		}
	}
	return e, nil
}

func (e entriesModel) showForm(entry *model.TimeEntry) (entriesModel, tea.Cmd) {
	if entry == nil {
		e.editingID = ""
		*e.formProject = e.projects[0].ID
		if id := e.filterProject(); id != "" {
			*e.formProject = id
		}
		*e.formDescription = ""
		*e.formDate = model.DateOf(e.ledger.Now(), e.ledger.Location())
		*e.formDuration = ""
		*e.formStart, *e.formEnd = "", ""
	} else {
		e.editingID = entry.ID
		*e.formProject = entry.ProjectID
		*e.formDescription = entry.Description
		*e.formDate = entry.Date
		*e.formDuration = strconv.Itoa(entry.Duration)
		*e.formStart, *e.formEnd = "", ""
		if entry.StartTime != nil && entry.EndTime != nil {
			loc := e.ledger.Location()
			*e.formStart = entry.StartTime.In(loc).Format(clockLayout)
			*e.formEnd = entry.EndTime.In(loc).Format(clockLayout)
		}
	}

	options := make([]huh.Option[string], len(e.projects))
	for i, p := range e.projects {
		options[i] = huh.NewOption(p.Name, p.ID)
	}

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Project").Options(options...).Value(e.formProject),
			huh.NewInput().Title("Description").CharLimit(500).Value(e.formDescription).Validate(required("description")),
			huh.NewInput().Title("Date").Placeholder(model.DateLayout).Value(e.formDate).Validate(optionalDate),
			huh.NewInput().Title("Duration (minutes)").Placeholder("90").
				Description("Leave empty when giving start and end").Value(e.formDuration).Validate(optionalMinutes),
			huh.NewInput().Title("Start").Placeholder(clockLayout).Value(e.formStart).Validate(optionalClock),
			huh.NewInput().Title("End").Placeholder(clockLayout).Value(e.formEnd).Validate(optionalClock),
		),
	).WithShowHelp(true).WithShowErrors(true)

	e.formActive = true
	return e, e.form.Init()
}

func (e entriesModel) updateForm(msg tea.Msg) (entriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		e.formActive = false
		e.form = nil
		return e, nil
	}

	form, cmd := e.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		e.form = f
	}
	if e.form.State == huh.StateCompleted {
		e.formActive = false
		e.form = nil
		return e, tea.Batch(e.refresh(), e.save())
	}
	return e, cmd
}

func (e entriesModel) save() tea.Cmd {
	date := strings.TrimSpace(*e.formDate)
	start, end, err := e.clockTimes(date)
	if err != nil {
		return errStatus("Error", err)
	}
	minutes := 0
	if start == nil {
		minutes, err = strconv.Atoi(strings.TrimSpace(*e.formDuration))
		if err != nil {
			return errStatus("Error", fmt.Errorf("give a duration or both start and end"))
		}
	}

	if e.editingID == "" {
		entry, err := e.ledger.AddTimeEntry(ledger.EntryInput{
			ProjectID:   *e.formProject,
			Description: *e.formDescription,
			Date:        date,
			Duration:    minutes,
			StartTime:   start,
			EndTime:     end,
		})
		return statusOr("Logged "+formatMinutes(entry.Duration), err)
	}

	project, desc := *e.formProject, *e.formDescription
	patch := ledger.EntryPatch{
		ProjectID:   &project,
		Description: &desc,
		Date:        &date,
		StartTime:   start,
		EndTime:     end,
	}
	// Blank start and end fields leave a duration-only entry.
	if start == nil {
		patch.Duration = &minutes
		patch.ClearTimes = true
	}
	_, err = e.ledger.UpdateTimeEntry(e.editingID, patch)
	return statusOr("Updated entry", err)
}

// clockTimes resolves the start and end fields on date. Both nil means the
// entry is duration-only.
func (e entriesModel) clockTimes(date string) (*time.Time, *time.Time, error) {
	startText, endText := strings.TrimSpace(*e.formStart), strings.TrimSpace(*e.formEnd)
	if startText == "" && endText == "" {
		return nil, nil, nil
	}
	if startText == "" || endText == "" {
		return nil, nil, fmt.Errorf("give both start and end, or neither")
	}
	if date == "" {
		date = model.DateOf(e.ledger.Now(), e.ledger.Location())
	}
	day, err := time.ParseInLocation(model.DateLayout, date, e.ledger.Location())
	if err != nil {
		return nil, nil, fmt.Errorf("date: %w", err)
	}
	at := func(s string) (*time.Time, error) {
		c, err := time.Parse(clockLayout, s)
		if err != nil {
			return nil, fmt.Errorf("time %q: use %s", s, clockLayout)
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
		return &t, nil
	}
	start, err := at(startText)
	if err != nil {
		return nil, nil, err
	}
	end, err := at(endText)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (e entriesModel) view() string {
	w := e.width - 4
	if e.formActive && e.form != nil {
		title := "Log Time"
		if e.editingID != "" {
			title = "Edit Entry"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", e.form.View())
		return panelStyle.Width(w).Render(content)
	}

	scope := "all projects"
	if id := e.filterProject(); id != "" {
		scope = e.names[id]
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Time Entries"), "  ", mutedStyle.Render(scope))

	if len(e.entries) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			mutedStyle.Render("No entries. Press n to log time or start the timer on the dashboard."),
		)
		return panelStyle.Width(w).Render(content)
	}

	// Keep the cursor row on screen.
	visible := e.height - 10
	if visible < 5 {
		visible = 5
	}
	start := 0
	if e.cursor >= visible {
		start = e.cursor - visible + 1
	}
	end := start + visible
	if end > len(e.entries) {
		end = len(e.entries)
	}

	var rows []string
	rows = append(rows, header, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-10s %-18s %8s  %-36s %s", "Date", "Project", "Duration", "Description", "Invoice")))
	total := 0
	for _, entry := range e.entries {
		total += entry.Duration
	}
	for i := start; i < end; i++ {
		entry := e.entries[i]
		line := fmt.Sprintf("%-10s %-18s %8s  %-36s",
			entry.Date, truncate(e.names[entry.ProjectID], 18), formatMinutes(entry.Duration), truncate(entry.Description, 36))
		inv := ""
		if number, ok := e.billed[entry.ID]; ok {
			inv = highlightStyle.Render(number)
		}
		rows = append(rows, listRow(i == e.cursor, line)+" "+inv)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d entries  %s total", len(e.entries), formatMinutes(total))))
	rows = append(rows, mutedStyle.Render("  n: log time  enter: edit  d: delete  ←/→: project"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

const clockLayout = "15:04"

func optionalMinutes(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter whole minutes greater than zero")
	}
	return nil
}

func optionalClock(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(clockLayout, s); err != nil {
		return fmt.Errorf("use %s", clockLayout)
	}
	return nil
}
