package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

type reportRange int

const (
	rangeWeek reportRange = iota
	rangeMonth
	rangeYear
)

var rangeNames = []string{"Week", "Month", "Year"}

type reportsModel struct {
	ledger    *ledger.Ledger
	exportDir string
	width     int
	height    int

	mode   reportRange
	offset int // periods back from the current one (0 = current)
	report ledger.Report
	err    error

	chart barchart.Model
}

func newReportsModel(l *ledger.Ledger, exportDir string) reportsModel {
	return reportsModel{
		ledger:    l,
		exportDir: exportDir,
		chart:     barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

type reportsDataMsg struct {
	report ledger.Report
	err    error
}

func (r reportsModel) refresh() tea.Cmd {
	q := r.query()
	return func() tea.Msg {
		rep, err := r.ledger.Report(q)
		return reportsDataMsg{report: rep, err: err}
	}
}

// query returns the closed date range of the selected period.
func (r reportsModel) query() ledger.ReportQuery {
	from, to := r.dateRange()
	label := fmt.Sprintf("%s %s", strings.ToLower(rangeNames[r.mode]), from.Format(model.DateLayout))
	switch r.mode {
	case rangeMonth:
		label = from.Format("2006-01")
	case rangeYear:
		label = from.Format("2006")
	}
	return ledger.ReportQuery{
		From:  from.Format(model.DateLayout),
		To:    to.Format(model.DateLayout),
		Label: label,
	}
}

func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := r.ledger.Now().In(r.ledger.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch r.mode {
	case rangeMonth:
		start := time.Date(today.Year(), today.Month()-time.Month(r.offset), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	case rangeYear:
		start := time.Date(today.Year()-r.offset, 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, -1)
	default:
		startDay := time.Monday
		if r.ledger.Setting(ledger.SettingWeekStart, "monday") == "sunday" {
			startDay = time.Sunday
		}
		start := model.WeekStart(today, startDay).AddDate(0, 0, -7*r.offset)
		return start, start.AddDate(0, 0, 6)
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.report = msg.report
		r.err = msg.err
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Mode):
			r.mode = (r.mode + 1) % reportRange(len(rangeNames))
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

// exportReport writes the selected period in format f.
func (r reportsModel) exportReport(f export.Format) tea.Cmd {
	q := r.query()
	return func() tea.Msg {
		rep, err := r.ledger.Report(q)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		payload, err := export.ReportPayload(rep, f)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path, err := savePayload(r.exportDir, payload)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

// projectColors assigns legend colors in the report's project order.
func (r reportsModel) projectColors() map[string]lipgloss.Color {
	colors := make(map[string]lipgloss.Color, len(r.report.ByProject))
	for i, g := range r.report.ByProject {
		colors[g.ID] = seriesColor(i)
	}
	return colors
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 40 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)
	if r.ledger == nil {
		return
	}

	colors := r.projectColors()
	names := make(map[string]string, len(r.report.ByProject))
	for _, g := range r.report.ByProject {
		names[g.ID] = g.Name
	}
	byDay := make(map[string]ledger.DayTotal, len(r.report.ByDay))
	for _, d := range r.report.ByDay {
		byDay[d.Date] = d
	}

	stack := func(minutes map[string]int) []barchart.BarValue {
		var values []barchart.BarValue
		for _, g := range r.report.ByProject {
			if m := minutes[g.ID]; m > 0 {
				values = append(values, barchart.BarValue{
					Name:  names[g.ID],
					Value: float64(m) / 60,
					Style: lipgloss.NewStyle().Foreground(colors[g.ID]),
				})
			}
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		return values
	}

	from, to := r.dateRange()
	var bars []barchart.BarData
	if r.mode == rangeYear {
		for m := from; !m.After(to); m = m.AddDate(0, 1, 0) {
			month := make(map[string]int)
			prefix := m.Format("2006-01")
			for date, d := range byDay {
				if strings.HasPrefix(date, prefix) {
					for id, mins := range d.ByProject {
						month[id] += mins
					}
				}
			}
			bars = append(bars, barchart.BarData{Label: m.Format("Jan"), Values: stack(month)})
		}
	} else {
		labelLayout := "Mon 02"
		if r.mode == rangeMonth {
			labelLayout = "02"
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			day := byDay[d.Format(model.DateLayout)]
			bars = append(bars, barchart.BarData{Label: d.Format(labelLayout), Values: stack(day.ByProject)})
		}
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, name := range rangeNames {
		if reportRange(i) == r.mode {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel,
	)
	nav := mutedStyle.Render("  ←/→: previous/next  m: week/month/year  e: export")

	if r.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, header, "", errorStyle.Render(r.err.Error()), "", nav),
		)
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "",
			r.renderTotals(), "",
			r.chart.View(), "",
			r.renderLegend(), "",
			r.renderGroups(w), "",
			nav,
		),
	)
}

func (r reportsModel) renderTotals() string {
	t := r.report.Totals
	currency := r.currency()
	return fmt.Sprintf("  %s  %s  %s  %s",
		highlightStyle.Render(formatMinutes(t.Minutes)),
		highlightStyle.Render(formatMoney(t.Revenue, currency)),
		mutedStyle.Render(fmt.Sprintf("%d entries", t.Entries)),
		mutedStyle.Render(fmt.Sprintf("%.1fh/day over %d days", t.AvgHoursPerDay, t.Days)),
	)
}

// currency is the report's currency when every row agrees, else empty.
func (r reportsModel) currency() string {
	cur := ""
	for _, row := range r.report.Rows {
		if cur == "" {
			cur = row.Currency
		} else if row.Currency != cur {
			return ""
		}
	}
	return cur
}

func (r reportsModel) renderGroups(w int) string {
	if len(r.report.Rows) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	colors := r.projectColors()
	currency := r.currency()
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %10s %16s %8s", "Project", "Hours", "Revenue", "Entries")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 61))))
	for _, g := range r.report.ByProject {
		dot := lipgloss.NewStyle().Foreground(colors[g.ID]).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-22s %10.2f %16s %8d",
			dot, truncate(g.Name, 22), g.Hours(), formatMoney(g.Revenue, currency), g.Entries))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %10s %16s %8s", "Client", "Hours", "Revenue", "Projects")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 61))))
	for _, g := range r.report.ByClient {
		rows = append(rows, fmt.Sprintf("  %-24s %10.2f %16s %8d",
			truncate(g.Name, 24), g.Hours(), formatMoney(g.Revenue, currency), g.Projects))
	}

	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	colors := r.projectColors()
	var items []string
	for _, g := range r.report.ByProject {
		dot := lipgloss.NewStyle().Foreground(colors[g.ID]).Render("●")
		items = append(items, fmt.Sprintf("%s %s", dot, g.Name))
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}
