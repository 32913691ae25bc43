package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

// ReportQuery selects entries whose date falls in the closed interval
// [From, To]. Empty bounds are open.
type ReportQuery struct {
	From      string
	To        string
	ClientID  string
	ProjectID string
	// Label names the range in exports; derived from the bounds when empty.
	Label string
}

// ReportRow is one entry priced at its project's current rate.
type ReportRow struct {
	Entry       model.TimeEntry
	ProjectName string
	ClientID    string
	ClientName  string
	HourlyRate  decimal.Decimal
	Currency    string
	Revenue     decimal.Decimal
}

type GroupTotal struct {
	ID       string
	Name     string
	Minutes  int
	Revenue  decimal.Decimal
	Entries  int
	Projects int
}

func (g GroupTotal) Hours() float64 { return float64(g.Minutes) / 60 }

type DayTotal struct {
	Date    string
	Minutes int
	// ByProject maps project id to minutes.
	ByProject map[string]int
}

type ReportTotals struct {
	Minutes        int
	Hours          float64
	Revenue        decimal.Decimal
	Entries        int
	Days           int
	AvgHoursPerDay float64
}

type Report struct {
	From      string
	To        string
	Label     string
	Rows      []ReportRow
	Totals    ReportTotals
	ByProject []GroupTotal
	ByClient  []GroupTotal
	ByDay     []DayTotal
}

// Report aggregates entries in range. Revenue is recomputed from each
// project's current hourly rate on every call.
func (l *Ledger) Report(q ReportQuery) (Report, error) {
	if q.From != "" {
		if err := validDate("report", "from", q.From); err != nil {
			return Report{}, err
		}
	}
	if q.To != "" {
		if err := validDate("report", "to", q.To); err != nil {
			return Report{}, err
		}
	}
	if q.From != "" && q.To != "" && q.To < q.From {
		return Report{}, validationErr("report", "to", "must not precede from")
	}

	l.mu.RLock()
	entries := l.entriesLocked(EntryFilter{ProjectID: q.ProjectID, ClientID: q.ClientID, From: q.From, To: q.To})
	rows := make([]ReportRow, 0, len(entries))
	for _, e := range entries {
		p, _ := l.projects.get(e.ProjectID)
		c, _ := l.clients.get(p.ClientID)
		rows = append(rows, ReportRow{
			Entry:       e,
			ProjectName: nameOr(p.Name, "Unknown project"),
			ClientID:    p.ClientID,
			ClientName:  nameOr(c.Name, "Unknown client"),
			HourlyRate:  p.HourlyRate,
			Currency:    p.Currency,
			Revenue:     Revenue(e.Duration, p.HourlyRate),
		})
	}
	l.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Entry, rows[j].Entry
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	r := Report{From: q.From, To: q.To, Label: q.Label, Rows: rows}
	if r.Label == "" {
		r.Label = rangeLabel(q.From, q.To)
	}
	r.Totals, r.ByProject, r.ByClient, r.ByDay = aggregate(rows)
	r.Totals.Days = reportDays(q.From, q.To, rows)
	if r.Totals.Days > 0 {
		r.Totals.AvgHoursPerDay = r.Totals.Hours / float64(r.Totals.Days)
	}
	return r, nil
}

func aggregate(rows []ReportRow) (ReportTotals, []GroupTotal, []GroupTotal, []DayTotal) {
	totals := ReportTotals{Revenue: decimal.Zero}
	projects := map[string]*GroupTotal{}
	clients := map[string]*GroupTotal{}
	clientProjects := map[string]map[string]bool{}
	days := map[string]*DayTotal{}

	for _, row := range rows {
		e := row.Entry
		totals.Minutes += e.Duration
		totals.Revenue = totals.Revenue.Add(row.Revenue)
		totals.Entries++

		pg := projects[e.ProjectID]
		if pg == nil {
			pg = &GroupTotal{ID: e.ProjectID, Name: row.ProjectName, Revenue: decimal.Zero}
			projects[e.ProjectID] = pg
		}
		pg.Minutes += e.Duration
		pg.Revenue = pg.Revenue.Add(row.Revenue)
		pg.Entries++

		cg := clients[row.ClientID]
		if cg == nil {
			cg = &GroupTotal{ID: row.ClientID, Name: row.ClientName, Revenue: decimal.Zero}
			clients[row.ClientID] = cg
			clientProjects[row.ClientID] = map[string]bool{}
		}
		cg.Minutes += e.Duration
		cg.Revenue = cg.Revenue.Add(row.Revenue)
		cg.Entries++
		clientProjects[row.ClientID][e.ProjectID] = true

		d := days[e.Date]
		if d == nil {
			d = &DayTotal{Date: e.Date, ByProject: map[string]int{}}
			days[e.Date] = d
		}
		d.Minutes += e.Duration
		d.ByProject[e.ProjectID] += e.Duration
	}
	totals.Hours = float64(totals.Minutes) / 60

	for id, g := range clients {
		g.Projects = len(clientProjects[id])
	}
	byDay := make([]DayTotal, 0, len(days))
	for _, d := range days {
		byDay = append(byDay, *d)
	}
	sort.Slice(byDay, func(i, j int) bool { return byDay[i].Date < byDay[j].Date })
	return totals, sortedGroups(projects), sortedGroups(clients), byDay
}

// sortedGroups orders by minutes descending, then name, then id.
func sortedGroups(m map[string]*GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func reportDays(from, to string, rows []ReportRow) int {
	if from == "" && len(rows) > 0 {
		from = rows[0].Entry.Date
	}
	if to == "" && len(rows) > 0 {
		to = rows[len(rows)-1].Entry.Date
	}
	if from == "" || to == "" {
		return 0
	}
	n, err := model.DaysBetween(from, to)
	if err != nil {
		return 0
	}
	return n
}

func rangeLabel(from, to string) string {
	switch {
	case from == "" && to == "":
		return "All time"
	case from == to:
		return from
	case from == "":
		return "Until " + to
	case to == "":
		return "Since " + from
	}
	return from + " to " + to
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

// DashboardStats summarizes the ledger for the overview screen.
type DashboardStats struct {
	ActiveClients    int
	ActiveProjects   int
	TodayMinutes     int
	WeekMinutes      int
	TotalRevenue     decimal.Decimal
	TotalInvoiced    decimal.Decimal
	Outstanding      decimal.Decimal
	OutstandingCount int
	Recent           []model.TimeEntry
	// Timer and EntryCount are read in the same critical section.
	Timer      *model.ActiveTimer
	EntryCount int
}

// Dashboard computes the overview counters as of the ledger clock. The week
// starts on the day named by the week_start setting.
func (l *Ledger) Dashboard() DashboardStats {
	startDay := time.Monday
	if strings.EqualFold(l.Setting(SettingWeekStart, ""), "sunday") {
		startDay = time.Sunday
	}
	now := l.now().In(l.loc)
	today := model.DateOf(now, l.loc)
	weekStart := model.WeekStart(now, startDay).Format(model.DateLayout)

	l.mu.RLock()
	defer l.mu.RUnlock()

	s := DashboardStats{TotalRevenue: decimal.Zero, TotalInvoiced: decimal.Zero, Outstanding: decimal.Zero}
	for _, c := range l.clients.rows {
		if c.Active {
			s.ActiveClients++
		}
	}
	for _, p := range l.projects.rows {
		if p.Status == model.ProjectActive {
			s.ActiveProjects++
		}
	}
	for _, e := range l.entries.rows {
		if e.Date == today {
			s.TodayMinutes += e.Duration
		}
		if e.Date >= weekStart && e.Date <= today {
			s.WeekMinutes += e.Duration
		}
		if p, ok := l.projects.get(e.ProjectID); ok {
			s.TotalRevenue = s.TotalRevenue.Add(Revenue(e.Duration, p.HourlyRate))
		}
	}
	for _, inv := range l.invoices.rows {
		s.TotalInvoiced = s.TotalInvoiced.Add(inv.TotalAmount)
		if inv.Status != model.InvoicePaid {
			s.Outstanding = s.Outstanding.Add(inv.TotalAmount)
			s.OutstandingCount++
		}
	}
	if l.timer != nil {
		t := *l.timer
		s.Timer = &t
	}
	s.EntryCount = l.entries.len()
	s.Recent = l.entriesLocked(EntryFilter{})
	if len(s.Recent) > 5 {
		s.Recent = s.Recent[:5]
	}
	return s
}
