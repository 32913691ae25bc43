package export

import (
	"encoding/json"
	"fmt"

	"github.com/sadopc/billr/internal/ledger"
)

type jsonReport struct {
	Period    string      `json:"period"`
	From      string      `json:"from,omitempty"`
	To        string      `json:"to,omitempty"`
	Count     int         `json:"count"`
	Totals    jsonTotals  `json:"totals"`
	ByProject []jsonGroup `json:"by_project"`
	ByClient  []jsonGroup `json:"by_client"`
	Entries   []jsonEntry `json:"entries"`
}

type jsonTotals struct {
	Minutes        int     `json:"minutes"`
	Hours          float64 `json:"hours"`
	Revenue        string  `json:"revenue"`
	Days           int     `json:"days"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
}

type jsonGroup struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
	Revenue string  `json:"revenue"`
	Entries int     `json:"entries"`
}

type jsonEntry struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Project     string `json:"project"`
	ProjectID   string `json:"project_id"`
	Client      string `json:"client"`
	Description string `json:"description"`
	Minutes     int    `json:"duration_minutes"`
	Duration    string `json:"duration"`
	HourlyRate  string `json:"hourly_rate"`
	Currency    string `json:"currency"`
	Revenue     string `json:"revenue"`
}

// ReportJSON renders the report as indented JSON. Amounts are strings with
// two decimals so no float rounding leaks into the file.
func ReportJSON(r ledger.Report) ([]byte, error) {
	out := jsonReport{
		Period:    r.Label,
		From:      r.From,
		To:        r.To,
		Count:     len(r.Rows),
		ByProject: jsonGroups(r.ByProject),
		ByClient:  jsonGroups(r.ByClient),
		Entries:   make([]jsonEntry, 0, len(r.Rows)),
		Totals: jsonTotals{
			Minutes:        r.Totals.Minutes,
			Hours:          round2(r.Totals.Hours),
			Revenue:        r.Totals.Revenue.StringFixed(2),
			Days:           r.Totals.Days,
			AvgHoursPerDay: round2(r.Totals.AvgHoursPerDay),
		},
	}
	for _, row := range r.Rows {
		e := row.Entry
		out.Entries = append(out.Entries, jsonEntry{
			ID:          e.ID,
			Date:        e.Date,
			Project:     row.ProjectName,
			ProjectID:   e.ProjectID,
			Client:      row.ClientName,
			Description: e.Description,
			Minutes:     e.Duration,
			Duration:    formatDuration(e.Duration),
			HourlyRate:  row.HourlyRate.StringFixed(2),
			Currency:    row.Currency,
			Revenue:     row.Revenue.StringFixed(2),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return append(data, '\n'), nil
}

func jsonGroups(groups []ledger.GroupTotal) []jsonGroup {
	out := make([]jsonGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, jsonGroup{
			ID:      g.ID,
			Name:    g.Name,
			Minutes: g.Minutes,
			Hours:   round2(g.Hours()),
			Revenue: g.Revenue.StringFixed(2),
			Entries: g.Entries,
		})
	}
	return out
}

// formatDuration renders minutes as "1h 05m" or "45m".
func formatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
