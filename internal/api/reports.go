package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/wire"
)

// Report aggregates entries in [from, to]. format=json (default) answers
// inline; csv and txt are sent as downloads.
func (h *Handler) Report(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, wire.Error{Detail: err.Error(), Field: "format"})
		return
	}
	r, err := h.ledger.Report(ledger.ReportQuery{
		From:      c.Query("from"),
		To:        c.Query("to"),
		ClientID:  c.Query("client_id"),
		ProjectID: c.Query("project_id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := export.ReportPayload(r, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	sendPayload(c, p, format != export.FormatJSON)
}

type dashboard struct {
	ActiveClients    int               `json:"active_clients"`
	ActiveProjects   int               `json:"active_projects"`
	TodayMinutes     int               `json:"today_minutes"`
	WeekMinutes      int               `json:"week_minutes"`
	TotalRevenue     float64           `json:"total_revenue"`
	TotalInvoiced    float64           `json:"total_invoiced"`
	Outstanding      float64           `json:"outstanding"`
	OutstandingCount int               `json:"outstanding_count"`
	RecentEntries    []wire.TimeEntry  `json:"recent_entries"`
	ActiveTimer      *wire.ActiveTimer `json:"active_timer"`
}

func (h *Handler) Dashboard(c *gin.Context) {
	s := h.ledger.Dashboard()
	out := dashboard{
		ActiveClients:    s.ActiveClients,
		ActiveProjects:   s.ActiveProjects,
		TodayMinutes:     s.TodayMinutes,
		WeekMinutes:      s.WeekMinutes,
		TotalRevenue:     s.TotalRevenue.InexactFloat64(),
		TotalInvoiced:    s.TotalInvoiced.InexactFloat64(),
		Outstanding:      s.Outstanding.InexactFloat64(),
		OutstandingCount: s.OutstandingCount,
		RecentEntries:    mapAll(s.Recent, wire.TimeEntryToWire),
	}
	if s.Timer != nil {
		t := wire.ActiveTimerToWire(*s.Timer)
		out.ActiveTimer = &t
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Settings())
}

// UpdateSettings applies every key in the body; the first invalid value
// stops the update.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if !h.bind(c, &req) {
		return
	}
	for _, key := range sortedKeys(req) {
		if !h.ok(c, h.ledger.SetSetting(key, req[key])) {
			return
		}
	}
	c.JSON(http.StatusOK, h.ledger.Settings())
}

func (h *Handler) ExportBackup(c *gin.Context) {
	p, err := export.BackupPayload(h.ledger.Backup())
	if err != nil {
		h.fail(c, err)
		return
	}
	sendPayload(c, p, true)
}

// RestoreBackup replaces all data with the posted export.
func (h *Handler) RestoreBackup(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, wire.Error{Detail: err.Error()})
		return
	}
	b, err := export.ParseBackup(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, wire.Error{Detail: err.Error()})
		return
	}
	if !h.ok(c, h.ledger.Restore(b)) {
		return
	}
	c.JSON(http.StatusOK, wire.Success{Success: true, Message: "Backup restored"})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
