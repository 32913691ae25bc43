package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/wire"
)

// ListTimeEntries returns entries most recent first, filtered by
// project_id, client_id, from and to.
func (h *Handler) ListTimeEntries(c *gin.Context) {
	entries := h.ledger.TimeEntries(ledger.EntryFilter{
		ProjectID: c.Query("project_id"),
		ClientID:  c.Query("client_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	})
	c.JSON(http.StatusOK, mapAll(entries, wire.TimeEntryToWire))
}

func (h *Handler) GetTimeEntry(c *gin.Context) {
	e, err := h.ledger.TimeEntry(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.TimeEntryToWire(e))
}

func (h *Handler) CreateTimeEntry(c *gin.Context) {
	var req wire.TimeEntryCreate
	if !h.bind(c, &req) {
		return
	}
	e, err := h.ledger.AddTimeEntry(req.Input())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.TimeEntryToWire(e))
}

func (h *Handler) UpdateTimeEntry(c *gin.Context) {
	var req wire.TimeEntryUpdate
	if !h.bind(c, &req) {
		return
	}
	e, err := h.ledger.UpdateTimeEntry(c.Param("id"), req.Patch())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.TimeEntryToWire(e))
}

func (h *Handler) DeleteTimeEntry(c *gin.Context) {
	if !h.ok(c, h.ledger.DeleteTimeEntry(c.Param("id"))) {
		return
	}
	c.JSON(http.StatusOK, wire.Success{Success: true, Message: "Time entry deleted successfully"})
}
