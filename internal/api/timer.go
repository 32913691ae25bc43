package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/wire"
)

// ActiveTimer answers with the running timer or JSON null.
func (h *Handler) ActiveTimer(c *gin.Context) {
	t, running := h.ledger.ActiveTimer()
	if !running {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, wire.ActiveTimerToWire(t))
}

func (h *Handler) StartTimer(c *gin.Context) {
	var req wire.TimerStart
	if !h.bind(c, &req) {
		return
	}
	t, err := h.ledger.StartTimer(req.ProjectID, req.Description)
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.ActiveTimerToWire(t))
}

func (h *Handler) StopTimer(c *gin.Context) {
	e, err := h.ledger.StopTimer()
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.TimerStopResponse{
		Success:   true,
		Message:   fmt.Sprintf("Timer stopped. Logged %d minutes.", e.Duration),
		TimeEntry: wire.TimeEntryToWire(e),
	})
}
