package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/wire"
)

// ListProjects optionally narrows to one client with ?client_id=.
func (h *Handler) ListProjects(c *gin.Context) {
	projects := h.ledger.Projects()
	if id := c.Query("client_id"); id != "" {
		projects = h.ledger.ClientProjects(id)
	}
	c.JSON(http.StatusOK, mapAll(projects, wire.ProjectToWire))
}

func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.ledger.Project(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ProjectToWire(p))
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req wire.ProjectCreate
	if !h.bind(c, &req) {
		return
	}
	p, err := h.ledger.AddProject(req.Input())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.ProjectToWire(p))
}

func (h *Handler) UpdateProject(c *gin.Context) {
	var req wire.ProjectUpdate
	if !h.bind(c, &req) {
		return
	}
	p, err := h.ledger.UpdateProject(c.Param("id"), req.Patch())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.ProjectToWire(p))
}

func (h *Handler) DeleteProject(c *gin.Context) {
	if !h.ok(c, h.ledger.DeleteProject(c.Param("id"))) {
		return
	}
	c.JSON(http.StatusOK, wire.Success{Success: true, Message: "Project deleted successfully"})
}

// EligibleEntries lists the project's entries not billed by any invoice
// other than ?invoice_id=.
func (h *Handler) EligibleEntries(c *gin.Context) {
	entries, err := h.ledger.EligibleEntriesFor(c.Param("id"), c.Query("invoice_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapAll(entries, wire.TimeEntryToWire))
}
