package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/sadopc/billr/internal/wire"
)

func (h *Handler) ListInvoices(c *gin.Context) {
	invoices := h.ledger.Invoices(ledger.InvoiceFilter{
		ClientID:  c.Query("client_id"),
		ProjectID: c.Query("project_id"),
		Status:    model.InvoiceStatus(c.Query("status")),
	})
	c.JSON(http.StatusOK, mapAll(invoices, wire.InvoiceToWire))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	inv, err := h.ledger.Invoice(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.InvoiceToWire(inv))
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req wire.InvoiceCreate
	if !h.bind(c, &req) {
		return
	}
	inv, err := h.ledger.CreateInvoice(req.Input())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.InvoiceToWire(inv))
}

func (h *Handler) UpdateInvoice(c *gin.Context) {
	var req wire.InvoiceUpdate
	if !h.bind(c, &req) {
		return
	}
	inv, err := h.ledger.UpdateInvoice(c.Param("id"), req.Patch())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.InvoiceToWire(inv))
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	if !h.ok(c, h.ledger.DeleteInvoice(c.Param("id"))) {
		return
	}
	c.JSON(http.StatusOK, wire.Success{Success: true, Message: "Invoice deleted successfully"})
}

// NextInvoiceNumber suggests the next number for ?year=, defaulting to the
// current year.
func (h *Handler) NextInvoiceNumber(c *gin.Context) {
	year := h.ledger.Now().In(h.ledger.Location()).Year()
	if s := c.Query("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 || y > 9999 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, wire.Error{Detail: "year must be a number", Field: "year"})
			return
		}
		year = y
	}
	c.JSON(http.StatusOK, wire.NextNumber{InvoiceNumber: h.ledger.NextInvoiceNumber(year)})
}

func (h *Handler) CalculateInvoice(c *gin.Context) {
	var req wire.InvoiceCalculate
	if !h.bind(c, &req) {
		return
	}
	totals, err := h.ledger.CalculateInvoice(req.ProjectID, req.TimeEntries, req.Override())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.InvoiceTotalsToWire(totals))
}

// ExportInvoice downloads the plain-text rendering of an invoice.
func (h *Handler) ExportInvoice(c *gin.Context) {
	inv, err := h.ledger.Invoice(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	client, err := h.ledger.Client(inv.ClientID)
	if err != nil {
		h.fail(c, err)
		return
	}
	project, err := h.ledger.Project(inv.ProjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.ledger.InvoiceEntries(inv.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("format") != "pdf" {
		sendPayload(c, export.InvoicePayload(inv, client, project, entries), true)
		return
	}
	p, err := export.InvoicePDFPayload(inv, client, project, entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	sendPayload(c, p, true)
}

func sendPayload(c *gin.Context, p export.Payload, attachment bool) {
	if attachment {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Filename))
	}
	c.Data(http.StatusOK, p.ContentType, p.Body)
}
