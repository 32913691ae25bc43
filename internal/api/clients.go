package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/wire"
)

func mapAll[T, W any](in []T, f func(T) W) []W {
	out := make([]W, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func (h *Handler) ListClients(c *gin.Context) {
	c.JSON(http.StatusOK, mapAll(h.ledger.Clients(), wire.ClientToWire))
}

func (h *Handler) GetClient(c *gin.Context) {
	client, err := h.ledger.Client(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ClientToWire(client))
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req wire.ClientCreate
	if !h.bind(c, &req) {
		return
	}
	client, err := h.ledger.AddClient(req.Input())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.ClientToWire(client))
}

func (h *Handler) UpdateClient(c *gin.Context) {
	var req wire.ClientUpdate
	if !h.bind(c, &req) {
		return
	}
	client, err := h.ledger.UpdateClient(c.Param("id"), req.Patch())
	if !h.ok(c, err) {
		return
	}
	c.JSON(http.StatusOK, wire.ClientToWire(client))
}

func (h *Handler) DeleteClient(c *gin.Context) {
	if !h.ok(c, h.ledger.DeleteClient(c.Param("id"))) {
		return
	}
	c.JSON(http.StatusOK, wire.Success{Success: true, Message: "Client deleted successfully"})
}
