package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/wire"
)

// WarningHeader is set when a change was applied but could not be saved.
const WarningHeader = "X-Billr-Warning"

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes the error body for err and stops the handler chain.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := wire.Error{Detail: err.Error(), Field: snakeCase(ledger.FieldOf(err))}
	if status == http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "err", err)
		body = wire.Error{Detail: "internal server error"}
	}
	c.AbortWithStatusJSON(status, body)
}

// ok reports whether the handler should go on to write its result. A
// persistence warning is logged and surfaced in a header; any other error
// is written as the response.
func (h *Handler) ok(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	if ledger.IsWarning(err) {
		h.log.Warn(c.Request.Context(), "change not saved", "path", c.Request.URL.Path, "err", err)
		c.Header(WarningHeader, "change applied but not saved")
		return true
	}
	h.fail(c, err)
	return false
}

// bind decodes the JSON body into v, answering 422 on malformed input.
func (h *Handler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, wire.Error{Detail: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// snakeCase turns the ledger's camelCase field names into the wire names.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
