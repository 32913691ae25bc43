// Package api serves the ledger over HTTP with gin.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/logging"
)

// Options configures the router.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string
}

type Handler struct {
	ledger *ledger.Ledger
	log    logging.Logger
}

func NewHandler(l *ledger.Ledger, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{ledger: l, log: log}
}

// NewRouter builds the gin engine with logging, recovery and CORS
// middleware and every API route registered.
func NewRouter(l *ledger.Ledger, log logging.Logger, opts Options) *gin.Engine {
	h := NewHandler(l, log)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", WarningHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	RegisterRoutes(r, h)
	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
