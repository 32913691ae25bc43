package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")

	api.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "billr API"})
	})
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	clients := api.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.POST("", h.CreateClient)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}

	projects := api.Group("/projects")
	{
		projects.GET("", h.ListProjects)
		projects.POST("", h.CreateProject)
		projects.GET("/:id", h.GetProject)
		projects.PUT("/:id", h.UpdateProject)
		projects.DELETE("/:id", h.DeleteProject)
		projects.GET("/:id/eligible-entries", h.EligibleEntries)
	}

	entries := api.Group("/time-entries")
	{
		entries.GET("", h.ListTimeEntries)
		entries.POST("", h.CreateTimeEntry)
		entries.GET("/:id", h.GetTimeEntry)
		entries.PUT("/:id", h.UpdateTimeEntry)
		entries.DELETE("/:id", h.DeleteTimeEntry)
	}

	timer := api.Group("/timer")
	{
		timer.GET("/active", h.ActiveTimer)
		timer.POST("/start", h.StartTimer)
		timer.POST("/stop", h.StopTimer)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("", h.ListInvoices)
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/next-number", h.NextInvoiceNumber)
		invoices.POST("/calculate", h.CalculateInvoice)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.GET("/:id/export", h.ExportInvoice)
	}

	api.GET("/reports", h.Report)
	api.GET("/dashboard", h.Dashboard)
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)
	api.GET("/backup", h.ExportBackup)
	api.POST("/backup", h.RestoreBackup)
}
