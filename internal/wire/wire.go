// Package wire holds the snake_case JSON shapes used by the HTTP API and the
// remote timer client, plus pure conversions to and from the model types.
package wire

import (
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ClientID    string    `json:"client_id"`
	HourlyRate  float64   `json:"hourly_rate"`
	Currency    string    `json:"currency"`
	StartDate   *string   `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TimeEntry struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    int        `json:"duration"`
	Date        string     `json:"date"`
	IsManual    bool       `json:"is_manual"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Invoice struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"client_id"`
	ProjectID         string    `json:"project_id"`
	InvoiceNumber     string    `json:"invoice_number"`
	IssueDate         string    `json:"issue_date"`
	DueDate           string    `json:"due_date"`
	TotalHours        float64   `json:"total_hours"`
	TotalAmount       float64   `json:"total_amount"`
	IsCustomAmount    bool      `json:"is_custom_amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	TimeEntries       []string  `json:"time_entries"`
	CustomDescription *string   `json:"custom_description"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ActiveTimer struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	CreatedAt   time.Time `json:"created_at"`
}

func ClientToWire(c model.Client) Client {
	return Client{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     optional(c.Phone),
		Address:   optional(c.Address),
		IsActive:  c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ClientFromWire(w Client) model.Client {
	return model.Client{
		ID:        w.ID,
		Name:      w.Name,
		Email:     w.Email,
		Phone:     deref(w.Phone),
		Address:   deref(w.Address),
		Active:    w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func ProjectToWire(p model.Project) Project {
	return Project{
		ID:          p.ID,
		Name:        p.Name,
		Description: optional(p.Description),
		ClientID:    p.ClientID,
		HourlyRate:  p.HourlyRate.InexactFloat64(),
		Currency:    p.Currency,
		StartDate:   optional(p.StartDate),
		EndDate:     optional(p.EndDate),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ProjectFromWire(w Project) model.Project {
	return model.Project{
		ID:          w.ID,
		Name:        w.Name,
		Description: deref(w.Description),
		ClientID:    w.ClientID,
		HourlyRate:  decimal.NewFromFloat(w.HourlyRate),
		Currency:    w.Currency,
		StartDate:   deref(w.StartDate),
		EndDate:     deref(w.EndDate),
		Status:      model.ProjectStatus(w.Status),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func TimeEntryToWire(e model.TimeEntry) TimeEntry {
	return TimeEntry{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Description: e.Description,
		StartTime:   copyTime(e.StartTime),
		EndTime:     copyTime(e.EndTime),
		Duration:    e.Duration,
		Date:        e.Date,
		IsManual:    e.Manual,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func TimeEntryFromWire(w TimeEntry) model.TimeEntry {
	return model.TimeEntry{
		ID:          w.ID,
		ProjectID:   w.ProjectID,
		Description: w.Description,
		StartTime:   copyTime(w.StartTime),
		EndTime:     copyTime(w.EndTime),
		Duration:    w.Duration,
		Date:        w.Date,
		Manual:      w.IsManual,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func InvoiceToWire(inv model.Invoice) Invoice {
	entries := make([]string, len(inv.TimeEntryIDs))
	copy(entries, inv.TimeEntryIDs)
	return Invoice{
		ID:                inv.ID,
		ClientID:          inv.ClientID,
		ProjectID:         inv.ProjectID,
		InvoiceNumber:     inv.Number,
		IssueDate:         inv.IssueDate,
		DueDate:           inv.DueDate,
		TotalHours:        inv.TotalHours,
		TotalAmount:       inv.TotalAmount.InexactFloat64(),
		IsCustomAmount:    inv.CustomAmount,
		Currency:          inv.Currency,
		Status:            string(inv.Status),
		TimeEntries:       entries,
		CustomDescription: optional(inv.CustomDescription),
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

func InvoiceFromWire(w Invoice) model.Invoice {
	entries := make([]string, len(w.TimeEntries))
	copy(entries, w.TimeEntries)
	return model.Invoice{
		ID:                w.ID,
		ClientID:          w.ClientID,
		ProjectID:         w.ProjectID,
		Number:            w.InvoiceNumber,
		IssueDate:         w.IssueDate,
		DueDate:           w.DueDate,
		Status:            model.InvoiceStatus(w.Status),
		TimeEntryIDs:      entries,
		TotalHours:        w.TotalHours,
		TotalAmount:       decimal.NewFromFloat(w.TotalAmount),
		CustomAmount:      w.IsCustomAmount,
		Currency:          w.Currency,
		CustomDescription: deref(w.CustomDescription),
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
}

func ActiveTimerToWire(t model.ActiveTimer) ActiveTimer {
	return ActiveTimer{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Description: t.Description,
		StartTime:   t.StartTime,
		CreatedAt:   t.CreatedAt,
	}
}

func ActiveTimerFromWire(w ActiveTimer) model.ActiveTimer {
	return model.ActiveTimer{
		ID:          w.ID,
		ProjectID:   w.ProjectID,
		Description: w.Description,
		StartTime:   w.StartTime,
		CreatedAt:   w.CreatedAt,
	}
}

// optional maps the empty string to null. Null is the canonical wire form
// of an absent optional text, so "" and null decode to the same model value
// and both encode back as null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
