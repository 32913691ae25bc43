package wire

import (
	"time"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

// Request bodies. Update shapes use pointers so absent keys leave fields
// unchanged.

type ClientCreate struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

func (r ClientCreate) Input() ledger.ClientInput {
	return ledger.ClientInput{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   deref(r.Phone),
		Address: deref(r.Address),
		Active:  r.IsActive,
	}
}

type ClientUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

func (r ClientUpdate) Patch() ledger.ClientPatch {
	return ledger.ClientPatch{Name: r.Name, Email: r.Email, Phone: r.Phone, Address: r.Address, Active: r.IsActive}
}

type ProjectCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ClientID    string  `json:"client_id"`
	HourlyRate  float64 `json:"hourly_rate"`
	Currency    string  `json:"currency"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Status      string  `json:"status"`
}

func (r ProjectCreate) Input() ledger.ProjectInput {
	return ledger.ProjectInput{
		Name:        r.Name,
		Description: deref(r.Description),
		ClientID:    r.ClientID,
		HourlyRate:  decimal.NewFromFloat(r.HourlyRate),
		Currency:    r.Currency,
		StartDate:   deref(r.StartDate),
		EndDate:     deref(r.EndDate),
		Status:      model.ProjectStatus(r.Status),
	}
}

type ProjectUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	ClientID    *string  `json:"client_id"`
	HourlyRate  *float64 `json:"hourly_rate"`
	Currency    *string  `json:"currency"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Status      *string  `json:"status"`
}

func (r ProjectUpdate) Patch() ledger.ProjectPatch {
	p := ledger.ProjectPatch{
		Name:        r.Name,
		Description: r.Description,
		ClientID:    r.ClientID,
		Currency:    r.Currency,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
	if r.HourlyRate != nil {
		rate := decimal.NewFromFloat(*r.HourlyRate)
		p.HourlyRate = &rate
	}
	if r.Status != nil {
		s := model.ProjectStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type TimeEntryCreate struct {
	ProjectID   string     `json:"project_id"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    int        `json:"duration"`
	Date        string     `json:"date"`
}

func (r TimeEntryCreate) Input() ledger.EntryInput {
	return ledger.EntryInput{
		ProjectID:   r.ProjectID,
		Description: r.Description,
		Date:        r.Date,
		Duration:    r.Duration,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

type TimeEntryUpdate struct {
	ProjectID   *string    `json:"project_id"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    *int       `json:"duration"`
	Date        *string    `json:"date"`
}

func (r TimeEntryUpdate) Patch() ledger.EntryPatch {
	return ledger.EntryPatch{
		ProjectID:   r.ProjectID,
		Description: r.Description,
		Date:        r.Date,
		Duration:    r.Duration,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

// InvoiceCreate carries no totals: they are computed from the selected
// entries, or taken from custom_amount when set.
type InvoiceCreate struct {
	ClientID          string   `json:"client_id"`
	ProjectID         string   `json:"project_id"`
	InvoiceNumber     string   `json:"invoice_number"`
	IssueDate         string   `json:"issue_date"`
	DueDate           string   `json:"due_date"`
	Status            string   `json:"status"`
	TimeEntries       []string `json:"time_entries"`
	CustomAmount      *float64 `json:"custom_amount"`
	CustomDescription *string  `json:"custom_description"`
}

func (r InvoiceCreate) Input() ledger.InvoiceInput {
	return ledger.InvoiceInput{
		ClientID:          r.ClientID,
		ProjectID:         r.ProjectID,
		Number:            r.InvoiceNumber,
		IssueDate:         r.IssueDate,
		DueDate:           r.DueDate,
		Status:            model.InvoiceStatus(r.Status),
		EntryIDs:          r.TimeEntries,
		CustomAmount:      amount(r.CustomAmount),
		CustomDescription: deref(r.CustomDescription),
	}
}

type InvoiceUpdate struct {
	InvoiceNumber     *string   `json:"invoice_number"`
	IssueDate         *string   `json:"issue_date"`
	DueDate           *string   `json:"due_date"`
	Status            *string   `json:"status"`
	TimeEntries       *[]string `json:"time_entries"`
	CustomAmount      *float64  `json:"custom_amount"`
	ClearCustomAmount bool      `json:"clear_custom_amount"`
	CustomDescription *string   `json:"custom_description"`
}

func (r InvoiceUpdate) Patch() ledger.InvoicePatch {
	p := ledger.InvoicePatch{
		Number:            r.InvoiceNumber,
		IssueDate:         r.IssueDate,
		DueDate:           r.DueDate,
		EntryIDs:          r.TimeEntries,
		CustomAmount:      amount(r.CustomAmount),
		ClearCustomAmount: r.ClearCustomAmount,
		CustomDescription: r.CustomDescription,
	}
	if r.Status != nil {
		s := model.InvoiceStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type TimerStart struct {
	ProjectID   string `json:"project_id"`
	Description string `json:"description"`
}

type TimerStopResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	TimeEntry TimeEntry `json:"time_entry"`
}

type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Error is the body of every non-2xx API response.
type Error struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

type NextNumber struct {
	InvoiceNumber string `json:"invoice_number"`
}

// InvoiceTotals previews what an invoice over the given entries would bill.
type InvoiceTotals struct {
	TotalMinutes int     `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	TotalAmount  float64 `json:"total_amount"`
	Currency     string  `json:"currency"`
	Entries      int     `json:"entries"`
	Overridden   bool    `json:"overridden"`
}

func InvoiceTotalsToWire(t ledger.InvoiceTotals) InvoiceTotals {
	return InvoiceTotals{
		TotalMinutes: t.Minutes,
		TotalHours:   t.Hours,
		TotalAmount:  t.Amount.InexactFloat64(),
		Currency:     t.Currency,
		Entries:      len(t.Entries),
		Overridden:   t.Overridden,
	}
}

func amount(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// InvoiceCalculate asks for the totals of a prospective invoice.
type InvoiceCalculate struct {
	ProjectID    string   `json:"project_id"`
	TimeEntries  []string `json:"time_entries"`
	CustomAmount *float64 `json:"custom_amount"`
}

func (r InvoiceCalculate) Override() *decimal.Decimal {
	return amount(r.CustomAmount)
}
