// Package model holds the entities shared by the ledger, the durable stores,
// the exporters and the transport layer.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind names a persisted collection.
type Kind string

const (
	KindClients     Kind = "clients"
	KindProjects    Kind = "projects"
	KindTimeEntries Kind = "time_entries"
	KindInvoices    Kind = "invoices"
	KindActiveTimer Kind = "active_timer"
)

// Kinds lists every collection in load order (referenced kinds first).
var Kinds = []Kind{KindClients, KindProjects, KindTimeEntries, KindInvoices, KindActiveTimer}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCancelled ProjectStatus = "cancelled"
)

var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectCompleted, ProjectOnHold, ProjectCancelled}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

var InvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue}

func (s InvoiceStatus) Valid() bool {
	for _, v := range InvoiceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Next returns the status that follows s in the usual invoice lifecycle.
func (s InvoiceStatus) Next() InvoiceStatus {
	for i, v := range InvoiceStatuses {
		if s == v {
			return InvoiceStatuses[(i+1)%len(InvoiceStatuses)]
		}
	}
	return InvoiceDraft
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ClientID    string          `json:"clientId"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
	Currency    string          `json:"currency"`
	StartDate   string          `json:"startDate,omitempty"`
	EndDate     string          `json:"endDate,omitempty"`
	Status      ProjectStatus   `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TimeEntry is a recorded span of work. Duration is in whole minutes.
type TimeEntry struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Duration    int        `json:"duration"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Manual      bool       `json:"isManual"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Hours returns the entry duration in fractional hours.
func (e TimeEntry) Hours() float64 {
	return float64(e.Duration) / 60
}

// ActiveTimer is the single in-progress work session.
type ActiveTimer struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Invoice struct {
	ID                string          `json:"id"`
	ClientID          string          `json:"clientId"`
	ProjectID         string          `json:"projectId"`
	Number            string          `json:"invoiceNumber"`
	IssueDate         string          `json:"issueDate"`
	DueDate           string          `json:"dueDate"`
	Status            InvoiceStatus   `json:"status"`
	TimeEntryIDs      []string        `json:"timeEntries"`
	TotalHours        float64         `json:"totalHours"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	// CustomAmount marks TotalAmount as caller-supplied rather than computed.
	CustomAmount      bool            `json:"customAmount,omitempty"`
	Currency          string          `json:"currency"`
	CustomDescription string          `json:"customDescription,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// References reports whether the invoice bills the given time entry.
func (inv Invoice) References(entryID string) bool {
	for _, id := range inv.TimeEntryIDs {
		if id == entryID {
			return true
		}
	}
	return false
}
