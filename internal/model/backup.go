package model

import "time"

// BackupVersion is the current data export format version.
const BackupVersion = 1

// Backup is a full snapshot of the four collections.
type Backup struct {
	Version     int               `json:"version"`
	ExportedAt  time.Time         `json:"exportDate"`
	Clients     []Client          `json:"clients"`
	Projects    []Project         `json:"projects"`
	TimeEntries []TimeEntry       `json:"timeEntries"`
	Invoices    []Invoice         `json:"invoices"`
	Settings    map[string]string `json:"settings,omitempty"`
}
