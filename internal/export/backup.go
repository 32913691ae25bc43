package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sadopc/billr/internal/model"
)

var ErrInvalidBackup = errors.New("invalid backup")

// Backup renders a data export. The export time is taken from b so the
// output depends on its input only.
func Backup(b model.Backup) ([]byte, error) {
	if b.Version == 0 {
		b.Version = model.BackupVersion
	}
	// Empty collections are written as [] rather than null.
	if b.Clients == nil {
		b.Clients = []model.Client{}
	}
	if b.Projects == nil {
		b.Projects = []model.Project{}
	}
	if b.TimeEntries == nil {
		b.TimeEntries = []model.TimeEntry{}
	}
	if b.Invoices == nil {
		b.Invoices = []model.Invoice{}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseBackup decodes a data export. All four collections must be present;
// a missing version is read as version 1.
func ParseBackup(data []byte) (model.Backup, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return model.Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	for _, k := range []string{"clients", "projects", "timeEntries", "invoices"} {
		raw, ok := keys[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return model.Backup{}, fmt.Errorf("%w: missing %q", ErrInvalidBackup, k)
		}
	}

	var b model.Backup
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		return model.Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if b.Version == 0 {
		b.Version = model.BackupVersion
	}
	if b.Version > model.BackupVersion {
		return model.Backup{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	return b, nil
}
