package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv, txt (or text) and json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	case "json", "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Payload is a rendered file ready to be written or served.
type Payload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportPayload renders r in the given format. The filename is derived from
// the report's range label.
func ReportPayload(r ledger.Report, f Format) (Payload, error) {
	name := "billr-report-" + slug(r.Label)
	switch f {
	case FormatCSV:
		body, err := CSV(r)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Filename: name + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	case FormatText:
		return Payload{Filename: name + ".txt", ContentType: "text/plain; charset=utf-8", Body: Text(r)}, nil
	case FormatJSON:
		body, err := ReportJSON(r)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Filename: name + ".json", ContentType: "application/json", Body: body}, nil
	}
	return Payload{}, fmt.Errorf("unknown export format %q", f)
}

func InvoicePayload(inv model.Invoice, client model.Client, project model.Project, entries []model.TimeEntry) Payload {
	return Payload{
		Filename:    "invoice-" + slug(inv.Number) + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        InvoiceText(inv, client, project, entries),
	}
}

// InvoicePDFPayload is InvoicePayload rendered as a PDF document.
func InvoicePDFPayload(inv model.Invoice, client model.Client, project model.Project, entries []model.TimeEntry) (Payload, error) {
	body, err := InvoicePDF(inv, client, project, entries)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Filename:    "invoice-" + slug(inv.Number) + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func BackupPayload(b model.Backup) (Payload, error) {
	body, err := Backup(b)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Filename:    "billr-backup-" + b.ExportedAt.UTC().Format("2006-01-02") + ".json",
		ContentType: "application/json",
		Body:        body,
	}, nil
}

// slug lowercases s and collapses every run of other characters into a
// single dash.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "export"
	}
	return out
}
