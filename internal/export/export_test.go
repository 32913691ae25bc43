package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

func sampleReport() ledger.Report {
	rate := decimal.NewFromInt(85)
	rows := []ledger.ReportRow{
		{
			Entry:       model.TimeEntry{ID: "e1", ProjectID: "p1", Description: "Design, review", Date: "2024-05-13", Duration: 210},
			ProjectName: "Website", ClientID: "c1", ClientName: "Acme",
			HourlyRate: rate, Currency: "EUR", Revenue: ledger.Revenue(210, rate),
		},
		{
			Entry:       model.TimeEntry{ID: "e2", ProjectID: "p1", Description: "Fix bugs\nand deploy", Date: "2024-05-14", Duration: 135},
			ProjectName: "Website", ClientID: "c1", ClientName: "Acme",
			HourlyRate: rate, Currency: "EUR", Revenue: ledger.Revenue(135, rate),
		},
	}
	total := rows[0].Revenue.Add(rows[1].Revenue)
	return ledger.Report{
		From:  "2024-05-13",
		To:    "2024-05-19",
		Label: "2024-05-13 to 2024-05-19",
		Rows:  rows,
		Totals: ledger.ReportTotals{
			Minutes: 345, Hours: 5.75, Revenue: total, Entries: 2, Days: 7, AvgHoursPerDay: 5.75 / 7,
		},
		ByProject: []ledger.GroupTotal{{ID: "p1", Name: "Website", Minutes: 345, Revenue: total, Entries: 2}},
		ByClient:  []ledger.GroupTotal{{ID: "c1", Name: "Acme", Minutes: 345, Revenue: total, Entries: 2, Projects: 1}},
	}
}

func sampleInvoice() (model.Invoice, model.Client, model.Project, []model.TimeEntry) {
	r := sampleReport()
	inv := model.Invoice{
		ID: "i1", ClientID: "c1", ProjectID: "p1", Number: "INV-2024-001",
		IssueDate: "2024-05-15", DueDate: "2024-05-29", Status: model.InvoiceDraft,
		TimeEntryIDs: []string{"e1", "e2"}, TotalHours: 5.75,
		TotalAmount: decimal.RequireFromString("488.75"), Currency: "EUR",
	}
	client := model.Client{ID: "c1", Name: "Acme", Email: "billing@acme.test", Address: "1 Main St\nSpringfield"}
	project := model.Project{ID: "p1", Name: "Website", ClientID: "c1", HourlyRate: decimal.NewFromInt(85), Currency: "EUR"}
	return inv, client, project, []model.TimeEntry{r.Rows[0].Entry, r.Rows[1].Entry}
}

// ============================================================
// CSV
// ============================================================

const wantCSV = `Date,Project,Client,Description,Duration (min),Duration (h),Hourly Rate,Revenue
2024-05-13,Website,Acme,Design; review,210,3.50,85.00,297.50
2024-05-14,Website,Acme,Fix bugs and deploy,135,2.25,85.00,191.25
`

func TestCSVGolden(t *testing.T) {
	got, err := CSV(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != wantCSV {
		t.Fatalf("csv mismatch\n got:\n%s\nwant:\n%s", got, wantCSV)
	}
}

func TestCSVParsesBack(t *testing.T) {
	got, err := CSV(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(got)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if len(rec) != len(csvHeader) {
			t.Errorf("record %d has %d fields, want %d", i, len(rec), len(csvHeader))
		}
	}
}

func TestCSVEmptyReport(t *testing.T) {
	got, err := CSV(ledger.Report{Label: "All time"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(got), "\n") != 1 {
		t.Fatalf("expected header only, got %q", got)
	}
}

// ============================================================
// Text
// ============================================================

const wantText = `TIME REPORT
Period: 2024-05-13 to 2024-05-19

SUMMARY
-------
Total hours:     5.75
Total revenue:   488.75
Entries:         2
Days in range:   7
Average per day: 0.82 h

By project:
  Website: 5.75 h, 488.75 (2 entries)

By client:
  Acme: 5.75 h, 488.75 (1 project, 2 entries)

DETAILS
-------
2024-05-13  Website / Acme
  Design, review
  210 min (3.50 h) x 85.00 = 297.50 EUR

2024-05-14  Website / Acme
  Fix bugs and deploy
  135 min (2.25 h) x 85.00 = 191.25 EUR
`

func TestTextGolden(t *testing.T) {
	got := string(Text(sampleReport()))
	if got != wantText {
		t.Fatalf("text mismatch\n got:\n%s\nwant:\n%s", got, wantText)
	}
}

func TestTextEmptyReport(t *testing.T) {
	got := string(Text(ledger.Report{Label: "All time"}))
	if !strings.Contains(got, "Period: All time\n") {
		t.Errorf("missing period line:\n%s", got)
	}
	if !strings.HasSuffix(got, "DETAILS\n-------\nNo entries.\n") {
		t.Errorf("expected empty details block:\n%s", got)
	}
	if strings.Contains(got, "By project:") {
		t.Errorf("empty report should not list projects:\n%s", got)
	}
}

func TestExportsAreDeterministic(t *testing.T) {
	r := sampleReport()
	a, _ := CSV(r)
	b, _ := CSV(r)
	if !bytes.Equal(a, b) {
		t.Error("csv output differs between calls")
	}
	if !bytes.Equal(Text(r), Text(r)) {
		t.Error("text output differs between calls")
	}
	j1, _ := ReportJSON(r)
	j2, _ := ReportJSON(r)
	if !bytes.Equal(j1, j2) {
		t.Error("json output differs between calls")
	}
}

// ============================================================
// JSON
// ============================================================

func TestReportJSON(t *testing.T) {
	data, err := ReportJSON(sampleReport())
	if err != nil {
		t.Fatal(err)
	}

	var out jsonReport
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 2 || len(out.Entries) != 2 {
		t.Fatalf("expected 2 entries, got count=%d len=%d", out.Count, len(out.Entries))
	}
	if out.Totals.Revenue != "488.75" {
		t.Errorf("revenue = %q", out.Totals.Revenue)
	}
	if out.Totals.AvgHoursPerDay != 0.82 {
		t.Errorf("avg = %v", out.Totals.AvgHoursPerDay)
	}
	if out.Entries[0].Duration != "3h 30m" {
		t.Errorf("duration = %q", out.Entries[0].Duration)
	}
	if out.Entries[1].Description != "Fix bugs\nand deploy" {
		t.Errorf("json keeps descriptions verbatim, got %q", out.Entries[1].Description)
	}
}

func TestReportJSONEmptyListsAreArrays(t *testing.T) {
	data, err := ReportJSON(ledger.Report{Label: "All time"})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("null")) {
		t.Fatalf("expected empty arrays, got:\n%s", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h 00m"},
		{125, "2h 05m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.minutes); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

// ============================================================
// Invoice
// ============================================================

const wantInvoice = `INVOICE INV-2024-001
Status: draft

Issue date: 2024-05-15
Due date:   2024-05-29

Bill to:
  Acme
  billing@acme.test
  1 Main St
  Springfield

Project: Website
Rate:    85.00 EUR/h

ITEMS
-----
2024-05-13    3.50 h  Design, review
2024-05-14    2.25 h  Fix bugs and deploy

Total hours:  5.75
Total amount: 488.75 EUR
`

func TestInvoiceTextGolden(t *testing.T) {
	got := string(InvoiceText(sampleInvoice()))
	if got != wantInvoice {
		t.Fatalf("invoice mismatch\n got:\n%s\nwant:\n%s", got, wantInvoice)
	}
}

func TestInvoiceTextFixedAmount(t *testing.T) {
	inv, client, project, _ := sampleInvoice()
	inv.TimeEntryIDs = nil
	inv.TotalHours = 0
	inv.TotalAmount = decimal.NewFromInt(500)
	inv.CustomDescription = "Retainer"

	got := string(InvoiceText(inv, client, project, nil))
	for _, want := range []string{"Fixed amount\n", "Total amount: 500.00 EUR\n", "Notes: Retainer\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestInvoicePDF(t *testing.T) {
	p, err := InvoicePDFPayload(sampleInvoice())
	if err != nil {
		t.Fatal(err)
	}
	if p.Filename != "invoice-inv-2024-001.pdf" || p.ContentType != "application/pdf" {
		t.Errorf("unexpected payload %q %q", p.Filename, p.ContentType)
	}
	if !bytes.HasPrefix(p.Body, []byte("%PDF-")) {
		t.Fatalf("body is not a PDF: %q", p.Body[:min(len(p.Body), 16)])
	}
}

func TestInvoicePDFFixedAmount(t *testing.T) {
	inv, client, project, _ := sampleInvoice()
	inv.TotalAmount = decimal.NewFromInt(500)
	body, err := InvoicePDF(inv, client, project, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(body) == 0 {
		t.Fatal("empty pdf")
	}
}

// ============================================================
// Backup
// ============================================================

func sampleBackup() model.Backup {
	inv, client, project, entries := sampleInvoice()
	return model.Backup{
		Version:     model.BackupVersion,
		ExportedAt:  time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC),
		Clients:     []model.Client{client},
		Projects:    []model.Project{project},
		TimeEntries: entries,
		Invoices:    []model.Invoice{inv},
		Settings:    map[string]string{"theme": "dark"},
	}
}

func TestBackupRoundTrip(t *testing.T) {
	in := sampleBackup()
	data, err := Backup(in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"exportDate": "2024-05-15T09:00:00Z"`)) {
		t.Errorf("missing export date:\n%s", data)
	}
	if !bytes.Contains(data, []byte(`"invoiceNumber": "INV-2024-001"`)) {
		t.Errorf("missing invoice number:\n%s", data)
	}

	out, err := ParseBackup(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Clients) != 1 || len(out.TimeEntries) != 2 || len(out.Invoices) != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if !out.Invoices[0].TotalAmount.Equal(in.Invoices[0].TotalAmount) {
		t.Errorf("amount = %s", out.Invoices[0].TotalAmount)
	}
	if !out.ExportedAt.Equal(in.ExportedAt) {
		t.Errorf("exported at = %s", out.ExportedAt)
	}

	again, err := Backup(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("backup is not stable across a parse round trip")
	}
}

func TestBackupEmptyCollections(t *testing.T) {
	data, err := Backup(model.Backup{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseBackup(data); err != nil {
		t.Fatalf("empty backup should parse: %v", err)
	}
	if !bytes.Contains(data, []byte(`"version": 1`)) {
		t.Errorf("missing version:\n%s", data)
	}
}

func TestParseBackupRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"missing invoices", `{"clients":[],"projects":[],"timeEntries":[]}`},
		{"null entries", `{"clients":[],"projects":[],"timeEntries":null,"invoices":[]}`},
		{"future version", `{"version":99,"clients":[],"projects":[],"timeEntries":[],"invoices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBackup([]byte(tt.data))
			if !errors.Is(err, ErrInvalidBackup) {
				t.Fatalf("expected ErrInvalidBackup, got %v", err)
			}
		})
	}
}

// ============================================================
// Payloads
// ============================================================

func TestReportPayloadFilenames(t *testing.T) {
	r := sampleReport()
	tests := []struct {
		format Format
		name   string
		ctype  string
	}{
		{FormatCSV, "billr-report-2024-05-13-to-2024-05-19.csv", "text/csv; charset=utf-8"},
		{FormatText, "billr-report-2024-05-13-to-2024-05-19.txt", "text/plain; charset=utf-8"},
		{FormatJSON, "billr-report-2024-05-13-to-2024-05-19.json", "application/json"},
	}
	for _, tt := range tests {
		p, err := ReportPayload(r, tt.format)
		if err != nil {
			t.Fatal(err)
		}
		if p.Filename != tt.name || p.ContentType != tt.ctype {
			t.Errorf("%s: got %q (%s)", tt.format, p.Filename, p.ContentType)
		}
		if len(p.Body) == 0 {
			t.Errorf("%s: empty body", tt.format)
		}
	}

	if _, err := ReportPayload(r, Format("pdf")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestInvoiceAndBackupPayloads(t *testing.T) {
	p := InvoicePayload(sampleInvoice())
	if p.Filename != "invoice-inv-2024-001.txt" {
		t.Errorf("invoice filename = %q", p.Filename)
	}
	if string(p.Body) != wantInvoice {
		t.Error("invoice payload body differs from InvoiceText")
	}

	bp, err := BackupPayload(sampleBackup())
	if err != nil {
		t.Fatal(err)
	}
	if bp.Filename != "billr-backup-2024-05-15.json" {
		t.Errorf("backup filename = %q", bp.Filename)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"CSV": FormatCSV, "text": FormatText, "txt": FormatText, "": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xls"); err == nil {
		t.Error("expected error for xls")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"All time":                 "all-time",
		"May 2024":                 "may-2024",
		"Until 2024-05-01":         "until-2024-05-01",
		"  --weird// label!!  ":    "weird-label",
		"":                         "export",
		"2024-05-13 to 2024-05-19": "2024-05-13-to-2024-05-19",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
