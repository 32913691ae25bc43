package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

type invoiceFormStep int

const (
	stepNone invoiceFormStep = iota
	stepProject
	stepDetails
)

type invoicesModel struct {
	ledger    *ledger.Ledger
	exportDir string
	width     int
	height    int

	invoices []model.Invoice
	projects []model.Project
	clients  map[string]string
	cursor   int
	detail   bool

	formActive bool
	form       *huh.Form
	step       invoiceFormStep

	// Form field pointers (survive value copies)
	formProject     *string
	formNumber      *string
	formEntries     *[]string
	formAmount      *string
	formDescription *string
}

func newInvoicesModel(l *ledger.Ledger, exportDir string) invoicesModel {
	project, number, amount, desc := "", "", "", ""
	var entries []string
	return invoicesModel{
		ledger:          l,
		exportDir:       exportDir,
		formProject:     &project,
		formNumber:      &number,
		formEntries:     &entries,
		formAmount:      &amount,
		formDescription: &desc,
	}
}

func (v *invoicesModel) setSize(w, h int) {
	v.width = w
	v.height = h
}

type invoicesDataMsg struct {
	invoices []model.Invoice
	projects []model.Project
	clients  map[string]string
}

func (v invoicesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		clients := make(map[string]string)
		for _, c := range v.ledger.Clients() {
			clients[c.ID] = c.Name
		}
		return invoicesDataMsg{
			invoices: v.ledger.Invoices(ledger.InvoiceFilter{}),
			projects: v.ledger.Projects(),
			clients:  clients,
		}
	}
}

func (v invoicesModel) selected() (model.Invoice, bool) {
	if len(v.invoices) == 0 {
		return model.Invoice{}, false
	}
	return v.invoices[v.cursor], true
}

func (v invoicesModel) update(msg tea.Msg) (invoicesModel, tea.Cmd) {
	if v.formActive && v.form != nil {
		return v.updateForm(msg)
	}

	switch msg := msg.(type) {
	case invoicesDataMsg:
		v.invoices = msg.invoices
		v.projects = msg.projects
		v.clients = msg.clients
		v.cursor = clampCursor(v.cursor, len(v.invoices))
		if len(v.invoices) == 0 {
			v.detail = false
		}
		return v, nil

	case tea.KeyMsg:
		if v.detail {
			switch {
			case key.Matches(msg, keys.Back), key.Matches(msg, keys.Enter):
				v.detail = false
				return v, nil
			}
		}
		switch {
		case key.Matches(msg, keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.Down):
			if v.cursor < len(v.invoices)-1 {
				v.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(v.invoices) > 0 {
				v.detail = true
			}
		case key.Matches(msg, keys.New):
			if len(v.projects) == 0 {
				return v, func() tea.Msg {
					return statusMsg{text: "Create a project first (press 3).", isError: true}
				}
			}
			return v.showProjectStep()
		case key.Matches(msg, keys.Status):
			if inv, ok := v.selected(); ok {
				next := inv.Status.Next()
				_, err := v.ledger.SetInvoiceStatus(inv.ID, next)
				return v, tea.Batch(v.refresh(), statusOr(fmt.Sprintf("%s marked %s", inv.Number, next), err))
			}
		case key.Matches(msg, keys.Delete):
			if inv, ok := v.selected(); ok {
				err := v.ledger.DeleteInvoice(inv.ID)
				v.detail = false
				return v, tea.Batch(v.refresh(), statusOr("Deleted "+inv.Number, err))
			}
		case key.Matches(msg, keys.Export):
			if inv, ok := v.selected(); ok {
				return v, v.exportInvoice(inv, false)
			}
		case key.Matches(msg, keys.PDF):
			if inv, ok := v.selected(); ok {
				return v, v.exportInvoice(inv, true)
			}
		}
	}
	return v, nil
}

func (v invoicesModel) showProjectStep() (invoicesModel, tea.Cmd) {
	*v.formProject = v.projects[0].ID
	options := make([]huh.Option[string], len(v.projects))
	for i, p := range v.projects {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", p.Name, v.clients[p.ClientID]), p.ID)
	}

	v.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Bill which project?").Options(options...).Value(v.formProject),
		),
	).WithShowHelp(true).WithShowErrors(true)
	v.step = stepProject
	v.formActive = true
	return v, v.form.Init()
}

func (v invoicesModel) showDetailsStep() (invoicesModel, tea.Cmd) {
	eligible, err := v.ledger.EligibleEntries(*v.formProject)
	if err != nil {
		v.formActive = false
		v.form = nil
		return v, errStatus("Error", err)
	}

	year := v.ledger.Now().In(v.ledger.Location()).Year()
	*v.formNumber = v.ledger.NextInvoiceNumber(year)
	*v.formAmount = ""
	*v.formDescription = ""

	// Every eligible entry starts selected.
	ids := make([]string, len(eligible))
	options := make([]huh.Option[string], len(eligible))
	for i, e := range eligible {
		ids[i] = e.ID
		label := fmt.Sprintf("%s  %7s  %s", e.Date, formatMinutes(e.Duration), truncate(e.Description, 40))
		options[i] = huh.NewOption(label, e.ID).Selected(true)
	}
	*v.formEntries = ids

	fields := []huh.Field{
		huh.NewInput().Title("Invoice number").Value(v.formNumber).Validate(required("invoice number")),
	}
	if len(options) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Time entries").
			Description("space: toggle").
			Value(v.formEntries).
			Options(options...).
			Height(12))
	} else {
		fields = append(fields, huh.NewNote().Title("Time entries").Description("No unbilled entries. Enter a fixed amount."))
	}
	fields = append(fields,
		huh.NewInput().Title("Fixed amount").Description("Leave empty to bill the selected time").
			Value(v.formAmount).Validate(optionalAmount),
		huh.NewText().Title("Notes").CharLimit(1000).Lines(2).Value(v.formDescription),
	)

	v.form = huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).WithShowErrors(true)
	v.step = stepDetails
	v.formActive = true
	return v, v.form.Init()
}

func (v invoicesModel) updateForm(msg tea.Msg) (invoicesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		v.formActive = false
		v.form = nil
		v.step = stepNone
		return v, nil
	}

	form, cmd := v.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		v.form = f
	}
	if v.form.State != huh.StateCompleted {
		return v, cmd
	}

	if v.step == stepProject {
		return v.showDetailsStep()
	}
	v.formActive = false
	v.form = nil
	v.step = stepNone
	return v, tea.Batch(v.refresh(), v.create())
}

// override parses the fixed amount field; nil means bill the entries.
func (v invoicesModel) override() *decimal.Decimal {
	s := strings.TrimSpace(*v.formAmount)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func (v invoicesModel) create() tea.Cmd {
	p, err := v.ledger.Project(*v.formProject)
	if err != nil {
		return errStatus("Error", err)
	}
	inv, err := v.ledger.CreateInvoice(ledger.InvoiceInput{
		ClientID:          p.ClientID,
		ProjectID:         p.ID,
		Number:            strings.TrimSpace(*v.formNumber),
		EntryIDs:          append([]string(nil), *v.formEntries...),
		CustomAmount:      v.override(),
		CustomDescription: *v.formDescription,
	})
	return statusOr(fmt.Sprintf("Created %s for %s", inv.Number, formatMoney(inv.TotalAmount, inv.Currency)), err)
}

// liveTotals prices the current selection while the details form is open.
func (v invoicesModel) liveTotals() string {
	t, err := v.ledger.CalculateInvoice(*v.formProject, *v.formEntries, v.override())
	if err != nil {
		return errorStyle.Render(rootCause(err))
	}
	line := fmt.Sprintf("%d entries  %.2f h  %s", len(t.Entries), t.Hours, formatMoney(t.Amount, t.Currency))
	if t.Overridden {
		line += mutedStyle.Render("  (fixed amount)")
	}
	return highlightStyle.Render(line)
}

// exportInvoice writes inv as text, or as a PDF when asPDF is set.
func (v invoicesModel) exportInvoice(inv model.Invoice, asPDF bool) tea.Cmd {
	return func() tea.Msg {
		payload, err := v.invoicePayload(inv, asPDF)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path, err := savePayload(v.exportDir, payload)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func (v invoicesModel) invoicePayload(inv model.Invoice, asPDF bool) (export.Payload, error) {
	client, err := v.ledger.Client(inv.ClientID)
	if err != nil {
		return export.Payload{}, err
	}
	project, err := v.ledger.Project(inv.ProjectID)
	if err != nil {
		return export.Payload{}, err
	}
	entries, err := v.ledger.InvoiceEntries(inv.ID)
	if err != nil {
		return export.Payload{}, err
	}
	if asPDF {
		return export.InvoicePDFPayload(inv, client, project, entries)
	}
	return export.InvoicePayload(inv, client, project, entries), nil
}

func (v invoicesModel) view() string {
	w := v.width - 4
	if v.formActive && v.form != nil {
		title := titleStyle.Render("New Invoice")
		parts := []string{title, "", v.form.View()}
		if v.step == stepDetails {
			parts = append(parts, "", v.liveTotals())
		}
		return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	if v.detail {
		if inv, ok := v.selected(); ok {
			body := errorStyle.Render("Cannot render invoice")
			if p, err := v.invoicePayload(inv, false); err == nil {
				body = string(p.Body)
			}
			hint := mutedStyle.Render("  e: export  p: pdf  c: cycle status  esc: back")
			return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, body, hint))
		}
	}

	title := titleStyle.Render("Invoices")
	if len(v.invoices) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No invoices yet. Press n to bill a project."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-14s %-20s %-10s %-10s %16s  %s", "Number", "Client", "Issued", "Due", "Amount", "Status")))
	for i, inv := range v.invoices {
		line := fmt.Sprintf("%-14s %-20s %-10s %-10s %16s",
			inv.Number, truncate(v.clients[inv.ClientID], 20), inv.IssueDate, inv.DueDate, formatMoney(inv.TotalAmount, inv.Currency))
		rows = append(rows, listRow(i == v.cursor, line)+"  "+invoiceStatusStyle(inv.Status).Render(string(inv.Status)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: view  c: cycle status  e: export  p: pdf  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func optionalAmount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return validRate(s)
}
