package export

import (
	"fmt"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
	"github.com/sadopc/billr/internal/model"
)

var pdfGrid = []uint{3, 7, 2}

// InvoicePDF renders the same content as InvoiceText as an A4 document.
func InvoicePDF(inv model.Invoice, client model.Client, project model.Project, entries []model.TimeEntry) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	m.RegisterHeader(func() {
		m.Row(12, func() {
			m.Col(8, func() {
				m.Text("INVOICE "+inv.Number, props.Text{Top: 3, Style: consts.Bold, Size: 16})
			})
			m.Col(4, func() {
				m.Text(string(inv.Status), props.Text{Top: 5, Align: consts.Right, Size: 10})
			})
		})
	})

	line := func(text string, style consts.Style) {
		m.Row(6, func() {
			m.Col(12, func() {
				m.Text(text, props.Text{Style: style, Size: 10})
			})
		})
	}

	line("Issue date: "+inv.IssueDate, consts.Normal)
	line("Due date:   "+inv.DueDate, consts.Normal)
	m.Row(4, func() {})

	line("Bill to", consts.Bold)
	line(oneLine(client.Name), consts.Normal)
	line(client.Email, consts.Normal)
	if client.Phone != "" {
		line(client.Phone, consts.Normal)
	}
	if client.Address != "" {
		line(oneLine(client.Address), consts.Normal)
	}
	m.Row(4, func() {})

	line("Project: "+oneLine(project.Name), consts.Bold)
	line(fmt.Sprintf("Rate: %s %s/h", project.HourlyRate.StringFixed(2), inv.Currency), consts.Normal)
	m.Row(4, func() {})

	if len(entries) > 0 {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Date, oneLine(e.Description), hours(e.Duration)})
		}
		m.TableList([]string{"Date", "Description", "Hours"}, rows, props.TableList{
			HeaderProp:           props.TableListContent{Size: 10, GridSizes: pdfGrid},
			ContentProp:          props.TableListContent{Size: 9, GridSizes: pdfGrid},
			Align:                consts.Left,
			AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
			HeaderContentSpace:   1,
		})
	} else {
		line("Fixed amount", consts.Italic)
	}

	m.Row(6, func() {})
	m.Row(8, func() {
		m.Col(8, func() {
			m.Text(fmt.Sprintf("Total hours: %.2f", inv.TotalHours), props.Text{Size: 11})
		})
		m.Col(4, func() {
			m.Text(fmt.Sprintf("%s %s", inv.TotalAmount.StringFixed(2), inv.Currency), props.Text{
				Style: consts.Bold,
				Align: consts.Right,
				Size:  12,
			})
		})
	})
	if inv.CustomDescription != "" {
		m.Row(4, func() {})
		line("Notes: "+oneLine(inv.CustomDescription), consts.Normal)
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
