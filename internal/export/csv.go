package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/billr/internal/ledger"
)

var csvHeader = []string{
	"Date", "Project", "Client", "Description",
	"Duration (min)", "Duration (h)", "Hourly Rate", "Revenue",
}

// CSV renders one row per report entry in date order.
func CSV(r ledger.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.Rows {
		e := row.Entry
		record := []string{
			e.Date,
			cell(row.ProjectName),
			cell(row.ClientName),
			cell(e.Description),
			strconv.Itoa(e.Duration),
			hours(e.Duration),
			row.HourlyRate.StringFixed(2),
			row.Revenue.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

var cellReplacer = strings.NewReplacer(",", ";", "\r\n", " ", "\n", " ", "\r", " ")

// cell keeps free text on one line and free of the delimiter.
func cell(s string) string {
	return cellReplacer.Replace(s)
}

func hours(minutes int) string {
	return fmt.Sprintf("%.2f", float64(minutes)/60)
}
