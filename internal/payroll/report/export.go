package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported export format.
var Formats = []Format{FormatCSV, FormatJSON, FormatPDF}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type of the encoded report.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// CSVHeader is the exact column set of the tabular export.
var CSVHeader = []string{
	"employeeId", "name", "daysWorked", "dailyWage", "earned",
	"advances", "loans", "payments", "pending",
}

// Write encodes r in the given format.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes the rows of r as CSV. The header is written even when the
// report has no rows.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		record := []string{
			row.EmployeeID,
			row.Name,
			strconv.Itoa(row.DaysWorked),
			row.DailyWage.StringFixed(DisplayPlaces),
			row.Earned.StringFixed(DisplayPlaces),
			row.Advances.StringFixed(DisplayPlaces),
			row.Loans.StringFixed(DisplayPlaces),
			row.Payments.StringFixed(DisplayPlaces),
			row.Pending.StringFixed(DisplayPlaces),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRow struct {
	EmployeeID string      `json:"employeeId"`
	Name       string      `json:"name"`
	DaysWorked int         `json:"daysWorked"`
	DailyWage  json.Number `json:"dailyWage"`
	Earned     json.Number `json:"earned"`
	Advances   json.Number `json:"advances"`
	Loans      json.Number `json:"loans"`
	Payments   json.Number `json:"payments"`
	Pending    json.Number `json:"pending"`
}

type jsonTotals struct {
	Employees int         `json:"employees"`
	Days      int         `json:"days"`
	Earned    json.Number `json:"earned"`
	Advances  json.Number `json:"advances"`
	Loans     json.Number `json:"loans"`
	Payments  json.Number `json:"payments"`
	Pending   json.Number `json:"pending"`
}

// Structured is the {monthSummary, rows} export document.
type Structured struct {
	MonthSummary jsonTotals `json:"monthSummary"`
	Rows         []jsonRow  `json:"rows"`
}

func num(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// ToStructured converts r into the structured export document with
// monetary values as plain JSON numbers.
func ToStructured(r *Report) Structured {
	out := Structured{
		MonthSummary: jsonTotals{
			Employees: r.Totals.Employees,
			Days:      r.Totals.Days,
			Earned:    num(r.Totals.Earned),
			Advances:  num(r.Totals.Advances),
			Loans:     num(r.Totals.Loans),
			Payments:  num(r.Totals.Payments),
			Pending:   num(r.Totals.Pending),
		},
		Rows: make([]jsonRow, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		out.Rows = append(out.Rows, jsonRow{
			EmployeeID: row.EmployeeID,
			Name:       row.Name,
			DaysWorked: row.DaysWorked,
			DailyWage:  num(row.DailyWage),
			Earned:     num(row.Earned),
			Advances:   num(row.Advances),
			Loans:      num(row.Loans),
			Payments:   num(row.Payments),
			Pending:    num(row.Pending),
		})
	}
	return out
}

// WriteJSON writes the structured export of r.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(ToStructured(r))
}
