// Package report aggregates the monthly ledgers of every employee into a
// single report and renders it for export.
package report

import (
	"fmt"

	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimals monetary row fields are rounded to.
const DisplayPlaces = 2

// Row is the display line of one employee in a monthly report.
// Monetary fields are rounded to DisplayPlaces.
type Row struct {
	EmployeeID string          `json:"employeeId"`
	Name       string          `json:"name"`
	DaysWorked int             `json:"daysWorked"`
	DailyWage  decimal.Decimal `json:"dailyWage"`
	Earned     decimal.Decimal `json:"earned"`
	Advances   decimal.Decimal `json:"advances"`
	Loans      decimal.Decimal `json:"loans"`
	Payments   decimal.Decimal `json:"payments"`
	Pending    decimal.Decimal `json:"pending"`
}

// Totals holds the fleet-wide sums over the included employees. Sums are
// taken over unrounded values, so they can differ by a few cents from the
// sum of the displayed rows.
type Totals struct {
	Employees int             `json:"employees"`
	Days      int             `json:"days"`
	Earned    decimal.Decimal `json:"earned"`
	Advances  decimal.Decimal `json:"advances"`
	Loans     decimal.Decimal `json:"loans"`
	Payments  decimal.Decimal `json:"payments"`
	Pending   decimal.Decimal `json:"pending"`
}

// Report is the outcome of aggregating one accrual bucket.
type Report struct {
	Year   int
	Month  int
	Rows   []Row
	Totals Totals
}

// Generate builds the report for (year, month). Employees without a record
// for that exact month are left out.
func Generate(employees []models.Employee, year, month int) (*Report, error) {
	if err := ledger.ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	rep := &Report{
		Year:  year,
		Month: month,
		Rows:  []Row{},
		Totals: Totals{
			Earned:   decimal.Zero,
			Advances: decimal.Zero,
			Loans:    decimal.Zero,
			Payments: decimal.Zero,
			Pending:  decimal.Zero,
		},
	}

	for _, emp := range employees {
		rec := emp.FindRecord(year, month)
		if rec == nil {
			continue
		}
		bal := ledger.ComputeBalance(emp, *rec)

		rep.Rows = append(rep.Rows, Row{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			DaysWorked: rec.DaysWorked,
			DailyWage:  emp.DailyWage.Round(DisplayPlaces),
			Earned:     bal.Earned.Round(DisplayPlaces),
			Advances:   bal.Advances.Round(DisplayPlaces),
			Loans:      bal.Loans.Round(DisplayPlaces),
			Payments:   bal.PaymentsTotal.Round(DisplayPlaces),
			Pending:    bal.Pending.Round(DisplayPlaces),
		})

		t := &rep.Totals
		t.Employees++
		t.Days += rec.DaysWorked
		t.Earned = t.Earned.Add(bal.Earned)
		t.Advances = t.Advances.Add(bal.Advances)
		t.Loans = t.Loans.Add(bal.Loans)
		t.Payments = t.Payments.Add(bal.PaymentsTotal)
		t.Pending = t.Pending.Add(bal.Pending)
	}

	return rep, nil
}

// FileName returns the download name of the report in the given extension.
func (r *Report) FileName(ext string) string {
	return fmt.Sprintf("reporte_%d_%d.%s", r.Year, r.Month, ext)
}
