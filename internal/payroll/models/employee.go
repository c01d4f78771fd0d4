// Package models defines the core domain models of the payroll ledger.
// It includes Employee with its MonthlyRecord and Payment history, the
// Category enumeration and the Document persisted by storage gateways.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are plain JSON numbers in data.json and every API body.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category represents the employment category of an employee.
type Category string

const (
	// Operario represents a line or field worker.
	Operario       Category = "Operario"
	Administrativo Category = "Administrativo"
	Temporal       Category = "Temporal"
	Otro           Category = "Otro"
)

// Categories lists every accepted Category in display order.
var Categories = []Category{Operario, Administrativo, Temporal, Otro}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Employee defines the domain model for an employee and the monthly
// records it owns.
type Employee struct {
	// ID is the immutable identifier, formatted emp_<n>.
	ID string `json:"id"`
	// Name is the employee's full name.
	Name string `json:"name"`
	// Email is a free-text contact address.
	Email string `json:"email"`
	// Phone is a free-text contact number.
	Phone string `json:"phone"`
	// Category is the employment category.
	Category Category `json:"category"`
	// MonthlySalary is the agreed salary for a full month.
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	// DailyWage is MonthlySalary / 30, stored whenever the salary is written.
	DailyWage decimal.Decimal `json:"monthly_daily_wage"`
	// MonthlyRecords holds at most one record per (year, month).
	MonthlyRecords []MonthlyRecord `json:"monthly_work_records"`
}

// MonthlyRecord is the accrual bucket of one employee for one calendar month.
type MonthlyRecord struct {
	// Year of the bucket.
	Year int `json:"year"`
	// Month of the bucket, 1-12.
	Month int `json:"month"`
	// DaysWorked is the net number of days credited; negative values are corrections.
	DaysWorked int `json:"days_worked"`
	// Advances accumulates every advance handed out during the month.
	Advances decimal.Decimal `json:"advances"`
	// Loans accumulates every loan handed out during the month.
	Loans decimal.Decimal `json:"loans"`
	// Payments is the append-only list of payments made against the month.
	Payments []Payment `json:"payments"`
}

// Payment is a single immutable payment made against a monthly record.
type Payment struct {
	// Date is the instant the payment was registered.
	Date time.Time `json:"date"`
	// Amount is always positive.
	Amount decimal.Decimal `json:"amount"`
}

// legacyDateLayout is the zone-less timestamp older documents were written with.
const legacyDateLayout = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON accepts RFC 3339 dates as well as zone-less legacy ones,
// which are read as UTC.
func (p *Payment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Amount = raw.Amount
	if raw.Date == "" {
		p.Date = time.Time{}
		return nil
	}
	date, err := time.Parse(time.RFC3339Nano, raw.Date)
	if err != nil {
		date, err = time.ParseInLocation(legacyDateLayout, raw.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("payment date %q: %w", raw.Date, err)
		}
	}
	p.Date = date
	return nil
}

// Document is the full registry as loaded from and saved to storage.
type Document struct {
	// Employees in insertion order.
	Employees []Employee `json:"employees"`
	// LastEmployeeSeq is the highest employee sequence ever assigned.
	LastEmployeeSeq int `json:"last_employee_seq,omitempty"`
}

// EmployeeUpdate represents the basic-info fields that can be updated for an
// Employee. Pointer types are used to allow partial updates.
type EmployeeUpdate struct {
	// ID of the employee to update.
	ID string
	// Name is the new name.
	Name *string
	// Email is the new email.
	Email *string
	// Phone is the new phone.
	Phone *string
	// MonthlySalary is the new salary; DailyWage is recomputed from it.
	MonthlySalary *decimal.Decimal
}

// MonthEntry carries one save of the monthly form: days overwrite the
// record, advances and loans are added to it and a positive Payment is
// appended to its payments.
type MonthEntry struct {
	Year       int
	Month      int
	DaysWorked int
	Advances   decimal.Decimal
	Loans      decimal.Decimal
	Payment    decimal.Decimal
}

// Balance is the computed position of one monthly record.
type Balance struct {
	Earned        decimal.Decimal `json:"earned"`
	Advances      decimal.Decimal `json:"advances"`
	Loans         decimal.Decimal `json:"loans"`
	PaymentsTotal decimal.Decimal `json:"payments"`
	Pending       decimal.Decimal `json:"pending"`
}

// Normalize replaces nil collections with empty ones so they encode as []
// rather than null.
func (d *Document) Normalize() {
	if d.Employees == nil {
		d.Employees = []Employee{}
	}
	for i := range d.Employees {
		emp := &d.Employees[i]
		if emp.MonthlyRecords == nil {
			emp.MonthlyRecords = []MonthlyRecord{}
		}
		for j := range emp.MonthlyRecords {
			if emp.MonthlyRecords[j].Payments == nil {
				emp.MonthlyRecords[j].Payments = []Payment{}
			}
		}
	}
}

// FindRecord returns the record for (year, month), or nil.
func (emp *Employee) FindRecord(year, month int) *MonthlyRecord {
	for i := range emp.MonthlyRecords {
		if emp.MonthlyRecords[i].Year == year && emp.MonthlyRecords[i].Month == month {
			return &emp.MonthlyRecords[i]
		}
	}
	return nil
}

// FindEmployee returns the employee with exactly the given id, or nil.
func (d *Document) FindEmployee(id string) *Employee {
	for i := range d.Employees {
		if d.Employees[i].ID == id {
			return &d.Employees[i]
		}
	}
	return nil
}
