// Package ledger holds the payroll arithmetic: the daily wage policy, the
// employee id sequence, the per-field merge of a monthly entry, balances and
// the ordered history of an employee. Everything here is free of I/O.
package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/shopspring/decimal"
)

// DaysPerMonth is the fixed month length used to derive the daily wage.
const DaysPerMonth = 30

// IDPrefix prefixes every employee identifier.
const IDPrefix = "emp_"

var daysPerMonth = decimal.NewFromInt(DaysPerMonth)

// DailyWage derives the daily wage from a monthly salary.
func DailyWage(monthlySalary decimal.Decimal) decimal.Decimal {
	return monthlySalary.Div(daysPerMonth)
}

// SetSalary writes the salary and the daily wage derived from it.
func SetSalary(emp *models.Employee, monthlySalary decimal.Decimal) {
	emp.MonthlySalary = monthlySalary
	emp.DailyWage = DailyWage(monthlySalary)
}

// idSeq extracts n from emp_<n>.
func idSeq(id string) (int, bool) {
	if !strings.HasPrefix(id, IDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, IDPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HighestSeq returns the largest employee sequence the document has ever
// used: the stored high-water mark or the largest emp_<n> present.
func HighestSeq(doc *models.Document) int {
	highest := doc.LastEmployeeSeq
	for _, emp := range doc.Employees {
		if n, ok := idSeq(emp.ID); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// NextID assigns the next employee id and advances the document's
// high-water mark, so an id is never handed out twice even after the
// highest-numbered employee has been removed.
func NextID(doc *models.Document) string {
	doc.LastEmployeeSeq = HighestSeq(doc) + 1
	return fmt.Sprintf("%s%d", IDPrefix, doc.LastEmployeeSeq)
}

// ValidateSalary rejects negative salaries.
func ValidateSalary(monthlySalary decimal.Decimal) error {
	if monthlySalary.IsNegative() {
		return fmt.Errorf("%w: monthly salary must not be negative", e.ErrInvalidInput)
	}
	return nil
}

// ValidatePeriod checks an accrual bucket key.
func ValidatePeriod(year, month int) error {
	if year <= 0 {
		return fmt.Errorf("%w: year must be positive", e.ErrInvalidInput)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", e.ErrInvalidInput)
	}
	return nil
}

// ValidateEntry checks a monthly entry before anything is mutated.
func ValidateEntry(entry models.MonthEntry) error {
	if err := ValidatePeriod(entry.Year, entry.Month); err != nil {
		return err
	}
	if entry.Advances.IsNegative() {
		return fmt.Errorf("%w: advances must not be negative", e.ErrInvalidInput)
	}
	if entry.Loans.IsNegative() {
		return fmt.Errorf("%w: loans must not be negative", e.ErrInvalidInput)
	}
	if entry.Payment.IsNegative() {
		return fmt.Errorf("%w: payment must not be negative", e.ErrInvalidInput)
	}
	return nil
}

// LocateOrCreate returns the employee's record for (year, month), appending
// an empty one when the month has never been recorded.
func LocateOrCreate(emp *models.Employee, year, month int) *models.MonthlyRecord {
	if rec := emp.FindRecord(year, month); rec != nil {
		return rec
	}
	emp.MonthlyRecords = append(emp.MonthlyRecords, models.MonthlyRecord{
		Year:     year,
		Month:    month,
		Advances: decimal.Zero,
		Loans:    decimal.Zero,
		Payments: []models.Payment{},
	})
	return &emp.MonthlyRecords[len(emp.MonthlyRecords)-1]
}

// Merge applies an entry to a record field by field:
// DaysWorked is replaced, Advances and Loans are added, and a positive
// Payment is appended with the given timestamp.
func Merge(rec *models.MonthlyRecord, entry models.MonthEntry, now time.Time) {
	rec.DaysWorked = entry.DaysWorked
	rec.Advances = rec.Advances.Add(entry.Advances)
	rec.Loans = rec.Loans.Add(entry.Loans)
	if entry.Payment.IsPositive() {
		rec.Payments = append(rec.Payments, models.Payment{Date: now, Amount: entry.Payment})
	}
}

// RecordMonth validates entry and merges it into the employee's bucket.
func RecordMonth(emp *models.Employee, entry models.MonthEntry, now time.Time) (*models.MonthlyRecord, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}
	rec := LocateOrCreate(emp, entry.Year, entry.Month)
	Merge(rec, entry, now)
	return rec, nil
}

// PaymentsTotal sums the amounts of every payment in rec.
func PaymentsTotal(rec models.MonthlyRecord) decimal.Decimal {
	total := decimal.Zero
	for _, p := range rec.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// ComputeBalance evaluates rec against the employee's current daily wage.
// Earned and Pending go negative when DaysWorked is negative.
func ComputeBalance(emp models.Employee, rec models.MonthlyRecord) models.Balance {
	earned := decimal.NewFromInt(int64(rec.DaysWorked)).Mul(emp.DailyWage)
	payments := PaymentsTotal(rec)
	return models.Balance{
		Earned:        earned,
		Advances:      rec.Advances,
		Loans:         rec.Loans,
		PaymentsTotal: payments,
		Pending:       earned.Sub(rec.Advances).Sub(rec.Loans).Sub(payments),
	}
}

// History returns a copy of the employee's records, newest month first.
func History(emp models.Employee) []models.MonthlyRecord {
	recs := make([]models.MonthlyRecord, len(emp.MonthlyRecords))
	copy(recs, emp.MonthlyRecords)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Year != recs[j].Year {
			return recs[i].Year > recs[j].Year
		}
		return recs[i].Month > recs[j].Month
	})
	return recs
}

// Statement pairs a monthly record with its balance.
type Statement struct {
	Record  models.MonthlyRecord `json:"record"`
	Balance models.Balance       `json:"balance"`
}

// Statements is History with a balance computed for every record.
func Statements(emp models.Employee) []Statement {
	recs := History(emp)
	out := make([]Statement, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Statement{Record: rec, Balance: ComputeBalance(emp, rec)})
	}
	return out
}
