// Package models contains the relational rows of the payroll registry,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Money is a decimal column. It is numeric on postgres and text on sqlite,
// whose numeric affinity would round values through float64.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d for storage.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// GormDBDataType picks the column type per dialect.
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "text"
	}
	return "numeric"
}

// Employee is one row per registered employee. Position keeps the
// registry's insertion order across saves.
type Employee struct {
	ID            string          `gorm:"size:32;primaryKey"`
	Position      int             `gorm:"index"`
	Name          string          `gorm:"size:255"`
	Email         string          `gorm:"size:255"`
	Phone         string          `gorm:"size:64"`
	Category      string          `gorm:"size:32"`
	MonthlySalary Money           `gorm:"check:monthly_salary >= 0"`
	DailyWage     Money
	Records       []MonthlyRecord `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
}

// MonthlyRecord is unique per employee and (year, month).
type MonthlyRecord struct {
	ID         uint      `gorm:"primaryKey"`
	EmployeeID string    `gorm:"size:32;uniqueIndex:idx_employee_period"`
	Year       int       `gorm:"uniqueIndex:idx_employee_period"`
	Month      int       `gorm:"uniqueIndex:idx_employee_period;check:month >= 1 AND month <= 12"`
	DaysWorked int
	Advances   Money
	Loans      Money
	Payments   []Payment `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

// Payment belongs to a MonthlyRecord; Position preserves append order.
type Payment struct {
	ID       uint `gorm:"primaryKey"`
	RecordID uint `gorm:"index"`
	Position int
	PaidAt   time.Time
	Amount   Money
}

// Registry is the single-row table holding the id sequence high-water mark.
type Registry struct {
	ID              uint `gorm:"primaryKey"`
	LastEmployeeSeq int
}

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{&Registry{}, &Employee{}, &MonthlyRecord{}, &Payment{}}
}
