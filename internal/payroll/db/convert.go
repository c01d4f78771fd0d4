package db

import (
	rows "github.com/gartstein/payroll/internal/payroll/db/models"
	"github.com/gartstein/payroll/internal/payroll/models"
)

func fromDocument(doc *models.Document) []rows.Employee {
	out := make([]rows.Employee, 0, len(doc.Employees))
	for i, emp := range doc.Employees {
		row := rows.Employee{
			ID:            emp.ID,
			Position:      i,
			Name:          emp.Name,
			Email:         emp.Email,
			Phone:         emp.Phone,
			Category:      string(emp.Category),
			MonthlySalary: rows.NewMoney(emp.MonthlySalary),
			DailyWage:     rows.NewMoney(emp.DailyWage),
		}
		for _, rec := range emp.MonthlyRecords {
			recRow := rows.MonthlyRecord{
				EmployeeID: emp.ID,
				Year:       rec.Year,
				Month:      rec.Month,
				DaysWorked: rec.DaysWorked,
				Advances:   rows.NewMoney(rec.Advances),
				Loans:      rows.NewMoney(rec.Loans),
			}
			for j, p := range rec.Payments {
				recRow.Payments = append(recRow.Payments, rows.Payment{
					Position: j,
					PaidAt:   p.Date,
					Amount:   rows.NewMoney(p.Amount),
				})
			}
			row.Records = append(row.Records, recRow)
		}
		out = append(out, row)
	}
	return out
}

func toDocument(employees []rows.Employee, registry rows.Registry) *models.Document {
	doc := &models.Document{
		Employees:       make([]models.Employee, 0, len(employees)),
		LastEmployeeSeq: registry.LastEmployeeSeq,
	}
	for _, row := range employees {
		emp := models.Employee{
			ID:             row.ID,
			Name:           row.Name,
			Email:          row.Email,
			Phone:          row.Phone,
			Category:       models.Category(row.Category),
			MonthlySalary:  row.MonthlySalary.Decimal,
			DailyWage:      row.DailyWage.Decimal,
			MonthlyRecords: make([]models.MonthlyRecord, 0, len(row.Records)),
		}
		for _, recRow := range row.Records {
			rec := models.MonthlyRecord{
				Year:       recRow.Year,
				Month:      recRow.Month,
				DaysWorked: recRow.DaysWorked,
				Advances:   recRow.Advances.Decimal,
				Loans:      recRow.Loans.Decimal,
				Payments:   make([]models.Payment, 0, len(recRow.Payments)),
			}
			for _, p := range recRow.Payments {
				rec.Payments = append(rec.Payments, models.Payment{Date: p.PaidAt, Amount: p.Amount.Decimal})
			}
			emp.MonthlyRecords = append(emp.MonthlyRecords, rec)
		}
		doc.Employees = append(doc.Employees, emp)
	}
	return doc
}
