package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// legacyDocument is a data.json written by the original tool: numbers are
// plain JSON numbers and older records lack some fields.
const legacyDocument = `{
  "employees": [
    {
      "id": "emp_1",
      "name": "María Peña",
      "email": "maria@example.com",
      "phone": "",
      "category": "Operario",
      "monthly_salary": 1500.0,
      "monthly_daily_wage": 50.0,
      "monthly_work_records": [
        {
          "year": 2025,
          "month": 1,
          "days_worked": 20,
          "advances": 100.0,
          "loans": 0.0,
          "payments": [
            {"date": "2025-01-20T10:15:00.123456", "amount": 300.0}
          ]
        },
        {"year": 2025, "month": 2, "days_worked": 3}
      ]
    }
  ]
}`

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "data.json"), zaptest.NewLogger(t))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Employees)
	assert.Empty(t, doc.Employees)
}

func TestLoadLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))
	store := New(path, zaptest.NewLogger(t))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Employees, 1)

	emp := doc.Employees[0]
	assert.Equal(t, "María Peña", emp.Name)
	assert.True(t, emp.DailyWage.Equal(decimal.NewFromInt(50)))
	require.Len(t, emp.MonthlyRecords, 2)
	require.Len(t, emp.MonthlyRecords[0].Payments, 1)
	assert.True(t, emp.MonthlyRecords[0].Payments[0].Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, time.Date(2025, 1, 20, 10, 15, 0, 123456000, time.UTC), emp.MonthlyRecords[0].Payments[0].Date)
	assert.True(t, emp.MonthlyRecords[1].Advances.IsZero())
	assert.NotNil(t, emp.MonthlyRecords[1].Payments)
	assert.Empty(t, emp.MonthlyRecords[1].Payments)
}

func TestLoadCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path, zaptest.NewLogger(t)).Load(context.Background())
	assert.ErrorIs(t, err, e.ErrPersistence)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	store := New(path, zaptest.NewLogger(t))
	ctx := context.Background()

	doc := &models.Document{
		LastEmployeeSeq: 4,
		Employees: []models.Employee{{
			ID: "emp_4", Name: "Ñoño Güemes", Category: models.Administrativo,
			MonthlySalary: decimal.NewFromInt(1000), DailyWage: decimal.NewFromInt(1000).Div(decimal.NewFromInt(30)),
			MonthlyRecords: []models.MonthlyRecord{{
				Year: 2025, Month: 3, DaysWorked: 2,
				Advances: decimal.Zero, Loans: decimal.Zero,
				Payments: []models.Payment{{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(5)}},
			}},
		}},
	}
	require.NoError(t, store.Save(ctx, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Ñoño Güemes", "non-ASCII must be written verbatim")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.LastEmployeeSeq)
	require.Len(t, got.Employees, 1)
	assert.True(t, got.Employees[0].DailyWage.Equal(doc.Employees[0].DailyWage), "daily wage must keep full precision")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveWritesPlainNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := New(path, zaptest.NewLogger(t))

	doc := &models.Document{Employees: []models.Employee{{
		ID: "emp_1", Name: "Ana", Category: models.Operario,
		MonthlySalary: decimal.NewFromInt(1500), DailyWage: decimal.NewFromInt(50),
		MonthlyRecords: []models.MonthlyRecord{{
			Year: 2025, Month: 1, DaysWorked: 20,
			Advances: decimal.NewFromInt(100), Loans: decimal.Zero,
		}},
	}}}
	require.NoError(t, store.Save(context.Background(), doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"monthly_salary": 1500`)
	assert.Contains(t, body, `"monthly_daily_wage": 50`)
	assert.Contains(t, body, `"advances": 100`)
	assert.Contains(t, body, `"loans": 0`)
	assert.Contains(t, body, `"payments": []`)
	assert.NotContains(t, body, "null")
}

func TestSaveFailsOnMissingDirectory(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "missing", "data.json"), zaptest.NewLogger(t))
	err := store.Save(context.Background(), &models.Document{})
	assert.ErrorIs(t, err, e.ErrPersistence)
}
