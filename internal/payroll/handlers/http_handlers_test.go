package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/gartstein/payroll/internal/payroll/report"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockPayrollController is a simple mock implementation of PayrollController.
type mockPayrollController struct {
	registerFunc func(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	getFunc      func(ctx context.Context, id string) (*models.Employee, error)
	listFunc     func(ctx context.Context) ([]models.Employee, error)
	updateFunc   func(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	deleteFunc   func(ctx context.Context, id string, confirmed bool) error
	recordFunc   func(ctx context.Context, id string, entry models.MonthEntry) (*models.MonthlyRecord, error)
	historyFunc  func(ctx context.Context, id string) ([]ledger.Statement, error)
	reportFunc   func(ctx context.Context, year, month int) (*report.Report, error)
}

func (m *mockPayrollController) RegisterEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	return m.registerFunc(ctx, employee)
}

func (m *mockPayrollController) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	return m.getFunc(ctx, id)
}

func (m *mockPayrollController) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	return m.listFunc(ctx)
}

func (m *mockPayrollController) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	return m.updateFunc(ctx, update)
}

func (m *mockPayrollController) DeleteEmployee(ctx context.Context, id string, confirmed bool) error {
	return m.deleteFunc(ctx, id, confirmed)
}

func (m *mockPayrollController) RecordMonth(ctx context.Context, id string, entry models.MonthEntry) (*models.MonthlyRecord, error) {
	return m.recordFunc(ctx, id, entry)
}

func (m *mockPayrollController) History(ctx context.Context, id string) ([]ledger.Statement, error) {
	return m.historyFunc(ctx, id)
}

func (m *mockPayrollController) GenerateReport(ctx context.Context, year, month int) (*report.Report, error) {
	return m.reportFunc(ctx, year, month)
}

func newTestMux(t *testing.T, ctrl PayrollController) *runtime.ServeMux {
	t.Helper()
	mux := runtime.NewServeMux()
	require.NoError(t, NewPayrollHandler(ctrl, zaptest.NewLogger(t)).Register(mux))
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sampleReport() *report.Report {
	emp := models.Employee{ID: "emp_1", Name: "Ana"}
	ledger.SetSalary(&emp, decimal.NewFromInt(1500))
	emp.MonthlyRecords = []models.MonthlyRecord{{
		Year: 2025, Month: 1, DaysWorked: 20,
		Advances: decimal.NewFromInt(100), Loans: decimal.Zero,
		Payments: []models.Payment{{Amount: decimal.NewFromInt(300)}},
	}}
	rep, _ := report.Generate([]models.Employee{emp}, 2025, 1)
	return rep
}

func TestPayrollHandler_RegisterEmployee(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got *models.Employee
		mux := newTestMux(t, &mockPayrollController{
			registerFunc: func(_ context.Context, employee *models.Employee) (*models.Employee, error) {
				got = employee
				created := *employee
				created.ID = "emp_1"
				ledger.SetSalary(&created, employee.MonthlySalary)
				return &created, nil
			},
		})

		rec := do(mux, http.MethodPost, "/v1/employees",
			`{"name":"Ana","email":"ana@x.pe","phone":"1","category":"Operario","monthly_salary":1500}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, models.Operario, got.Category)
		assert.True(t, got.MonthlySalary.Equal(decimal.NewFromInt(1500)))

		var emp models.Employee
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emp))
		assert.Equal(t, "emp_1", emp.ID)
		assert.True(t, emp.DailyWage.Equal(decimal.NewFromInt(50)))
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mux := newTestMux(t, &mockPayrollController{})
		rec := do(mux, http.MethodPost, "/v1/employees", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "InvalidArgument", decodeError(t, rec).Code)
	})

	t.Run("UnknownField", func(t *testing.T) {
		mux := newTestMux(t, &mockPayrollController{})
		rec := do(mux, http.MethodPost, "/v1/employees", `{"name":"Ana","salary":10}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ServiceValidation", func(t *testing.T) {
		mux := newTestMux(t, &mockPayrollController{
			registerFunc: func(context.Context, *models.Employee) (*models.Employee, error) {
				return nil, fmt.Errorf("%w: unknown category", e.ErrInvalidInput)
			},
		})
		rec := do(mux, http.MethodPost, "/v1/employees", `{"name":"Ana","category":"Jefe"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "unknown category")
	})
}

func TestPayrollHandler_ListAndGet(t *testing.T) {
	mux := newTestMux(t, &mockPayrollController{
		listFunc: func(context.Context) ([]models.Employee, error) {
			return []models.Employee{{ID: "emp_1"}, {ID: "emp_2"}}, nil
		},
		getFunc: func(_ context.Context, id string) (*models.Employee, error) {
			if id == "emp_1" {
				return &models.Employee{ID: id, Name: "Ana"}, nil
			}
			return nil, fmt.Errorf("%w: employee %s", e.ErrNotFound, id)
		},
	})

	rec := do(mux, http.MethodGet, "/v1/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list employeeList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Employees, 2)

	rec = do(mux, http.MethodGet, "/v1/employees/emp_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ana"`)

	rec = do(mux, http.MethodGet, "/v1/employees/emp_9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", decodeError(t, rec).Code)
}

func TestPayrollHandler_UpdateEmployee(t *testing.T) {
	var got *models.EmployeeUpdate
	mux := newTestMux(t, &mockPayrollController{
		updateFunc: func(_ context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
			got = update
			return &models.Employee{ID: update.ID, Name: *update.Name}, nil
		},
	})

	rec := do(mux, http.MethodPatch, "/v1/employees/emp_3", `{"name":"Luis","monthly_salary":"2400.50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "emp_3", got.ID)
	assert.Nil(t, got.Email)
	require.NotNil(t, got.MonthlySalary)
	assert.Equal(t, "2400.5", got.MonthlySalary.String())
}

func TestPayrollHandler_DeleteEmployee(t *testing.T) {
	var confirmedArg bool
	mux := newTestMux(t, &mockPayrollController{
		deleteFunc: func(_ context.Context, id string, confirmed bool) error {
			confirmedArg = confirmed
			if !confirmed {
				return fmt.Errorf("%w: deleting %s must be confirmed", e.ErrConfirmationRequired, id)
			}
			return nil
		},
	})

	rec := do(mux, http.MethodDelete, "/v1/employees/emp_1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FailedPrecondition", decodeError(t, rec).Code)
	assert.False(t, confirmedArg)

	rec = do(mux, http.MethodDelete, "/v1/employees/emp_1?confirm=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, confirmedArg)
}

func TestPayrollHandler_RecordMonth(t *testing.T) {
	var gotID string
	var gotEntry models.MonthEntry
	mux := newTestMux(t, &mockPayrollController{
		recordFunc: func(_ context.Context, id string, entry models.MonthEntry) (*models.MonthlyRecord, error) {
			gotID, gotEntry = id, entry
			return &models.MonthlyRecord{Year: entry.Year, Month: entry.Month, DaysWorked: entry.DaysWorked}, nil
		},
	})

	rec := do(mux, http.MethodPost, "/v1/employees/emp_2/months",
		`{"year":2025,"month":1,"days_worked":-2,"advances":100.5,"loans":0,"payment":"300"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "emp_2", gotID)
	assert.Equal(t, -2, gotEntry.DaysWorked)
	assert.Equal(t, "100.5", gotEntry.Advances.String())
	assert.Equal(t, "300", gotEntry.Payment.String())
}

func TestPayrollHandler_History(t *testing.T) {
	mux := newTestMux(t, &mockPayrollController{
		historyFunc: func(_ context.Context, id string) ([]ledger.Statement, error) {
			return []ledger.Statement{{Record: models.MonthlyRecord{Year: 2025, Month: 2}}}, nil
		},
	})

	rec := do(mux, http.MethodGet, "/v1/employees/emp_1/months", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "emp_1", resp.EmployeeID)
	require.Len(t, resp.Months, 1)
	assert.Equal(t, 2, resp.Months[0].Record.Month)
}

func TestPayrollHandler_GetReport(t *testing.T) {
	var gotYear, gotMonth int
	mux := newTestMux(t, &mockPayrollController{
		reportFunc: func(_ context.Context, year, month int) (*report.Report, error) {
			gotYear, gotMonth = year, month
			return sampleReport(), nil
		},
	})

	rec := do(mux, http.MethodGet, "/v1/reports/2025/1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2025, gotYear)
	assert.Equal(t, 1, gotMonth)

	var body struct {
		MonthSummary map[string]float64 `json:"monthSummary"`
		Rows         []map[string]any   `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1.0, body.MonthSummary["employees"])
	assert.Equal(t, 600.0, body.MonthSummary["pending"])
	require.Len(t, body.Rows, 1)

	rec = do(mux, http.MethodGet, "/v1/reports/2025/enero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayrollHandler_ExportReport(t *testing.T) {
	mux := newTestMux(t, &mockPayrollController{
		reportFunc: func(context.Context, int, int) (*report.Report, error) {
			return sampleReport(), nil
		},
	})

	t.Run("CSV", func(t *testing.T) {
		rec := do(mux, http.MethodGet, "/v1/reports/2025/1/export", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.FormatCSV.ContentType(), rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "reporte_2025_1.csv")

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, report.CSVHeader, records[0])
		assert.Equal(t, "600.00", records[1][8])
	})

	t.Run("PDF", func(t *testing.T) {
		rec := do(mux, http.MethodGet, "/v1/reports/2025/1/export?format=pdf", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		rec := do(mux, http.MethodGet, "/v1/reports/2025/1/export?format=xlsx", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPayrollHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantName string
	}{
		{"not found", e.ErrNotFound, http.StatusNotFound, "NotFound"},
		{"invalid input", e.ErrInvalidInput, http.StatusBadRequest, "InvalidArgument"},
		{"persistence", fmt.Errorf("%w: disk", e.ErrPersistence), http.StatusServiceUnavailable, "Unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, &mockPayrollController{
				listFunc: func(context.Context) ([]models.Employee, error) { return nil, tt.err },
			})
			rec := do(mux, http.MethodGet, "/v1/employees", "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantName, decodeError(t, rec).Code)
		})
	}
}
