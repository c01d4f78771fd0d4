package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

type employeeRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Category      models.Category `json:"category"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

type updateRequest struct {
	Name          *string          `json:"name"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	MonthlySalary *decimal.Decimal `json:"monthly_salary"`
}

type monthRequest struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	DaysWorked int             `json:"days_worked"`
	Advances   decimal.Decimal `json:"advances"`
	Loans      decimal.Decimal `json:"loans"`
	Payment    decimal.Decimal `json:"payment"`
}

type employeeList struct {
	Employees []models.Employee `json:"employees"`
}

type historyResponse struct {
	EmployeeID string             `json:"employee_id"`
	Months     []ledger.Statement `json:"months"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toModel converts a registration request into an Employee model.
func (r employeeRequest) toModel() *models.Employee {
	return &models.Employee{
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		Category:      r.Category,
		MonthlySalary: r.MonthlySalary,
	}
}

// toUpdate converts an update request into an EmployeeUpdate for id.
func (r updateRequest) toUpdate(id string) *models.EmployeeUpdate {
	return &models.EmployeeUpdate{
		ID:            id,
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		MonthlySalary: r.MonthlySalary,
	}
}

func (r monthRequest) toEntry() models.MonthEntry {
	return models.MonthEntry{
		Year:       r.Year,
		Month:      r.Month,
		DaysWorked: r.DaysWorked,
		Advances:   r.Advances,
		Loans:      r.Loans,
		Payment:    r.Payment,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parsePeriod(params map[string]string) (int, int, error) {
	year, err := strconv.Atoi(params["year"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", params["year"])
	}
	month, err := strconv.Atoi(params["month"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q", params["month"])
	}
	return year, month, nil
}

func (h *PayrollHandler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		h.logger.Warn("Writing response failed", zap.Error(err))
	}
}

// writeError renders a gRPC status as a JSON error with the matching HTTP code.
func (h *PayrollHandler) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	h.writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), errorResponse{
		Code:    st.Code().String(),
		Message: st.Message(),
	})
}

// mapServiceError maps domain or gateway errors to appropriate gRPC status codes.
func (h *PayrollHandler) mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrConfirmationRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, e.ErrPersistence):
		h.logger.Error("Storage unavailable", zap.Error(err))
		return status.Error(codes.Unavailable, "storage unavailable")
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, fmt.Sprintf("internal server error: %v", err))
	}
}
