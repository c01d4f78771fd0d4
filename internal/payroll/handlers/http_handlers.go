package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/gartstein/payroll/internal/payroll/report"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PayrollController defines the business logic interface
// that the HTTP handlers will invoke.
type PayrollController interface {
	RegisterEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, id string, confirmed bool) error
	RecordMonth(ctx context.Context, id string, entry models.MonthEntry) (*models.MonthlyRecord, error)
	History(ctx context.Context, id string) ([]ledger.Statement, error)
	GenerateReport(ctx context.Context, year, month int) (*report.Report, error)
}

// PayrollHandler maps HTTP requests onto a PayrollController.
type PayrollHandler struct {
	service PayrollController
	logger  *zap.Logger
}

// NewPayrollHandler constructs a new PayrollHandler with the given service and logger.
func NewPayrollHandler(service PayrollController, logger *zap.Logger) *PayrollHandler {
	return &PayrollHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// Register mounts every payroll route on mux.
func (h *PayrollHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/employees", h.RegisterEmployee},
		{http.MethodGet, "/v1/employees", h.ListEmployees},
		{http.MethodGet, "/v1/employees/{id}", h.GetEmployee},
		{http.MethodPatch, "/v1/employees/{id}", h.UpdateEmployee},
		{http.MethodDelete, "/v1/employees/{id}", h.DeleteEmployee},
		{http.MethodPost, "/v1/employees/{id}/months", h.RecordMonth},
		{http.MethodGet, "/v1/employees/{id}/months", h.History},
		{http.MethodGet, "/v1/reports/{year}/{month}", h.GetReport},
		{http.MethodGet, "/v1/reports/{year}/{month}/export", h.ExportReport},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEmployee creates an employee from the request body.
func (h *PayrollHandler) RegisterEmployee(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req employeeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	created, err := h.service.RegisterEmployee(r.Context(), req.toModel())
	if err != nil {
		h.logger.Error("Register employee failed", zap.Error(err))
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListEmployees returns the whole registry.
func (h *PayrollHandler) ListEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, employeeList{Employees: employees})
}

// GetEmployee fetches one employee by id.
func (h *PayrollHandler) GetEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	emp, err := h.service.GetEmployee(r.Context(), params["id"])
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, emp)
}

// UpdateEmployee applies a partial basic-info update.
func (h *PayrollHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	updated, err := h.service.UpdateEmployee(r.Context(), req.toUpdate(params["id"]))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteEmployee removes an employee; the request must carry confirm=true.
func (h *PayrollHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.service.DeleteEmployee(r.Context(), params["id"], confirmed); err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordMonth saves one monthly entry for an employee.
func (h *PayrollHandler) RecordMonth(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req monthRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	rec, err := h.service.RecordMonth(r.Context(), params["id"], req.toEntry())
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// History lists an employee's months with balances, newest first.
func (h *PayrollHandler) History(w http.ResponseWriter, r *http.Request, params map[string]string) {
	statements, err := h.service.History(r.Context(), params["id"])
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{EmployeeID: params["id"], Months: statements})
}

func (h *PayrollHandler) report(w http.ResponseWriter, r *http.Request, params map[string]string) (*report.Report, bool) {
	year, month, err := parsePeriod(params)
	if err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return nil, false
	}
	rep, err := h.service.GenerateReport(r.Context(), year, month)
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return nil, false
	}
	return rep, true
}

// GetReport returns the structured report {monthSummary, rows}.
func (h *PayrollHandler) GetReport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rep, ok := h.report(w, r, params)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report.ToStructured(rep))
}

// ExportReport downloads the report as csv (default), json or pdf.
func (h *PayrollHandler) ExportReport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(report.FormatCSV)
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	rep, ok := h.report(w, r, params)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		h.logger.Error("Report export failed", zap.Error(err), zap.String("format", name))
		h.writeError(w, status.Error(codes.Internal, "report export failed"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+rep.FileName(string(format))+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Writing export response failed", zap.Error(err))
	}
}
