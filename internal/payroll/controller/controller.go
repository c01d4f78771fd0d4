// Package controller implements the payroll service layer: the employee
// registry and the monthly ledger operations. Every operation loads the
// document from the gateway, validates, mutates and saves it back, then
// publishes the matching event.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/events"
	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/gartstein/payroll/internal/payroll/models"
	"github.com/gartstein/payroll/internal/payroll/report"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Gateway loads and saves the full payroll document. Load returns an empty
// registry when nothing has been saved yet.
type Gateway interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}

// PayrollService provides the registry, ledger and report operations.
// Mutations are serialized so concurrent load-modify-save cycles cannot
// overwrite each other.
type PayrollService struct {
	gateway  Gateway
	producer EventProducer
	logger   *zap.Logger
	mu       sync.RWMutex
	now      func() time.Time
}

// NewPayrollService constructs a PayrollService with a gateway,
// an event producer, and a logger.
func NewPayrollService(gateway Gateway, producer EventProducer, logger *zap.Logger) *PayrollService {
	return &PayrollService{
		gateway:  gateway,
		producer: producer,
		logger:   logger.Named("payroll_service"),
		now:      time.Now,
	}
}

func (s *PayrollService) publish(event events.Event) {
	go func() {
		s.producer.Produce(event)
	}()
}

func (s *PayrollService) load(ctx context.Context) (*models.Document, error) {
	doc, err := s.gateway.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load document", zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func (s *PayrollService) save(ctx context.Context, doc *models.Document) error {
	if err := s.gateway.Save(ctx, doc); err != nil {
		s.logger.Error("failed to save document", zap.Error(err))
		return err
	}
	return nil
}

// RegisterEmployee adds a new Employee after validating its category and
// salary, assigns the next emp_<n> id and derives the daily wage.
func (s *PayrollService) RegisterEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	if !employee.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", e.ErrInvalidInput, employee.Category)
	}
	if err := ledger.ValidateSalary(employee.MonthlySalary); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	created := models.Employee{
		ID:             ledger.NextID(doc),
		Name:           employee.Name,
		Email:          employee.Email,
		Phone:          employee.Phone,
		Category:       employee.Category,
		MonthlyRecords: []models.MonthlyRecord{},
	}
	ledger.SetSalary(&created, employee.MonthlySalary)
	doc.Employees = append(doc.Employees, created)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("employee registered", zap.String("employee_id", created.ID))
	s.publish(events.NewEvent(events.EmployeeRegistered, created.ID, nil))
	return &created, nil
}

// GetEmployee retrieves an Employee by exact id.
func (s *PayrollService) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	emp := doc.FindEmployee(id)
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", e.ErrNotFound, id)
	}
	return emp, nil
}

// ListEmployees returns every employee in registration order.
func (s *PayrollService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Employees, nil
}

// UpdateEmployee edits the basic info of an Employee. A new salary
// recomputes the daily wage.
func (s *PayrollService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	if update.ID == "" {
		return nil, fmt.Errorf("%w: invalid employee ID", e.ErrInvalidInput)
	}
	if update.MonthlySalary != nil {
		if err := ledger.ValidateSalary(*update.MonthlySalary); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	emp := doc.FindEmployee(update.ID)
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", e.ErrNotFound, update.ID)
	}

	if update.Name != nil {
		emp.Name = *update.Name
	}
	if update.Email != nil {
		emp.Email = *update.Email
	}
	if update.Phone != nil {
		emp.Phone = *update.Phone
	}
	if update.MonthlySalary != nil {
		ledger.SetSalary(emp, *update.MonthlySalary)
	}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	updated := *emp
	s.publish(events.NewEvent(events.EmployeeUpdated, updated.ID, nil))
	return &updated, nil
}

// DeleteEmployee permanently removes an Employee and every monthly record it
// owns. The caller must pass confirmed=true.
func (s *PayrollService) DeleteEmployee(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: deleting %s must be confirmed", e.ErrConfirmationRequired, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if doc.FindEmployee(id) == nil {
		return fmt.Errorf("%w: employee %s", e.ErrNotFound, id)
	}

	// keep the sequence past the removed id
	doc.LastEmployeeSeq = ledger.HighestSeq(doc)

	kept := doc.Employees[:0:0]
	for _, emp := range doc.Employees {
		if emp.ID != id {
			kept = append(kept, emp)
		}
	}
	doc.Employees = kept

	if err := s.save(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("employee deleted", zap.String("employee_id", id))
	s.publish(events.NewEvent(events.EmployeeDeleted, id, nil))
	return nil
}

// RecordMonth merges one monthly entry into the employee's record for the
// entry's (year, month), creating the record on first use.
func (s *PayrollService) RecordMonth(ctx context.Context, id string, entry models.MonthEntry) (*models.MonthlyRecord, error) {
	if err := ledger.ValidateEntry(entry); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	emp := doc.FindEmployee(id)
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", e.ErrNotFound, id)
	}

	rec, err := ledger.RecordMonth(emp, entry, s.now())
	if err != nil {
		return nil, err
	}
	saved := *rec

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("month recorded",
		zap.String("employee_id", id),
		zap.Int("year", entry.Year),
		zap.Int("month", entry.Month),
	)
	s.publish(events.NewEvent(events.MonthRecorded, id, &events.Period{Year: entry.Year, Month: entry.Month}))
	return &saved, nil
}

// History returns the employee's records, newest first, each with its balance.
func (s *PayrollService) History(ctx context.Context, id string) ([]ledger.Statement, error) {
	emp, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	return ledger.Statements(*emp), nil
}

// GenerateReport aggregates every employee's record for (year, month).
func (s *PayrollService) GenerateReport(ctx context.Context, year, month int) (*report.Report, error) {
	if err := ledger.ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	employees, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return report.Generate(employees, year, month)
}
