package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
	MarkAttendance(ctx context.Context, att Attendance) error
	CountPresentDays(ctx context.Context, employeeID int64, from, to time.Time) (int, error)
	ListPayslips(ctx context.Context, period string) ([]Payslip, error)
}

// LedgerPort posts the run's total expense.
type LedgerPort interface {
	PostPayrollExpense(ctx context.Context, runCode string, total decimal.Decimal, occurredAt time.Time) error
}

// Service runs attendance capture and monthly payroll.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, ledger LedgerPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, logger: logger}
}

// MarkAttendance records or corrects one employee-day mark.
func (s *Service) MarkAttendance(ctx context.Context, att Attendance) error {
	switch att.Status {
	case AttendancePresent, AttendanceAbsent, AttendanceLeave:
	default:
		return ErrValidation
	}
	if att.EmployeeID <= 0 || att.Day.IsZero() {
		return ErrValidation
	}
	att.Day = att.Day.Truncate(24 * time.Hour)
	return s.repo.MarkAttendance(ctx, att)
}

// RunResult summarises one payroll run.
type RunResult struct {
	RunCode  string          `json:"run_code"`
	Period   string          `json:"period"`
	Payslips []Payslip       `json:"payslips"`
	Total    decimal.Decimal `json:"total"`
}

// RunMonthly computes and persists a payslip for every active employee over
// the given month ("2006-01"), then posts the total as a ledger expense.
func (s *Service) RunMonthly(ctx context.Context, period string, workDays int) (RunResult, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil || workDays <= 0 || workDays > 31 {
		return RunResult{}, ErrValidation
	}
	end := start.AddDate(0, 1, 0)

	employees, err := s.repo.ListActiveEmployees(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if len(employees) == 0 {
		return RunResult{}, fmt.Errorf("%w: no active employees", ErrValidation)
	}

	runCode := fmt.Sprintf("PRN-%s", period)
	result := RunResult{RunCode: runCode, Period: period, Total: decimal.Zero}
	for _, emp := range employees {
		present, err := s.repo.CountPresentDays(ctx, emp.ID, start, end)
		if err != nil {
			return RunResult{}, err
		}
		if present > workDays {
			present = workDays
		}
		net, err := CalculateNetSalary(emp, present, workDays)
		if err != nil {
			return RunResult{}, err
		}
		result.Payslips = append(result.Payslips, Payslip{
			RunCode:     runCode,
			EmployeeID:  emp.ID,
			Period:      period,
			WorkDays:    workDays,
			PresentDays: present,
			BaseSalary:  emp.BaseSalary,
			Allowances:  emp.Allowances,
			Deductions:  emp.Deductions,
			NetSalary:   net,
		})
		result.Total = result.Total.Add(net)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i := range result.Payslips {
			id, err := tx.InsertPayslip(ctx, result.Payslips[i])
			if err != nil {
				return err
			}
			result.Payslips[i].ID = id
		}
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}

	if s.ledger != nil && result.Total.IsPositive() {
		// Payslips have committed; a ledger posting failure must not fail the
		// run or a retry would pay the month twice.
		if err := s.ledger.PostPayrollExpense(ctx, runCode, result.Total, time.Now().UTC()); err != nil {
			s.logger.Warn("ledger posting failed after payroll run", "run", runCode, slog.Any("error", err))
		}
	}
	s.logger.Info("payroll run completed", "period", period, "employees", len(result.Payslips), "total", result.Total)
	return result, nil
}

func (s *Service) ListPayslips(ctx context.Context, period string) ([]Payslip, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, ErrValidation
	}
	return s.repo.ListPayslips(ctx, period)
}
