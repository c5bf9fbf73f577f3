package payroll

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	nextID    int64
	employees []Employee
	present   map[int64]int
	payslips  []Payslip
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertPayslip(_ context.Context, slip Payslip) (int64, error) {
	for _, existing := range m.payslips {
		if existing.EmployeeID == slip.EmployeeID && existing.Period == slip.Period {
			return 0, ErrDuplicateRun
		}
	}
	m.nextID++
	slip.ID = m.nextID
	m.payslips = append(m.payslips, slip)
	return slip.ID, nil
}

func (m *memoryRepo) ListActiveEmployees(_ context.Context) ([]Employee, error) {
	return m.employees, nil
}

func (m *memoryRepo) MarkAttendance(_ context.Context, _ Attendance) error {
	return nil
}

func (m *memoryRepo) CountPresentDays(_ context.Context, employeeID int64, _, _ time.Time) (int, error) {
	return m.present[employeeID], nil
}

func (m *memoryRepo) ListPayslips(_ context.Context, period string) ([]Payslip, error) {
	var items []Payslip
	for _, p := range m.payslips {
		if p.Period == period {
			items = append(items, p)
		}
	}
	return items, nil
}

type stubLedger struct {
	posted decimal.Decimal
	calls  int
	err    error
}

func (s *stubLedger) PostPayrollExpense(_ context.Context, _ string, total decimal.Decimal, _ time.Time) error {
	s.posted = total
	s.calls++
	return s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCalculateNetSalary(t *testing.T) {
	emp := Employee{
		BaseSalary: decimal.NewFromInt(4000000),
		Allowances: decimal.NewFromInt(500000),
		Deductions: decimal.NewFromInt(200000),
	}

	net, err := CalculateNetSalary(emp, 20, 22)
	require.NoError(t, err)
	// 4000000 * 20/22 + 500000 - 200000
	require.True(t, net.Equal(decimal.NewFromFloat(3936363.64)), "got %s", net)

	net, err = CalculateNetSalary(emp, 22, 22)
	require.NoError(t, err)
	require.True(t, net.Equal(decimal.NewFromInt(4300000)))

	_, err = CalculateNetSalary(emp, 23, 22)
	require.ErrorIs(t, err, ErrValidation)
	_, err = CalculateNetSalary(emp, 5, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestNetSalaryNeverNegative(t *testing.T) {
	emp := Employee{
		BaseSalary: decimal.NewFromInt(1000000),
		Deductions: decimal.NewFromInt(2000000),
	}
	net, err := CalculateNetSalary(emp, 10, 22)
	require.NoError(t, err)
	require.True(t, net.IsZero())
}

func TestRunMonthlyPostsLedgerExpense(t *testing.T) {
	repo := &memoryRepo{
		employees: []Employee{
			{ID: 1, Code: "EMP-001", BaseSalary: decimal.NewFromInt(2200000), IsActive: true},
			{ID: 2, Code: "EMP-002", BaseSalary: decimal.NewFromInt(3300000), IsActive: true},
		},
		present: map[int64]int{1: 22, 2: 11},
	}
	ledger := &stubLedger{}
	svc := NewService(repo, ledger, testLogger())

	result, err := svc.RunMonthly(context.Background(), "2026-08", 22)
	require.NoError(t, err)
	require.Len(t, result.Payslips, 2)
	// 2200000 full month + 3300000/2.
	require.True(t, result.Total.Equal(decimal.NewFromInt(3850000)), "got %s", result.Total)
	require.Equal(t, 1, ledger.calls)
	require.True(t, ledger.posted.Equal(result.Total))
}

func TestRunMonthlyRejectsDuplicatePeriod(t *testing.T) {
	repo := &memoryRepo{
		employees: []Employee{{ID: 1, BaseSalary: decimal.NewFromInt(1000000), IsActive: true}},
		present:   map[int64]int{1: 22},
	}
	svc := NewService(repo, nil, testLogger())

	_, err := svc.RunMonthly(context.Background(), "2026-08", 22)
	require.NoError(t, err)

	_, err = svc.RunMonthly(context.Background(), "2026-08", 22)
	require.ErrorIs(t, err, ErrDuplicateRun)
}

func TestRunMonthlyValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, testLogger())

	_, err := svc.RunMonthly(context.Background(), "bad-period", 22)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RunMonthly(context.Background(), "2026-08", 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRunMonthlySurvivesLedgerFailure(t *testing.T) {
	repo := &memoryRepo{
		employees: []Employee{{ID: 1, Code: "EMP-001", BaseSalary: decimal.NewFromInt(2200000), IsActive: true}},
		present:   map[int64]int{1: 22},
	}
	ledger := &stubLedger{err: context.DeadlineExceeded}
	svc := NewService(repo, ledger, testLogger())

	// Payslips are committed before the ledger posting; a posting failure
	// must not turn a completed run into an error.
	result, err := svc.RunMonthly(context.Background(), "2026-08", 22)
	require.NoError(t, err)
	require.Len(t, result.Payslips, 1)
	require.Equal(t, 1, ledger.calls)
}
