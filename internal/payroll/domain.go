package payroll

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AttendanceStatus enumerates valid daily marks.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLeave   AttendanceStatus = "LEAVE"
)

// Employee carries the salary basis.
type Employee struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	Allowances decimal.Decimal `json:"allowances"`
	Deductions decimal.Decimal `json:"deductions"`
	IsActive   bool            `json:"is_active"`
}

// Attendance is one employee-day mark.
type Attendance struct {
	ID         int64            `json:"id"`
	EmployeeID int64            `json:"employee_id"`
	Day        time.Time        `json:"day"`
	Status     AttendanceStatus `json:"status"`
	Note       string           `json:"note"`
}

// Payslip is one employee's computed salary for a period.
type Payslip struct {
	ID          int64           `json:"id"`
	RunCode     string          `json:"run_code"`
	EmployeeID  int64           `json:"employee_id"`
	Period      string          `json:"period"`
	WorkDays    int             `json:"work_days"`
	PresentDays int             `json:"present_days"`
	BaseSalary  decimal.Decimal `json:"base_salary"`
	Allowances  decimal.Decimal `json:"allowances"`
	Deductions  decimal.Decimal `json:"deductions"`
	NetSalary   decimal.Decimal `json:"net_salary"`
	CreatedAt   time.Time       `json:"created_at"`
}

var (
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("payroll: invalid input")
	// ErrNotFound indicates a missing employee or payslip.
	ErrNotFound = errors.New("payroll: not found")
	// ErrDuplicateRun occurs when a period has already been run.
	ErrDuplicateRun = errors.New("payroll: period already processed")
)

// CalculateNetSalary prorates the base salary by attendance and applies
// allowances and deductions. The result never goes below zero.
func CalculateNetSalary(emp Employee, presentDays, workDays int) (decimal.Decimal, error) {
	if workDays <= 0 || presentDays < 0 || presentDays > workDays {
		return decimal.Decimal{}, ErrValidation
	}
	prorated := emp.BaseSalary.
		Mul(decimal.NewFromInt(int64(presentDays))).
		Div(decimal.NewFromInt(int64(workDays))).
		Round(2)
	net := prorated.Add(emp.Allowances).Sub(emp.Deductions)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return net, nil
}
