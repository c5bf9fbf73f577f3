package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toko-erp/toko-erp/internal/platform/db"
)

// Repository persists payroll data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the writes of one payroll run.
type TxRepository interface {
	InsertPayslip(ctx context.Context, slip Payslip) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) InsertPayslip(ctx context.Context, slip Payslip) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payslips (run_code, employee_id, period, work_days, present_days, base_salary, allowances, deductions, net_salary, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
RETURNING id`,
		slip.RunCode, slip.EmployeeID, slip.Period, slip.WorkDays, slip.PresentDays,
		slip.BaseSalary, slip.Allowances, slip.Deductions, slip.NetSalary).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateRun
		}
		return 0, err
	}
	return id, nil
}

func (r *Repository) ListActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, base_salary, allowances, deductions, is_active
FROM employees WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.BaseSalary, &e.Allowances, &e.Deductions, &e.IsActive); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *Repository) MarkAttendance(ctx context.Context, att Attendance) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO attendance (employee_id, day, status, note)
VALUES ($1, $2, $3, $4)
ON CONFLICT (employee_id, day) DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note`,
		att.EmployeeID, att.Day, att.Status, att.Note)
	return err
}

// CountPresentDays counts PRESENT marks within [from, to).
func (r *Repository) CountPresentDays(ctx context.Context, employeeID int64, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance
WHERE employee_id = $1 AND day >= $2 AND day < $3 AND status = 'PRESENT'`,
		employeeID, from, to).Scan(&count)
	return count, err
}

func (r *Repository) ListPayslips(ctx context.Context, period string) ([]Payslip, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, run_code, employee_id, period, work_days, present_days, base_salary, allowances, deductions, net_salary, created_at
FROM payslips WHERE period = $1 ORDER BY employee_id`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Payslip
	for rows.Next() {
		var p Payslip
		if err := rows.Scan(&p.ID, &p.RunCode, &p.EmployeeID, &p.Period, &p.WorkDays, &p.PresentDays,
			&p.BaseSalary, &p.Allowances, &p.Deductions, &p.NetSalary, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
