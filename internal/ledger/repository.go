package ledger

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO ledger_entries (code, type, amount, ref_module, ref_id, description, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING id`,
		entry.Code, entry.Type, entry.Amount, entry.RefModule, entry.RefID, entry.Description, entry.OccurredAt).Scan(&id)
	return id, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	query := `SELECT id, code, type, amount, ref_module, ref_id, description, occurred_at, created_at
FROM ledger_entries WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Type != "" {
		argCount++
		query += ` AND type = $` + strconv.Itoa(argCount)
		args = append(args, filter.Type)
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filter.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Code, &e.Type, &e.Amount, &e.RefModule, &e.RefID, &e.Description, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals sums entries per type within the period.
func (r *Repository) Totals(ctx context.Context, filter ListFilter) (map[EntryType]decimal.Decimal, error) {
	query := `SELECT type, COALESCE(SUM(amount), 0) FROM ledger_entries WHERE 1=1`
	args := []any{}
	argCount := 0
	if !filter.From.IsZero() {
		argCount++
		query += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	query += ` GROUP BY type`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[EntryType]decimal.Decimal{}
	for rows.Next() {
		var t EntryType
		var amount decimal.Decimal
		if err := rows.Scan(&t, &amount); err != nil {
			return nil, err
		}
		totals[t] = amount
	}
	return totals, rows.Err()
}
