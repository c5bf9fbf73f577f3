package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/platform/db"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must run inside one transaction.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	var b Balance
	err := t.tx.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM stock_balances WHERE warehouse_id = $1 AND product_id = $2 FOR UPDATE`, warehouseID, productID).
		Scan(&b.WarehouseID, &b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func (t *txRepo) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_balances (warehouse_id, product_id, qty, avg_cost, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (warehouse_id, product_id)
DO UPDATE SET qty = EXCLUDED.qty, avg_cost = EXCLUDED.avg_cost, updated_at = NOW()`,
		balance.WarehouseID, balance.ProductID, balance.Qty, balance.AvgCost)
	return err
}

func (t *txRepo) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (code, type, warehouse_id, product_id, qty, unit_cost, ref_module, ref_id, note, actor_id, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`,
		movement.Code, movement.Type, movement.WarehouseID, movement.ProductID, movement.Qty,
		movement.UnitCost, movement.RefModule, movement.RefID, movement.Note, movement.ActorID, movement.PostedAt).Scan(&id)
	return id, err
}

// GetBalance reads the current balance outside a transaction.
func (r *Repository) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	var b Balance
	err := r.pool.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM stock_balances WHERE warehouse_id = $1 AND product_id = $2`, warehouseID, productID).
		Scan(&b.WarehouseID, &b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// ListBalances returns balances, optionally scoped to one warehouse.
func (r *Repository) ListBalances(ctx context.Context, warehouseID int64, limit, offset int) ([]Balance, error) {
	query := `SELECT warehouse_id, product_id, qty, avg_cost, updated_at FROM stock_balances WHERE 1=1`
	args := []any{}
	argCount := 0
	if warehouseID > 0 {
		argCount++
		query += ` AND warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, warehouseID)
	}
	query += ` ORDER BY warehouse_id, product_id`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.WarehouseID, &b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// ListLowStock returns balances at or below the threshold.
func (r *Repository) ListLowStock(ctx context.Context, threshold int64) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM stock_balances WHERE qty <= $1 ORDER BY qty ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.WarehouseID, &b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// GetStockCard replays movements into a running-balance card.
func (r *Repository) GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error) {
	query := `SELECT code, type, posted_at, qty, unit_cost, note
FROM stock_movements WHERE warehouse_id = $1 AND product_id = $2`
	args := []any{filter.WarehouseID, filter.ProductID}
	argCount := 2
	if !filter.From.IsZero() {
		argCount++
		query += ` AND posted_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND posted_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	query += ` ORDER BY posted_at ASC, id ASC`
	if filter.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []StockCardEntry
	var running int64
	runningCost := decimal.Zero
	for rows.Next() {
		var entry StockCardEntry
		var qty int64
		if err := rows.Scan(&entry.Code, &entry.Type, &entry.PostedAt, &qty, &entry.UnitCost, &entry.Note); err != nil {
			return nil, err
		}
		if qty >= 0 {
			entry.QtyIn = qty
			runningCost = runningCost.Add(entry.UnitCost.Mul(decimal.NewFromInt(qty)))
		} else {
			entry.QtyOut = -qty
			if running > 0 {
				avg := runningCost.Div(decimal.NewFromInt(running))
				runningCost = runningCost.Sub(avg.Mul(decimal.NewFromInt(-qty)))
			}
		}
		running += qty
		if running > 0 {
			entry.AvgCost = runningCost.Div(decimal.NewFromInt(running)).Round(4)
		} else {
			runningCost = decimal.Zero
		}
		entry.BalanceQty = running
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
