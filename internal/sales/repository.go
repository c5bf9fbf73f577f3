package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/inventory"
	"github.com/toko-erp/toko-erp/internal/platform/db"
)

// Repository persists sales data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the writes of one checkout.
//
// DecrementStock and RedeemPoints are guarded updates: they only apply while
// the balance covers the decrement, and report whether a row changed.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleLine(ctx context.Context, line SaleLine) error
	DecrementStock(ctx context.Context, warehouseID, productID, qty int64, code string, actorID int64) (bool, error)
	ReturnStock(ctx context.Context, warehouseID, productID, qty int64, code string, actorID int64) error
	MarkVoided(ctx context.Context, saleID int64) (bool, error)
	AccruePoints(ctx context.Context, customerID, points int64) error
	RedeemPoints(ctx context.Context, customerID, points int64) (bool, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var customerID any
	if sale.CustomerID > 0 {
		customerID = sale.CustomerID
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (number, status, customer_id, warehouse_id, subtotal, discount, total, paid, change, points_earned, points_redeemed, cashier_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
RETURNING id`,
		sale.Number, sale.Status, customerID, sale.WarehouseID, sale.Subtotal, sale.Discount, sale.Total,
		sale.Paid, sale.Change, sale.PointsEarned, sale.PointsRedeemed, sale.CashierID).Scan(&id)
	return id, err
}

func (t *txRepo) InsertSaleLine(ctx context.Context, line SaleLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, product_id, qty, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5)`,
		line.SaleID, line.ProductID, line.Qty, line.UnitPrice, line.LineTotal)
	return err
}

func (t *txRepo) DecrementStock(ctx context.Context, warehouseID, productID, qty int64, code string, actorID int64) (bool, error) {
	err := inventory.ApplyOutbound(ctx, t.tx, inventory.StockTxInput{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Qty:         qty,
		Code:        code,
		RefModule:   "SALES",
		ActorID:     actorID,
	})
	if errors.Is(err, inventory.ErrNegativeStock) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *txRepo) ReturnStock(ctx context.Context, warehouseID, productID, qty int64, code string, actorID int64) error {
	err := inventory.ApplyReturn(ctx, t.tx, inventory.StockTxInput{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Qty:         qty,
		Code:        code,
		RefModule:   "SALES",
		Note:        "void return",
		ActorID:     actorID,
	})
	if errors.Is(err, inventory.ErrBalanceNotFound) {
		return ErrNotFound
	}
	return err
}

// MarkVoided flips a completed sale to voided. Reports false when the sale
// was already voided, so only one of two concurrent voids wins.
func (t *txRepo) MarkVoided(ctx context.Context, saleID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET status = $1 WHERE id = $2 AND status = $3`,
		SaleStatusVoided, saleID, SaleStatusCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) AccruePoints(ctx context.Context, customerID, points int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE customers SET points = points + $1, updated_at = NOW() WHERE id = $2`, points, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) RedeemPoints(ctx context.Context, customerID, points int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE customers SET points = points - $1, updated_at = NOW()
WHERE id = $2 AND points >= $1`, points, customerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetSale returns a sale with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, []SaleLine, error) {
	var sale Sale
	var customerID *int64
	err := r.pool.QueryRow(ctx, `SELECT id, number, status, customer_id, warehouse_id, subtotal, discount, total, paid, change, points_earned, points_redeemed, cashier_id, created_at
FROM sales WHERE id = $1`, id).
		Scan(&sale.ID, &sale.Number, &sale.Status, &customerID, &sale.WarehouseID, &sale.Subtotal, &sale.Discount,
			&sale.Total, &sale.Paid, &sale.Change, &sale.PointsEarned, &sale.PointsRedeemed, &sale.CashierID, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, nil, ErrNotFound
		}
		return Sale{}, nil, err
	}
	if customerID != nil {
		sale.CustomerID = *customerID
	}

	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, qty, unit_price, line_total
FROM sale_lines WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, nil, err
	}
	defer rows.Close()

	var lines []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.Qty, &l.UnitPrice, &l.LineTotal); err != nil {
			return Sale{}, nil, err
		}
		lines = append(lines, l)
	}
	return sale, lines, rows.Err()
}

// DailySummary aggregates sales for one calendar day.
func (r *Repository) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	summary := DailySummary{Date: start, GrossRevenue: decimal.Zero, Discounts: decimal.Zero, NetRevenue: decimal.Zero}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(discount), 0), COALESCE(SUM(total), 0)
FROM sales WHERE status = $3 AND created_at >= $1 AND created_at < $2`, start, end, SaleStatusCompleted).
		Scan(&summary.SaleCount, &summary.GrossRevenue, &summary.Discounts, &summary.NetRevenue)
	return summary, err
}
