package procurement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/inventory"
	"github.com/toko-erp/toko-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction.
//
// TransitionStatus is a compare-and-set: it moves the order to the target
// status only while the current status is one of from, and reports whether a
// row was updated. A false return means another caller moved the order first.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOLine(ctx context.Context, line POLine) error
	TransitionStatus(ctx context.Context, poID int64, from []POStatus, to POStatus) (bool, error)
	SetApproval(ctx context.Context, poID, actorID int64, at time.Time) error
	SetReceipt(ctx context.Context, poID int64, receivedTotal decimal.Decimal, billRef string, receivedBy int64, at time.Time) error
	SetLineReceipt(ctx context.Context, lineID, qty int64, price decimal.Decimal, warehouseID int64) error
	AddStock(ctx context.Context, warehouseID, productID, qty int64, unitCost decimal.Decimal, code, note string, actorID int64) error
	AddVendorBalance(ctx context.Context, vendorID int64, amount decimal.Decimal) error
	SettleVendorBalance(ctx context.Context, vendorID int64, amount decimal.Decimal) (bool, error)
	VendorExists(ctx context.Context, vendorID int64) (bool, error)
	CreatePayment(ctx context.Context, payment VendorPayment) (int64, error)
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

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, vendor_id, status, total_amount, received_total, note, bill_ref, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $5, '', $6, NOW(), NOW())
RETURNING id`,
		po.Number, po.VendorID, po.Status, po.TotalAmount, po.Note, po.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPOLine(ctx context.Context, line POLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_lines (po_id, product_id, warehouse_id, ordered_qty, received_qty, unit_price, received_price)
VALUES ($1, $2, 0, $3, 0, $4, 0)`,
		line.POID, line.ProductID, line.OrderedQty, line.UnitPrice)
	return err
}

func (t *txRepo) TransitionStatus(ctx context.Context, poID int64, from []POStatus, to POStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW()
WHERE id = $2 AND status = ANY($3)`, to, poID, statuses)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) SetApproval(ctx context.Context, poID, actorID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by = $1, approved_at = $2, updated_at = NOW() WHERE id = $3`,
		actorID, at, poID)
	return err
}

func (t *txRepo) SetReceipt(ctx context.Context, poID int64, receivedTotal decimal.Decimal, billRef string, receivedBy int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET received_total = $1, bill_ref = $2, received_by = $3, received_at = $4, updated_at = NOW() WHERE id = $5`,
		receivedTotal, billRef, receivedBy, at, poID)
	return err
}

func (t *txRepo) SetLineReceipt(ctx context.Context, lineID, qty int64, price decimal.Decimal, warehouseID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_order_lines SET received_qty = $1, received_price = $2, warehouse_id = $3 WHERE id = $4`,
		qty, price, warehouseID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStock credits the received units through the inventory tx helper, so
// the moving-average blend is the same one adjustments use.
func (t *txRepo) AddStock(ctx context.Context, warehouseID, productID, qty int64, unitCost decimal.Decimal, code, note string, actorID int64) error {
	return inventory.ApplyInbound(ctx, t.tx, inventory.StockTxInput{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Qty:         qty,
		UnitCost:    unitCost,
		Code:        code,
		RefModule:   "PROCUREMENT",
		Note:        note,
		ActorID:     actorID,
	})
}

func (t *txRepo) AddVendorBalance(ctx context.Context, vendorID int64, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE vendors SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, amount, vendorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SettleVendorBalance decrements the payable balance only when it covers the
// amount, so the balance can never go negative.
func (t *txRepo) SettleVendorBalance(ctx context.Context, vendorID int64, amount decimal.Decimal) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE vendors SET balance = balance - $1, updated_at = NOW()
WHERE id = $2 AND balance >= $1`, amount, vendorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) VendorExists(ctx context.Context, vendorID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, vendorID).Scan(&exists)
	return exists, err
}

func (t *txRepo) CreatePayment(ctx context.Context, payment VendorPayment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO vendor_payments (number, vendor_id, amount, note, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id`,
		payment.Number, payment.VendorID, payment.Amount, payment.Note, payment.CreatedBy).Scan(&id)
	return id, err
}

const poColumns = `id, number, vendor_id, status, total_amount, received_total, note, bill_ref, created_by, approved_by, approved_at, received_by, received_at, created_at, updated_at`

// GetPO returns the purchase order and its lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POLine, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, po_id, product_id, warehouse_id, ordered_qty, received_qty, unit_price, received_price
FROM purchase_order_lines WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()

	var lines []POLine
	for rows.Next() {
		var l POLine
		if err := rows.Scan(&l.ID, &l.POID, &l.ProductID, &l.WarehouseID, &l.OrderedQty, &l.ReceivedQty, &l.UnitPrice, &l.ReceivedPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		lines = append(lines, l)
	}
	return po, lines, rows.Err()
}

// List returns purchase orders matching the filter plus a total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error) {
	countQuery := `SELECT COUNT(*) FROM purchase_orders WHERE 1=1`
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.VendorID > 0 {
		argCount++
		cond := ` AND vendor_id = $` + strconv.Itoa(argCount)
		countQuery += cond
		query += cond
		args = append(args, filter.VendorID)
	}
	if filter.Status != "" {
		argCount++
		cond := ` AND status = $` + strconv.Itoa(argCount)
		countQuery += cond
		query += cond
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filter.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, po)
	}
	return items, total, rows.Err()
}

// ListPayments returns settlements for one vendor, newest first.
func (r *Repository) ListPayments(ctx context.Context, vendorID int64, limit int) ([]VendorPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, vendor_id, amount, note, created_by, created_at
FROM vendor_payments WHERE vendor_id = $1 ORDER BY created_at DESC LIMIT $2`, vendorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []VendorPayment
	for rows.Next() {
		var p VendorPayment
		if err := rows.Scan(&p.ID, &p.Number, &p.VendorID, &p.Amount, &p.Note, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var approvedBy, receivedBy *int64
	err := row.Scan(&po.ID, &po.Number, &po.VendorID, &po.Status, &po.TotalAmount, &po.ReceivedTotal,
		&po.Note, &po.BillRef, &po.CreatedBy, &approvedBy, &po.ApprovedAt, &receivedBy, &po.ReceivedAt, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	if approvedBy != nil {
		po.ApprovedBy = *approvedBy
	}
	if receivedBy != nil {
		po.ReceivedBy = *receivedBy
	}
	return po, nil
}
