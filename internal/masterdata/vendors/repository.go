package vendors

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toko-erp/toko-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, vendor Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, vendor Vendor) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	countQuery := `SELECT COUNT(*) FROM vendors WHERE 1=1`
	query := `SELECT id, code, name, address, email, phone, balance, created_at, updated_at FROM vendors WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		countQuery += cond
		query += cond
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	argCount++
	query += " LIMIT $" + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += " OFFSET $" + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Address, &v.Email, &v.Phone, &v.Balance, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, code, name, address, email, phone, balance, created_at, updated_at FROM vendors WHERE id = $1`, id)
	var v Vendor
	if err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Address, &v.Email, &v.Phone, &v.Balance, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, shared.ErrNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

func (r *repository) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO vendors (code, name, address, email, phone, balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
RETURNING id, balance, created_at, updated_at`,
		vendor.Code, vendor.Name, vendor.Address, vendor.Email, vendor.Phone)
	if err := row.Scan(&vendor.ID, &vendor.Balance, &vendor.CreatedAt, &vendor.UpdatedAt); err != nil {
		return Vendor{}, shared.MapPGError(err)
	}
	return vendor, nil
}

func (r *repository) Update(ctx context.Context, id int64, vendor Vendor) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET code=$1, name=$2, address=$3, email=$4, phone=$5, updated_at=NOW() WHERE id=$6`,
		vendor.Code, vendor.Name, vendor.Address, vendor.Email, vendor.Phone, id)
	if err != nil {
		return shared.MapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "code":
		return "code " + dir
	case "balance":
		return "balance " + dir
	default:
		return "created_at DESC"
	}
}
