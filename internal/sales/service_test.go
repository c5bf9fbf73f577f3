package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/toko-erp/toko-erp/internal/loyalty"
	"github.com/toko-erp/toko-erp/internal/masterdata/customers"
	"github.com/toko-erp/toko-erp/internal/masterdata/products"
)

type stockKey struct {
	warehouseID int64
	productID   int64
}

type memoryRepo struct {
	nextSaleID int64
	sales      map[int64]Sale
	lines      map[int64][]SaleLine
	stock      map[stockKey]int64
	points     map[int64]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextSaleID: 1,
		sales:      map[int64]Sale{},
		lines:      map[int64][]SaleLine{},
		stock:      map[stockKey]int64{},
		points:     map[int64]int64{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertSale(_ context.Context, sale Sale) (int64, error) {
	sale.ID = m.nextSaleID
	m.nextSaleID++
	m.sales[sale.ID] = sale
	return sale.ID, nil
}

func (m *memoryRepo) InsertSaleLine(_ context.Context, line SaleLine) error {
	m.lines[line.SaleID] = append(m.lines[line.SaleID], line)
	return nil
}

func (m *memoryRepo) DecrementStock(_ context.Context, warehouseID, productID, qty int64, _ string, _ int64) (bool, error) {
	key := stockKey{warehouseID, productID}
	if m.stock[key] < qty {
		return false, nil
	}
	m.stock[key] -= qty
	return true, nil
}

func (m *memoryRepo) ReturnStock(_ context.Context, warehouseID, productID, qty int64, _ string, _ int64) error {
	m.stock[stockKey{warehouseID, productID}] += qty
	return nil
}

func (m *memoryRepo) MarkVoided(_ context.Context, saleID int64) (bool, error) {
	sale, ok := m.sales[saleID]
	if !ok || sale.Status == SaleStatusVoided {
		return false, nil
	}
	sale.Status = SaleStatusVoided
	m.sales[saleID] = sale
	return true, nil
}

func (m *memoryRepo) AccruePoints(_ context.Context, customerID, points int64) error {
	m.points[customerID] += points
	return nil
}

func (m *memoryRepo) RedeemPoints(_ context.Context, customerID, points int64) (bool, error) {
	if m.points[customerID] < points {
		return false, nil
	}
	m.points[customerID] -= points
	return true, nil
}

func (m *memoryRepo) GetSale(_ context.Context, id int64) (Sale, []SaleLine, error) {
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, nil, ErrNotFound
	}
	return sale, m.lines[id], nil
}

func (m *memoryRepo) DailySummary(_ context.Context, day time.Time) (DailySummary, error) {
	return DailySummary{Date: day}, nil
}

type memoryCatalog struct {
	items map[int64]products.Product
}

func (c *memoryCatalog) Get(_ context.Context, id int64) (products.Product, error) {
	p, ok := c.items[id]
	if !ok {
		return products.Product{}, ErrNotFound
	}
	return p, nil
}

type memoryCustomers struct {
	repo *memoryRepo
}

func (c *memoryCustomers) Get(_ context.Context, id int64) (customers.Customer, error) {
	points, ok := c.repo.points[id]
	if !ok {
		return customers.Customer{}, ErrNotFound
	}
	return customers.Customer{ID: id, Points: points}, nil
}

func newCheckoutFixture(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	repo.stock[stockKey{1, 101}] = 10
	repo.stock[stockKey{1, 102}] = 3
	catalog := &memoryCatalog{items: map[int64]products.Product{
		101: {ID: 101, SalePrice: decimal.NewFromInt(15000)},
		102: {ID: 102, SalePrice: decimal.NewFromInt(40000)},
	}}
	cfg, err := loyalty.NewConfig(decimal.NewFromInt(10000), decimal.NewFromInt(100), 50)
	require.NoError(t, err)
	svc := NewService(repo, catalog, &memoryCustomers{repo: repo}, cfg, nil, nil, nil, nil)
	return svc, repo
}

func TestCheckoutPricesAndDecrementsStock(t *testing.T) {
	svc, repo := newCheckoutFixture(t)

	sale, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(100000),
		Lines: []CheckoutLineInput{
			{ProductID: 101, Qty: 2},
			{ProductID: 102, Qty: 1},
		},
	})
	require.NoError(t, err)

	// 2*15000 + 1*40000
	require.True(t, sale.Total.Equal(decimal.NewFromInt(70000)), "got %s", sale.Total)
	require.True(t, sale.Change.Equal(decimal.NewFromInt(30000)))
	require.EqualValues(t, 8, repo.stock[stockKey{1, 101}])
	require.EqualValues(t, 2, repo.stock[stockKey{1, 102}])
	require.Len(t, repo.lines[sale.ID], 2)
	// Anonymous sale earns no points.
	require.EqualValues(t, 0, sale.PointsEarned)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	svc, repo := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(500000),
		Lines:       []CheckoutLineInput{{ProductID: 102, Qty: 4}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.EqualValues(t, 3, repo.stock[stockKey{1, 102}])
}

func TestCheckoutRejectsUnderpayment(t *testing.T) {
	svc, _ := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(10000),
		Lines:       []CheckoutLineInput{{ProductID: 101, Qty: 1}},
	})
	require.ErrorIs(t, err, ErrUnderpaid)
}

func TestCheckoutAccruesAndRedeemsPoints(t *testing.T) {
	svc, repo := newCheckoutFixture(t)
	repo.points[5] = 200

	sale, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID:  1,
		CustomerID:   5,
		RedeemPoints: 100,
		Paid:         decimal.NewFromInt(100000),
		Lines:        []CheckoutLineInput{{ProductID: 102, Qty: 2}},
	})
	require.NoError(t, err)

	// Subtotal 80000 minus 100 points * 100 value.
	require.True(t, sale.Discount.Equal(decimal.NewFromInt(10000)))
	require.True(t, sale.Total.Equal(decimal.NewFromInt(70000)))
	require.EqualValues(t, 7, sale.PointsEarned)
	// 200 held - 100 redeemed + 7 earned.
	require.EqualValues(t, 107, repo.points[5])
}

func TestCheckoutRedeemBelowMinimum(t *testing.T) {
	svc, repo := newCheckoutFixture(t)
	repo.points[5] = 200

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID:  1,
		CustomerID:   5,
		RedeemPoints: 10,
		Paid:         decimal.NewFromInt(100000),
		Lines:        []CheckoutLineInput{{ProductID: 101, Qty: 1}},
	})
	require.ErrorIs(t, err, loyalty.ErrBelowMinimum)
}

func TestVoidRestoresStockAndPoints(t *testing.T) {
	svc, repo := newCheckoutFixture(t)
	repo.points[5] = 200

	sale, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID:  1,
		CustomerID:   5,
		RedeemPoints: 100,
		Paid:         decimal.NewFromInt(100000),
		Lines:        []CheckoutLineInput{{ProductID: 102, Qty: 2}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.stock[stockKey{1, 102}])

	voided, err := svc.Void(context.Background(), sale.ID, 9)
	require.NoError(t, err)
	require.Equal(t, SaleStatusVoided, voided.Status)
	require.EqualValues(t, 3, repo.stock[stockKey{1, 102}])
	// Earned points taken back, redeemed points returned.
	require.EqualValues(t, 200, repo.points[5])
}

func TestVoidTwiceConflicts(t *testing.T) {
	svc, repo := newCheckoutFixture(t)

	sale, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(100000),
		Lines:       []CheckoutLineInput{{ProductID: 101, Qty: 2}},
	})
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), sale.ID, 9)
	require.NoError(t, err)
	_, err = svc.Void(context.Background(), sale.ID, 9)
	require.ErrorIs(t, err, ErrAlreadyVoided)
	require.EqualValues(t, 10, repo.stock[stockKey{1, 101}])
}

func TestVoidUnknownSale(t *testing.T) {
	svc, _ := newCheckoutFixture(t)

	_, err := svc.Void(context.Background(), 42, 9)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	svc, _ := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(100000),
		Lines:       []CheckoutLineInput{{ProductID: 999, Qty: 1}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

type failingIntegration struct {
	err error
}

func (f *failingIntegration) HandleSalePosted(context.Context, SalePostedEvent) error {
	return f.err
}

func (f *failingIntegration) HandleSaleVoided(context.Context, SaleVoidedEvent) error {
	return f.err
}

func TestLedgerFailureDoesNotFailCheckoutOrVoid(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[stockKey{1, 101}] = 10
	catalog := &memoryCatalog{items: map[int64]products.Product{
		101: {ID: 101, SalePrice: decimal.NewFromInt(15000)},
	}}
	cfg, err := loyalty.NewConfig(decimal.NewFromInt(10000), decimal.NewFromInt(100), 50)
	require.NoError(t, err)
	integration := &failingIntegration{err: context.DeadlineExceeded}
	svc := NewService(repo, catalog, &memoryCustomers{repo: repo}, cfg, nil, nil, integration, nil)

	// The sale and the void both commit before the ledger posting runs, so
	// a posting failure must not surface as an operation error.
	sale, err := svc.Checkout(context.Background(), CheckoutInput{
		WarehouseID: 1,
		Paid:        decimal.NewFromInt(100000),
		Lines:       []CheckoutLineInput{{ProductID: 101, Qty: 2}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 8, repo.stock[stockKey{1, 101}])

	voided, err := svc.Void(context.Background(), sale.ID, 9)
	require.NoError(t, err)
	require.Equal(t, SaleStatusVoided, voided.Status)
	require.EqualValues(t, 10, repo.stock[stockKey{1, 101}])
}
