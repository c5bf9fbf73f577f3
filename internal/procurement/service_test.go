package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/toko-erp/toko-erp/internal/shared"
)

type stockKey struct {
	warehouseID int64
	productID   int64
}

type stockEntry struct {
	qty  int64
	cost decimal.Decimal
}

type memoryRepo struct {
	nextPOID   int64
	nextLineID int64
	nextPayID  int64
	orders     map[int64]*PurchaseOrder
	lines      map[int64][]*POLine
	vendors    map[int64]decimal.Decimal
	stock      map[stockKey]stockEntry
	payments   []VendorPayment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextPOID:   1,
		nextLineID: 1,
		nextPayID:  1,
		orders:     map[int64]*PurchaseOrder{},
		lines:      map[int64][]*POLine{},
		vendors:    map[int64]decimal.Decimal{},
		stock:      map[stockKey]stockEntry{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) CreatePO(_ context.Context, po PurchaseOrder) (int64, error) {
	po.ID = m.nextPOID
	m.nextPOID++
	m.orders[po.ID] = &po
	return po.ID, nil
}

func (m *memoryRepo) InsertPOLine(_ context.Context, line POLine) error {
	line.ID = m.nextLineID
	m.nextLineID++
	m.lines[line.POID] = append(m.lines[line.POID], &line)
	return nil
}

func (m *memoryRepo) TransitionStatus(_ context.Context, poID int64, from []POStatus, to POStatus) (bool, error) {
	po, ok := m.orders[poID]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if po.Status == s {
			po.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) SetApproval(_ context.Context, poID, actorID int64, at time.Time) error {
	po := m.orders[poID]
	po.ApprovedBy = actorID
	po.ApprovedAt = &at
	return nil
}

func (m *memoryRepo) SetReceipt(_ context.Context, poID int64, receivedTotal decimal.Decimal, billRef string, receivedBy int64, at time.Time) error {
	po := m.orders[poID]
	po.ReceivedTotal = receivedTotal
	po.BillRef = billRef
	po.ReceivedBy = receivedBy
	po.ReceivedAt = &at
	return nil
}

func (m *memoryRepo) SetLineReceipt(_ context.Context, lineID, qty int64, price decimal.Decimal, warehouseID int64) error {
	for _, lines := range m.lines {
		for _, line := range lines {
			if line.ID == lineID {
				line.ReceivedQty = qty
				line.ReceivedPrice = price
				line.WarehouseID = warehouseID
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *memoryRepo) AddStock(_ context.Context, warehouseID, productID, qty int64, unitCost decimal.Decimal, _, _ string, _ int64) error {
	key := stockKey{warehouseID, productID}
	entry := m.stock[key]
	entry.qty += qty
	entry.cost = unitCost
	m.stock[key] = entry
	return nil
}

func (m *memoryRepo) AddVendorBalance(_ context.Context, vendorID int64, amount decimal.Decimal) error {
	balance, ok := m.vendors[vendorID]
	if !ok {
		return ErrNotFound
	}
	m.vendors[vendorID] = balance.Add(amount)
	return nil
}

func (m *memoryRepo) SettleVendorBalance(_ context.Context, vendorID int64, amount decimal.Decimal) (bool, error) {
	balance, ok := m.vendors[vendorID]
	if !ok || balance.LessThan(amount) {
		return false, nil
	}
	m.vendors[vendorID] = balance.Sub(amount)
	return true, nil
}

func (m *memoryRepo) VendorExists(_ context.Context, vendorID int64) (bool, error) {
	_, ok := m.vendors[vendorID]
	return ok, nil
}

func (m *memoryRepo) CreatePayment(_ context.Context, payment VendorPayment) (int64, error) {
	payment.ID = m.nextPayID
	m.nextPayID++
	m.payments = append(m.payments, payment)
	return payment.ID, nil
}

func (m *memoryRepo) GetPO(_ context.Context, id int64) (PurchaseOrder, []POLine, error) {
	po, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	var lines []POLine
	for _, line := range m.lines[id] {
		lines = append(lines, *line)
	}
	return *po, lines, nil
}

func (m *memoryRepo) List(_ context.Context, _ ListFilter) ([]PurchaseOrder, int, error) {
	var items []PurchaseOrder
	for _, po := range m.orders {
		items = append(items, *po)
	}
	return items, len(items), nil
}

func (m *memoryRepo) ListPayments(_ context.Context, vendorID int64, _ int) ([]VendorPayment, error) {
	var items []VendorPayment
	for _, p := range m.payments {
		if p.VendorID == vendorID {
			items = append(items, p)
		}
	}
	return items, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, nil, newMemoryIdempotency(), nil, nil, nil)
}

func createSampleOrder(t *testing.T, svc *Service, repo *memoryRepo) PurchaseOrder {
	t.Helper()
	repo.vendors[7] = decimal.Zero
	po, err := svc.Create(context.Background(), CreatePOInput{
		VendorID: 7,
		Lines: []POLineInput{
			{ProductID: 101, Qty: 5, UnitPrice: decimal.NewFromInt(150)},
			{ProductID: 102, Qty: 2, UnitPrice: decimal.NewFromInt(250)},
		},
	})
	require.NoError(t, err)
	return po
}

func TestCreateComputesTotal(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	po := createSampleOrder(t, svc, repo)
	require.Equal(t, POStatusPending, po.Status)
	require.True(t, po.TotalAmount.Equal(decimal.NewFromInt(1250)), "got %s", po.TotalAmount)
	require.True(t, po.ReceivedTotal.IsZero())
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.vendors[7] = decimal.Zero

	_, err := svc.Create(context.Background(), CreatePOInput{VendorID: 7})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreatePOInput{
		VendorID: 7,
		Lines:    []POLineInput{{ProductID: 101, Qty: 0, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreatePOInput{
		VendorID: 7,
		Lines:    []POLineInput{{ProductID: 101, Qty: 1, UnitPrice: decimal.Zero}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreatePOInput{
		VendorID: 7,
		Lines:    []POLineInput{{ProductID: 101, Qty: 1, UnitPrice: decimal.NewFromInt(-10)}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreatePOInput{
		VendorID: 99,
		Lines:    []POLineInput{{ProductID: 101, Qty: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApproveOnlyFromPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)

	require.NoError(t, svc.Approve(context.Background(), po.ID, 1))
	require.Equal(t, POStatusApproved, repo.orders[po.ID].Status)

	require.ErrorIs(t, svc.Approve(context.Background(), po.ID, 1), ErrInvalidState)
	require.ErrorIs(t, svc.Approve(context.Background(), 999, 1), ErrNotFound)
}

func TestReceiveGoodsPostsStockAndPayable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)
	require.NoError(t, svc.Approve(context.Background(), po.ID, 1))

	lines := repo.lines[po.ID]
	received, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID: po.ID,
		ActorID: 42,
		Lines: []ReceiveLineInput{
			{LineID: lines[0].ID, WarehouseID: 1, Qty: 4, UnitPrice: decimal.NewFromInt(150)},
			{LineID: lines[1].ID, WarehouseID: 1, Qty: 2, UnitPrice: decimal.NewFromInt(250)},
		},
	})
	require.NoError(t, err)

	// 4*150 + 2*250 against an ordered total of 1250.
	require.True(t, received.ReceivedTotal.Equal(decimal.NewFromInt(1100)), "got %s", received.ReceivedTotal)
	require.Equal(t, POStatusReceived, received.Status)
	require.EqualValues(t, 42, received.ReceivedBy)
	require.EqualValues(t, 4, lines[0].ReceivedQty)
	require.EqualValues(t, 2, lines[1].ReceivedQty)
	require.EqualValues(t, 4, repo.stock[stockKey{1, 101}].qty)
	require.EqualValues(t, 2, repo.stock[stockKey{1, 102}].qty)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(1100)))
}

func TestReceiveFromPendingAllowed(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)

	lines := repo.lines[po.ID]
	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)
	require.Equal(t, POStatusReceived, repo.orders[po.ID].Status)
}

func TestReceiveLosesRaceOnlyOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	input := ReceiveInput{POID: po.ID, Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}}}
	_, err := svc.ReceiveGoods(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.ReceiveGoods(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidState)

	// The loser must leave stock and payable untouched.
	require.EqualValues(t, 5, repo.stock[stockKey{1, 101}].qty)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(750)))
}

func TestReceiveDuplicateIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil, nil, nil)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	input := ReceiveInput{
		POID:           po.ID,
		IdempotencyKey: "attempt-1",
		Lines:          []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	}
	_, err := svc.ReceiveGoods(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.ReceiveGoods(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestReceiveFailureReleasesIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil, nil, nil)
	po := createSampleOrder(t, svc, repo)
	require.NoError(t, svc.Cancel(context.Background(), po.ID, 1))
	lines := repo.lines[po.ID]

	input := ReceiveInput{
		POID:           po.ID,
		IdempotencyKey: "attempt-1",
		Lines:          []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	}
	_, err := svc.ReceiveGoods(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, idem.keys)
}

func TestReceiveCancelledOrderHasNoEffects(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)
	require.NoError(t, svc.Cancel(context.Background(), po.ID, 1))

	lines := repo.lines[po.ID]
	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, repo.stock)
	require.True(t, repo.vendors[7].IsZero())
}

func TestReceiveRejectsForeignLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)

	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: 9999, WarehouseID: 1, Qty: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, POStatusPending, repo.orders[po.ID].Status)
}

func TestCancelTerminalStates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(context.Background(), po.ID, 1), ErrInvalidState)
}

func TestSettlePaymentBounds(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.vendors[7] = decimal.NewFromInt(1100)

	_, err := svc.SettlePayment(context.Background(), SettleInput{VendorID: 7, Amount: decimal.NewFromInt(-50)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SettlePayment(context.Background(), SettleInput{VendorID: 7, Amount: decimal.NewFromInt(1200)})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(1100)))

	payment, err := svc.SettlePayment(context.Background(), SettleInput{VendorID: 7, Amount: decimal.NewFromInt(600)})
	require.NoError(t, err)
	require.NotZero(t, payment.ID)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(500)))

	// Settling the exact remainder drives the balance to zero, not below.
	_, err = svc.SettlePayment(context.Background(), SettleInput{VendorID: 7, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.True(t, repo.vendors[7].IsZero())

	_, err = svc.SettlePayment(context.Background(), SettleInput{VendorID: 99, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrNotFound)
}

type stubUploads struct {
	refs map[string]bool
}

func (s *stubUploads) Exists(_ context.Context, ref string) (bool, error) {
	return s.refs[ref], nil
}

func TestReceiveRequiresStoredBillImage(t *testing.T) {
	repo := newMemoryRepo()
	uploads := &stubUploads{refs: map[string]bool{"bill-1": true}}
	svc := NewService(repo, nil, newMemoryIdempotency(), uploads, nil, nil)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:    po.ID,
		BillRef: "missing",
		Lines:   []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, POStatusPending, repo.orders[po.ID].Status)

	received, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:    po.ID,
		BillRef: "bill-1",
		Lines:   []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)
	require.Equal(t, POStatusReceived, received.Status)
	require.Equal(t, "bill-1", repo.orders[po.ID].BillRef)
}

func TestReceiveUsesReceivedPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.vendors[7] = decimal.Zero

	po, err := svc.Create(context.Background(), CreatePOInput{
		VendorID: 7,
		Lines: []POLineInput{
			{ProductID: 201, Qty: 10, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: 202, Qty: 5, UnitPrice: decimal.NewFromInt(50)},
		},
	})
	require.NoError(t, err)
	require.True(t, po.TotalAmount.Equal(decimal.NewFromInt(1250)))

	lines := repo.lines[po.ID]
	received, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID: po.ID,
		Lines: []ReceiveLineInput{
			{LineID: lines[0].ID, WarehouseID: 3, Qty: 10, UnitPrice: decimal.NewFromInt(110)},
		},
	})
	require.NoError(t, err)

	// 10 * 110: the vendor invoiced above the ordered price.
	require.True(t, received.ReceivedTotal.Equal(decimal.NewFromInt(1100)), "got %s", received.ReceivedTotal)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(1100)))
	require.True(t, lines[0].ReceivedPrice.Equal(decimal.NewFromInt(110)))
	require.EqualValues(t, 3, lines[0].WarehouseID)
	require.EqualValues(t, 0, lines[1].ReceivedQty)
	require.True(t, lines[1].ReceivedPrice.IsZero())

	// Stock lands in the receipt warehouse at the received cost.
	entry := repo.stock[stockKey{3, 201}]
	require.EqualValues(t, 10, entry.qty)
	require.True(t, entry.cost.Equal(decimal.NewFromInt(110)))
}

func TestReceiveLineValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	// A received line needs a positive price.
	_, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5}},
	})
	require.ErrorIs(t, err, ErrValidation)

	// And a deposit warehouse.
	_, err = svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.ErrorIs(t, err, ErrValidation)

	// All-zero quantities receive nothing.
	_, err = svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, Qty: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, POStatusPending, repo.orders[po.ID].Status)
}

type failingIntegration struct {
	err error
}

func (f *failingIntegration) HandleGoodsReceived(context.Context, GoodsReceivedEvent) error {
	return f.err
}

func (f *failingIntegration) HandlePaymentSettled(context.Context, PaymentSettledEvent) error {
	return f.err
}

func TestLedgerFailureDoesNotFailReceipt(t *testing.T) {
	repo := newMemoryRepo()
	integration := &failingIntegration{err: context.DeadlineExceeded}
	svc := NewService(repo, nil, newMemoryIdempotency(), nil, integration, nil)
	po := createSampleOrder(t, svc, repo)
	lines := repo.lines[po.ID]

	received, err := svc.ReceiveGoods(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, WarehouseID: 1, Qty: 5, UnitPrice: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)
	require.Equal(t, POStatusReceived, received.Status)
	require.EqualValues(t, 5, repo.stock[stockKey{1, 101}].qty)
}

func TestLedgerFailureDoesNotFailSettlement(t *testing.T) {
	repo := newMemoryRepo()
	integration := &failingIntegration{err: context.DeadlineExceeded}
	svc := NewService(repo, nil, newMemoryIdempotency(), nil, integration, nil)
	repo.vendors[7] = decimal.NewFromInt(500)

	payment, err := svc.SettlePayment(context.Background(), SettleInput{VendorID: 7, Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	require.NotZero(t, payment.ID)
	require.True(t, repo.vendors[7].Equal(decimal.NewFromInt(300)))
}
