package vendors

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/toko-erp/toko-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	nextID  int64
	vendors map[int64]Vendor
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, vendors: map[int64]Vendor{}}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Vendor, int, error) {
	items := make([]Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		items = append(items, v)
	}
	return items, len(items), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) Create(_ context.Context, vendor Vendor) (Vendor, error) {
	vendor.ID = m.nextID
	m.nextID++
	m.vendors[vendor.ID] = vendor
	return vendor, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, vendor Vendor) error {
	if _, ok := m.vendors[id]; !ok {
		return shared.ErrNotFound
	}
	vendor.ID = id
	m.vendors[id] = vendor
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.vendors[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.vendors, id)
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Vendor{Name: "PT Sumber Makmur"})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), Vendor{Code: "VND-001"})
	require.Error(t, err)

	created, err := svc.Create(context.Background(), Vendor{Code: "VND-001", Name: "PT Sumber Makmur"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestDeleteRefusesOutstandingBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Vendor{Code: "VND-002", Name: "CV Jaya"})
	require.NoError(t, err)

	v := repo.vendors[created.ID]
	v.Balance = decimal.NewFromInt(150000)
	repo.vendors[created.ID] = v

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)

	v.Balance = decimal.Zero
	repo.vendors[created.ID] = v
	require.NoError(t, svc.Delete(context.Background(), created.ID))
}

func TestGetUnknownVendor(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
