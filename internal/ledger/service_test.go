package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/toko-erp/toko-erp/internal/procurement"
	"github.com/toko-erp/toko-erp/internal/sales"
)

type memoryRepo struct {
	nextID  int64
	entries []Entry
}

func (m *memoryRepo) Insert(_ context.Context, entry Entry) (int64, error) {
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Entry, error) {
	var items []Entry
	for _, e := range m.entries {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		items = append(items, e)
	}
	return items, nil
}

func (m *memoryRepo) Totals(_ context.Context, _ ListFilter) (map[EntryType]decimal.Decimal, error) {
	totals := map[EntryType]decimal.Decimal{}
	for _, e := range m.entries {
		totals[e.Type] = totals[e.Type].Add(e.Amount)
	}
	return totals, nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGoodsReceivedPostsPayable(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)

	err := svc.HandleGoodsReceived(context.Background(), procurement.GoodsReceivedEvent{
		POID: 1, Number: "PO-1", VendorID: 7,
		ReceivedTotal: decimal.NewFromInt(1100), ReceivedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	require.Equal(t, EntryPayable, repo.entries[0].Type)
	require.True(t, repo.entries[0].Amount.Equal(decimal.NewFromInt(1100)))
}

func TestSalePostedSplitsDiscount(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)

	err := svc.HandleSalePosted(context.Background(), sales.SalePostedEvent{
		SaleID: 3, Number: "POS-3",
		Total: decimal.NewFromInt(70000), Discount: decimal.NewFromInt(10000),
		PostedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 2)
	require.Equal(t, EntryRevenue, repo.entries[0].Type)
	require.Equal(t, EntryDiscount, repo.entries[1].Type)
}

func TestSaleVoidedNetsOutRevenue(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)

	require.NoError(t, svc.HandleSalePosted(context.Background(), sales.SalePostedEvent{
		SaleID: 3, Number: "POS-3",
		Total: decimal.NewFromInt(70000), Discount: decimal.NewFromInt(10000),
		PostedAt: time.Now(),
	}))
	require.NoError(t, svc.HandleSaleVoided(context.Background(), sales.SaleVoidedEvent{
		SaleID: 3, Number: "POS-3",
		Total: decimal.NewFromInt(70000), Discount: decimal.NewFromInt(10000),
		VoidedAt: time.Now(),
	}))

	require.Len(t, repo.entries, 4)
	summary, err := svc.Summarize(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.True(t, summary.Totals[EntryRevenue].IsZero())
	require.True(t, summary.Totals[EntryDiscount].IsZero())
}

func TestSummarizeTotalsPerType(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)

	require.NoError(t, svc.HandlePaymentSettled(context.Background(), procurement.PaymentSettledEvent{
		PaymentID: 1, Number: "PAY-1", Amount: decimal.NewFromInt(500), PaidAt: time.Now(),
	}))
	require.NoError(t, svc.HandlePaymentSettled(context.Background(), procurement.PaymentSettledEvent{
		PaymentID: 2, Number: "PAY-2", Amount: decimal.NewFromInt(250), PaidAt: time.Now(),
	}))

	summary, err := svc.Summarize(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.True(t, summary.Totals[EntryPayment].Equal(decimal.NewFromInt(750)))
	require.NotEmpty(t, summary.Formatted[EntryPayment])
}

func TestSummarizeRejectsInvertedRange(t *testing.T) {
	svc := newTestService(&memoryRepo{})
	_, err := svc.Summarize(context.Background(), time.Now(), time.Now().Add(-time.Hour))
	require.ErrorIs(t, err, ErrValidation)
}
