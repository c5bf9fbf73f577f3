package jobs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/toko-erp/toko-erp/internal/inventory"
	"github.com/toko-erp/toko-erp/internal/masterdata/warehouses"
)

type stubStock struct {
	balances []inventory.Balance
}

func (s *stubStock) ListLowStock(_ context.Context, threshold int64) ([]inventory.Balance, error) {
	var out []inventory.Balance
	for _, b := range s.balances {
		if b.Qty <= threshold {
			out = append(out, b)
		}
	}
	return out, nil
}

type stubWarehouses struct{}

func (stubWarehouses) Get(_ context.Context, id int64) (warehouses.Warehouse, error) {
	return warehouses.Warehouse{ID: id, Code: "GDG", Name: "Gudang Utama"}, nil
}

type captureMail struct {
	mu   sync.Mutex
	sent []SendEmailPayload
}

func (c *captureMail) EnqueueSendEmail(_ context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLowStockScanMailsPerWarehouse(t *testing.T) {
	stock := &stubStock{balances: []inventory.Balance{
		{WarehouseID: 1, ProductID: 101, Qty: 2},
		{WarehouseID: 1, ProductID: 102, Qty: 0},
		{WarehouseID: 2, ProductID: 101, Qty: 4},
		{WarehouseID: 1, ProductID: 103, Qty: 40},
	}}
	mail := &captureMail{}
	scanner := NewLowStockScanner(stock, stubWarehouses{}, mail, 5, "ops@toko.local", nil, discardLogger())

	task, err := NewLowStockScanTask(0, time.Now())
	require.NoError(t, err)
	require.NoError(t, scanner.Handle(context.Background(), task))

	require.Len(t, mail.sent, 2)
	for _, m := range mail.sent {
		require.Equal(t, "ops@toko.local", m.To)
		require.Contains(t, m.Subject, "Gudang Utama")
	}
}

func TestLowStockScanCleanSendsNothing(t *testing.T) {
	stock := &stubStock{balances: []inventory.Balance{
		{WarehouseID: 1, ProductID: 101, Qty: 50},
	}}
	mail := &captureMail{}
	scanner := NewLowStockScanner(stock, stubWarehouses{}, mail, 5, "ops@toko.local", nil, discardLogger())

	task, err := NewLowStockScanTask(0, time.Now())
	require.NoError(t, err)
	require.NoError(t, scanner.Handle(context.Background(), task))
	require.Empty(t, mail.sent)
}

func TestLowStockScanListsWorstFirst(t *testing.T) {
	stock := &stubStock{balances: []inventory.Balance{
		{WarehouseID: 1, ProductID: 101, Qty: 3},
		{WarehouseID: 1, ProductID: 102, Qty: 1},
	}}
	mail := &captureMail{}
	scanner := NewLowStockScanner(stock, stubWarehouses{}, mail, 5, "ops@toko.local", nil, discardLogger())

	task, err := NewLowStockScanTask(0, time.Now())
	require.NoError(t, err)
	require.NoError(t, scanner.Handle(context.Background(), task))

	require.Len(t, mail.sent, 1)
	body := mail.sent[0].Body
	require.Less(t, strings.Index(body, "#102"), strings.Index(body, "#101"))
}
