package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/toko-erp/toko-erp/internal/inventory"
	jobmetrics "github.com/toko-erp/toko-erp/internal/jobs"
	"github.com/toko-erp/toko-erp/internal/masterdata/warehouses"
)

// StockReader lists balances at or below a reorder threshold.
type StockReader interface {
	ListLowStock(ctx context.Context, threshold int64) ([]inventory.Balance, error)
}

// WarehouseReader resolves warehouse metadata for notifications.
type WarehouseReader interface {
	Get(ctx context.Context, id int64) (warehouses.Warehouse, error)
}

// MailEnqueuer submits send-email tasks.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// LowStockScanner sweeps stock balances and mails one restock summary per
// warehouse that has items at or below the threshold.
type LowStockScanner struct {
	stock      StockReader
	warehouses WarehouseReader
	mail       MailEnqueuer
	threshold  int64
	recipient  string
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
}

// NewLowStockScanner constructs the scanner. metrics may be nil.
func NewLowStockScanner(stock StockReader, wh WarehouseReader, mail MailEnqueuer, threshold int64, recipient string, metrics *jobmetrics.Metrics, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{
		stock:      stock,
		warehouses: wh,
		mail:       mail,
		threshold:  threshold,
		recipient:  recipient,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle processes TaskTypeLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}
	balances, err := s.stock.ListLowStock(ctx, threshold)
	if err != nil {
		return err
	}
	s.metrics.SetLowStockItems(len(balances))
	if len(balances) == 0 {
		s.logger.Info("low-stock sweep clean", slog.Int64("threshold", threshold))
		return nil
	}

	byWarehouse := make(map[int64][]inventory.Balance)
	for _, b := range balances {
		byWarehouse[b.WarehouseID] = append(byWarehouse[b.WarehouseID], b)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for warehouseID, items := range byWarehouse {
		warehouseID, items := warehouseID, items
		g.Go(func() error {
			return s.notify(ctx, warehouseID, items, threshold)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("low-stock sweep done",
		slog.Int64("threshold", threshold),
		slog.Int("warehouses", len(byWarehouse)),
		slog.Int("items", len(balances)))
	return nil
}

func (s *LowStockScanner) notify(ctx context.Context, warehouseID int64, items []inventory.Balance, threshold int64) error {
	wh, err := s.warehouses.Get(ctx, warehouseID)
	if err != nil {
		return fmt.Errorf("resolve warehouse %d: %w", warehouseID, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Qty < items[j].Qty })

	var body strings.Builder
	fmt.Fprintf(&body, "Stok menipis di gudang %s (%s), ambang %d:\n\n", wh.Name, wh.Code, threshold)
	for _, item := range items {
		fmt.Fprintf(&body, "- produk #%d: sisa %d\n", item.ProductID, item.Qty)
	}
	_, err = s.mail.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      s.recipient,
		Subject: fmt.Sprintf("[toko] Stok menipis: %s", wh.Name),
		Body:    body.String(),
	})
	return err
}
