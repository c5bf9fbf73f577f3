package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/loyalty"
	"github.com/toko-erp/toko-erp/internal/masterdata/customers"
	"github.com/toko-erp/toko-erp/internal/masterdata/products"
	"github.com/toko-erp/toko-erp/internal/shared"
)

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, []SaleLine, error)
	DailySummary(ctx context.Context, day time.Time) (DailySummary, error)
}

// CatalogPort resolves products so lines are priced server side.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// CustomerPort resolves customers for loyalty checks.
type CustomerPort interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
}

// AuditPort records audit trail rows.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards duplicate checkouts.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service runs POS checkouts.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	customers   CustomerPort
	loyaltyCfg  loyalty.Config
	audit       AuditPort
	idempotency IdempotencyPort
	integration IntegrationHandler
	logger      *slog.Logger
}

func NewService(repo RepositoryPort, catalog CatalogPort, custs CustomerPort, loyaltyCfg loyalty.Config, audit AuditPort, idem IdempotencyPort, integration IntegrationHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		catalog:     catalog,
		customers:   custs,
		loyaltyCfg:  loyaltyCfg,
		audit:       audit,
		idempotency: idem,
		integration: integration,
		logger:      logger,
	}
}

// CheckoutLineInput is one scanned product.
type CheckoutLineInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int64 `json:"qty"`
}

// CheckoutInput describes a POS checkout attempt.
type CheckoutInput struct {
	WarehouseID    int64               `json:"warehouse_id"`
	CustomerID     int64               `json:"customer_id"`
	RedeemPoints   int64               `json:"redeem_points"`
	Paid           decimal.Decimal     `json:"paid"`
	Lines          []CheckoutLineInput `json:"lines"`
	IdempotencyKey string              `json:"-"`
	ActorID        int64               `json:"-"`
}

// Checkout prices the lines, applies loyalty redemption, decrements stock,
// and records the sale in one transaction.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Sale, error) {
	if input.WarehouseID <= 0 || len(input.Lines) == 0 {
		return Sale{}, ErrValidation
	}
	if input.RedeemPoints > 0 && input.CustomerID <= 0 {
		return Sale{}, ErrValidation
	}

	subtotal := decimal.Zero
	lines := make([]SaleLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		if in.ProductID <= 0 || in.Qty <= 0 {
			return Sale{}, ErrValidation
		}
		product, err := s.catalog.Get(ctx, in.ProductID)
		if err != nil {
			return Sale{}, fmt.Errorf("%w: product %d", ErrNotFound, in.ProductID)
		}
		lineTotal := product.SalePrice.Mul(decimal.NewFromInt(in.Qty))
		lines = append(lines, SaleLine{
			ProductID: in.ProductID,
			Qty:       in.Qty,
			UnitPrice: product.SalePrice,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	discount := decimal.Zero
	if input.RedeemPoints > 0 {
		customer, err := s.customers.Get(ctx, input.CustomerID)
		if err != nil {
			return Sale{}, fmt.Errorf("%w: customer %d", ErrNotFound, input.CustomerID)
		}
		discount, err = s.loyaltyCfg.RedemptionValue(input.RedeemPoints, customer.Points, subtotal)
		if err != nil {
			return Sale{}, err
		}
	}

	total := subtotal.Sub(discount)
	if input.Paid.LessThan(total) {
		return Sale{}, ErrUnderpaid
	}

	sale := Sale{
		Number:         generateNumber(),
		Status:         SaleStatusCompleted,
		CustomerID:     input.CustomerID,
		WarehouseID:    input.WarehouseID,
		Subtotal:       subtotal,
		Discount:       discount,
		Total:          total,
		Paid:           input.Paid,
		Change:         input.Paid.Sub(total),
		PointsRedeemed: input.RedeemPoints,
		CashierID:      input.ActorID,
	}
	if input.CustomerID > 0 {
		sale.PointsEarned = s.loyaltyCfg.PointsFor(total)
	}

	key := input.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	key = fmt.Sprintf("SALE:%s", key)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "sales"); err != nil {
			return Sale{}, err
		}
		insertedKey = true
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = saleID
		for i := range lines {
			lines[i].SaleID = saleID
			ok, err := tx.DecrementStock(ctx, input.WarehouseID, lines[i].ProductID, lines[i].Qty, sale.Number, input.ActorID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, lines[i].ProductID)
			}
			if err := tx.InsertSaleLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if sale.PointsRedeemed > 0 {
			ok, err := tx.RedeemPoints(ctx, input.CustomerID, sale.PointsRedeemed)
			if err != nil {
				return err
			}
			if !ok {
				return loyalty.ErrInsufficientPoint
			}
		}
		if sale.PointsEarned > 0 {
			if err := tx.AccruePoints(ctx, input.CustomerID, sale.PointsEarned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Sale{}, err
	}

	sale.CreatedAt = time.Now().UTC()
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "SALE_CHECKOUT",
			Entity:   "sale",
			EntityID: fmt.Sprintf("%d", sale.ID),
			Meta:     map[string]any{"number": sale.Number, "total": sale.Total},
		})
	}
	if s.integration != nil {
		// The sale has committed; a ledger posting failure must not fail the
		// checkout or a retry would sell the stock twice.
		if err := s.integration.HandleSalePosted(ctx, SalePostedEvent{
			SaleID: sale.ID, Number: sale.Number, Total: sale.Total,
			Discount: sale.Discount, PostedAt: sale.CreatedAt,
		}); err != nil {
			s.logger.Warn("ledger posting failed after checkout", "sale", sale.Number, slog.Any("error", err))
		}
	}
	return sale, nil
}

// Void reverses a completed sale: stock goes back to the warehouse through
// compensating inbound movements and loyalty points are unwound. The sale row
// stays, flipped to VOIDED.
func (s *Service) Void(ctx context.Context, saleID, actorID int64) (Sale, error) {
	sale, lines, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return Sale{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.MarkVoided(ctx, saleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyVoided
		}
		for _, line := range lines {
			if err := tx.ReturnStock(ctx, sale.WarehouseID, line.ProductID, line.Qty, sale.Number, actorID); err != nil {
				return err
			}
		}
		if sale.PointsEarned > 0 {
			ok, err := tx.RedeemPoints(ctx, sale.CustomerID, sale.PointsEarned)
			if err != nil {
				return err
			}
			if !ok {
				return loyalty.ErrInsufficientPoint
			}
		}
		if sale.PointsRedeemed > 0 {
			if err := tx.AccruePoints(ctx, sale.CustomerID, sale.PointsRedeemed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	sale.Status = SaleStatusVoided
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "SALE_VOID",
			Entity:   "sale",
			EntityID: fmt.Sprintf("%d", sale.ID),
			Meta:     map[string]any{"number": sale.Number, "total": sale.Total},
		})
	}
	if s.integration != nil {
		if err := s.integration.HandleSaleVoided(ctx, SaleVoidedEvent{
			SaleID: sale.ID, Number: sale.Number, Total: sale.Total,
			Discount: sale.Discount, VoidedAt: time.Now().UTC(),
		}); err != nil {
			s.logger.Warn("ledger posting failed after void", "sale", sale.Number, slog.Any("error", err))
		}
	}
	return sale, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Sale, []SaleLine, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	if day.IsZero() {
		day = time.Now()
	}
	return s.repo.DailySummary(ctx, day)
}

func generateNumber() string {
	return fmt.Sprintf("POS-%d", time.Now().UnixNano())
}
