package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/toko-erp/toko-erp/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error)
	ListBalances(ctx context.Context, warehouseID int64, limit, offset int) ([]Balance, error)
	GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards duplicate postings.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates stock movements.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
}

func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// PostInbound increases stock and blends the unit cost into the moving average.
func (s *Service) PostInbound(ctx context.Context, input MovementInput) (Balance, error) {
	if input.Qty <= 0 {
		return Balance{}, ErrInvalidQuantity
	}
	if input.UnitCost.IsNegative() {
		return Balance{}, ErrInvalidUnitCost
	}
	return s.postMovement(ctx, input, MovementIn, input.Qty)
}

// PostOutbound decreases stock, failing when on-hand qty would go negative.
func (s *Service) PostOutbound(ctx context.Context, input MovementInput) (Balance, error) {
	if input.Qty <= 0 {
		return Balance{}, ErrInvalidQuantity
	}
	return s.postMovement(ctx, input, MovementOut, -input.Qty)
}

// PostAdjustment applies a signed correction to on-hand stock.
func (s *Service) PostAdjustment(ctx context.Context, input MovementInput) (Balance, error) {
	if input.Qty == 0 {
		return Balance{}, ErrInvalidQuantity
	}
	if input.Qty > 0 && input.UnitCost.IsNegative() {
		return Balance{}, ErrInvalidUnitCost
	}
	return s.postMovement(ctx, input, MovementAdjust, input.Qty)
}

func (s *Service) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	if warehouseID == 0 || productID == 0 {
		return Balance{}, errors.New("inventory: warehouse and product required")
	}
	return s.repo.GetBalance(ctx, warehouseID, productID)
}

func (s *Service) ListBalances(ctx context.Context, warehouseID int64, limit, offset int) ([]Balance, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListBalances(ctx, warehouseID, limit, offset)
}

func (s *Service) GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error) {
	if filter.WarehouseID == 0 || filter.ProductID == 0 {
		return nil, errors.New("inventory: warehouse and product required")
	}
	return s.repo.GetStockCard(ctx, filter)
}

func (s *Service) postMovement(ctx context.Context, input MovementInput, movType MovementType, qtyChange int64) (Balance, error) {
	if input.WarehouseID == 0 || input.ProductID == 0 {
		return Balance{}, errors.New("inventory: warehouse and product required")
	}
	now := time.Now().UTC()
	code := input.Code
	if code == "" {
		code = fmt.Sprintf("INV-%d", now.UnixNano())
	}

	key := fmt.Sprintf("%s:%s:%d:%d", movType, code, input.WarehouseID, input.ProductID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Balance{}, err
		}
		insertedKey = true
	}

	var result Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.GetBalanceForUpdate(ctx, input.WarehouseID, input.ProductID)
		if err != nil && !errors.Is(err, ErrBalanceNotFound) {
			return err
		}
		if errors.Is(err, ErrBalanceNotFound) {
			balance = Balance{WarehouseID: input.WarehouseID, ProductID: input.ProductID, AvgCost: decimal.Zero}
		}

		newQty := balance.Qty + qtyChange
		if newQty < 0 {
			return ErrNegativeStock
		}

		unitCost := input.UnitCost
		newAvg := balance.AvgCost
		if qtyChange > 0 {
			newAvg = blendAvgCost(balance.Qty, balance.AvgCost, qtyChange, unitCost)
		} else {
			// Outbound carries cost at the current moving average.
			unitCost = balance.AvgCost
			if newQty == 0 {
				newAvg = decimal.Zero
			}
		}

		if _, err := tx.InsertMovement(ctx, Movement{
			Code:        code,
			Type:        movType,
			WarehouseID: input.WarehouseID,
			ProductID:   input.ProductID,
			Qty:         qtyChange,
			UnitCost:    unitCost,
			RefModule:   input.RefModule,
			RefID:       input.RefID,
			Note:        input.Note,
			ActorID:     input.ActorID,
			PostedAt:    now,
		}); err != nil {
			return err
		}

		balance.Qty = newQty
		balance.AvgCost = newAvg
		if err := tx.UpsertBalance(ctx, balance); err != nil {
			return err
		}
		result = balance
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Balance{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("inventory:%s", movType),
			Entity:   "stock_movement",
			EntityID: code,
			Meta: map[string]any{
				"warehouse_id": input.WarehouseID,
				"product_id":   input.ProductID,
				"qty":          qtyChange,
			},
		})
	}
	return result, nil
}
