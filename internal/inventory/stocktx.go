package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StockTxInput describes one stock change another module applies inside its
// own transaction (a goods receipt crediting a warehouse, a sale debiting
// one). Qty is always the positive number of units moved.
type StockTxInput struct {
	WarehouseID int64
	ProductID   int64
	Qty         int64
	UnitCost    decimal.Decimal
	Code        string
	RefModule   string
	RefID       string
	Note        string
	ActorID     int64
}

// blendAvgCost folds addQty units at unitCost into the current moving
// average. Every inbound path goes through here so the formula and its
// rounding live in one place.
func blendAvgCost(curQty int64, curAvg decimal.Decimal, addQty int64, unitCost decimal.Decimal) decimal.Decimal {
	newQty := curQty + addQty
	if newQty <= 0 {
		return curAvg
	}
	total := curAvg.Mul(decimal.NewFromInt(curQty)).Add(unitCost.Mul(decimal.NewFromInt(addQty)))
	return total.Div(decimal.NewFromInt(newQty)).Round(4)
}

// ApplyInbound credits stock within tx: the balance row is locked, the unit
// cost is blended into the moving average, and an IN movement is journaled.
func ApplyInbound(ctx context.Context, tx pgx.Tx, in StockTxInput) error {
	t := &txRepo{tx: tx}
	balance, err := t.GetBalanceForUpdate(ctx, in.WarehouseID, in.ProductID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return err
	}
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{WarehouseID: in.WarehouseID, ProductID: in.ProductID, AvgCost: decimal.Zero}
	}

	newAvg := blendAvgCost(balance.Qty, balance.AvgCost, in.Qty, in.UnitCost)
	if _, err := t.InsertMovement(ctx, Movement{
		Code:        in.Code,
		Type:        MovementIn,
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		Qty:         in.Qty,
		UnitCost:    in.UnitCost,
		RefModule:   in.RefModule,
		RefID:       in.RefID,
		Note:        in.Note,
		ActorID:     in.ActorID,
		PostedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	balance.Qty += in.Qty
	balance.AvgCost = newAvg
	return t.UpsertBalance(ctx, balance)
}

// ApplyOutbound debits stock within tx. The balance row is locked and the
// decrement is refused with ErrNegativeStock when on-hand qty cannot cover
// it. The OUT movement carries cost at the current moving average.
func ApplyOutbound(ctx context.Context, tx pgx.Tx, in StockTxInput) error {
	t := &txRepo{tx: tx}
	balance, err := t.GetBalanceForUpdate(ctx, in.WarehouseID, in.ProductID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return ErrNegativeStock
		}
		return err
	}
	if balance.Qty < in.Qty {
		return ErrNegativeStock
	}

	if _, err := t.InsertMovement(ctx, Movement{
		Code:        in.Code,
		Type:        MovementOut,
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		Qty:         -in.Qty,
		UnitCost:    balance.AvgCost,
		RefModule:   in.RefModule,
		RefID:       in.RefID,
		Note:        in.Note,
		ActorID:     in.ActorID,
		PostedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	balance.Qty -= in.Qty
	if balance.Qty == 0 {
		balance.AvgCost = decimal.Zero
	}
	return t.UpsertBalance(ctx, balance)
}

// ApplyReturn credits units back at the current moving average, used when an
// outbound posting is compensated (a voided sale). The average is unchanged.
func ApplyReturn(ctx context.Context, tx pgx.Tx, in StockTxInput) error {
	t := &txRepo{tx: tx}
	balance, err := t.GetBalanceForUpdate(ctx, in.WarehouseID, in.ProductID)
	if err != nil {
		return err
	}
	if _, err := t.InsertMovement(ctx, Movement{
		Code:        in.Code,
		Type:        MovementIn,
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		Qty:         in.Qty,
		UnitCost:    balance.AvgCost,
		RefModule:   in.RefModule,
		RefID:       in.RefID,
		Note:        in.Note,
		ActorID:     in.ActorID,
		PostedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	balance.Qty += in.Qty
	return t.UpsertBalance(ctx, balance)
}
