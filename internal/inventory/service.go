package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outcome records the result of one line item's stock adjustment.
type Outcome struct {
	ProductID uuid.UUID
	Requested int
	Applied   int
	Floored   bool
	Err       error
}

// Adjuster decrements product stock after an order is durably created. Each
// line item is adjusted independently and a failure never retracts the order
// or blocks the remaining items; stock is eventually reconciled, not
// transactionally tied to order placement.
type Adjuster struct {
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.ReconcileMetrics
}

// AdjusterParams bundles the adjuster dependencies.
type AdjusterParams struct {
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.ReconcileMetrics
}

// NewAdjuster builds the inventory adjuster.
func NewAdjuster(params AdjusterParams) (*Adjuster, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Adjuster{
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// AdjustForItems decrements the relevant stock pool for every line item,
// floored at zero. Outcomes are returned per item; errors are logged, never
// propagated.
func (a *Adjuster) AdjustForItems(ctx context.Context, items []models.OrderLineItem) []Outcome {
	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		outcome := a.adjustItem(ctx, item)
		outcomes = append(outcomes, outcome)

		if outcome.Err != nil {
			logCtx := a.logg.WithFields(ctx, map[string]any{
				"product_id": outcome.ProductID.String(),
				"qty":        outcome.Requested,
			})
			a.logg.Error(logCtx, "stock adjustment failed, skipping item", outcome.Err)
			a.metrics.IncStageFailure("inventory")
			continue
		}
		if outcome.Floored {
			logCtx := a.logg.WithFields(ctx, map[string]any{
				"product_id": outcome.ProductID.String(),
				"requested":  outcome.Requested,
				"applied":    outcome.Applied,
			})
			a.logg.Warn(logCtx, "stock decrement floored at zero")
			a.metrics.IncStockFloored()
		}
	}
	return outcomes
}

func (a *Adjuster) adjustItem(ctx context.Context, item models.OrderLineItem) Outcome {
	outcome := Outcome{Requested: item.Qty}
	if item.ProductID == nil {
		outcome.Err = errors.New("line item has no product id")
		return outcome
	}
	outcome.ProductID = *item.ProductID

	if item.Qty <= 0 {
		return outcome
	}

	column := "unit_stock"
	if item.SellingType == enums.SellingTypePallet {
		column = "pallet_stock"
	}

	err := a.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Guarded decrement; the new value is never computed from a
		// separately read one, so concurrent adjustments cannot clobber
		// each other.
		res := tx.WithContext(ctx).Exec(
			"UPDATE products SET "+column+" = "+column+" - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND "+column+" >= ?",
			item.Qty, *item.ProductID, item.Qty,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			outcome.Applied = item.Qty
			return nil
		}

		// Insufficient stock, or the product does not exist. Stock only
		// moves down through this path, so draining to zero stays correct
		// after the guard above has missed.
		var product models.Product
		if err := tx.WithContext(ctx).Where("id = ?", *item.ProductID).First(&product).Error; err != nil {
			return err
		}
		remaining := product.UnitStock
		if item.SellingType == enums.SellingTypePallet {
			remaining = product.PalletStock
		}

		drained := tx.WithContext(ctx).Exec(
			"UPDATE products SET "+column+" = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND "+column+" <= ?",
			*item.ProductID, remaining,
		)
		if drained.Error != nil {
			return drained.Error
		}
		outcome.Floored = true
		outcome.Applied = remaining
		return nil
	})
	if err != nil {
		outcome.Err = err
	}
	return outcome
}
