package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/internal/reconcile"
	pkgdb "github.com/palletworks/palletworks-backend/pkg/db"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	pkgerrors "github.com/palletworks/palletworks-backend/pkg/errors"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/outbox"
	"github.com/palletworks/palletworks-backend/pkg/outbox/payloads"
)

const confirmationUniqueConstraint = "ux_orders_payment_confirmation_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Creator persists orders exactly once per payment confirmation id. Creation
// is attempted optimistically; the unique index on the confirmation id turns
// concurrent duplicates into a reload of the winning row.
type Creator struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	logg           *logger.Logger
	platformFeeBps int
}

// CreatorParams bundles the order creator dependencies.
type CreatorParams struct {
	Repo           Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Logger         *logger.Logger
	PlatformFeeBps int
}

// NewCreator builds the idempotent order creator.
func NewCreator(params CreatorParams) (*Creator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PlatformFeeBps < 0 {
		return nil, fmt.Errorf("platform fee bps must be non-negative")
	}
	return &Creator{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		logg:           params.Logger,
		platformFeeBps: params.PlatformFeeBps,
	}, nil
}

// Create returns the order for the given confirmation id, creating it when
// none exists. The second return value reports whether this call created it.
func (c *Creator) Create(ctx context.Context, input reconcile.CreateOrderInput) (*models.Order, bool, error) {
	if input.Customer == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "customer account required")
	}
	if input.Intent.ConfirmationID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment confirmation id required")
	}
	if input.Intent.MerchantID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}

	existing, err := c.findExisting(ctx, input.Intent.ConfirmationID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	order, err := c.persist(ctx, input)
	if err == nil {
		return order, true, nil
	}

	// Lost the race against a concurrent duplicate delivery: the unique
	// constraint fired, so the winning order is the one to return.
	if pkgdb.IsUniqueViolation(err, confirmationUniqueConstraint) {
		winner, lookupErr := c.findExisting(ctx, input.Intent.ConfirmationID)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if winner != nil {
			logCtx := c.logg.WithConfirmationID(ctx, input.Intent.ConfirmationID)
			c.logg.Info(logCtx, "duplicate confirmation resolved to existing order")
			return winner, false, nil
		}
	}

	return nil, false, err
}

func (c *Creator) findExisting(ctx context.Context, confirmationID string) (*models.Order, error) {
	order, err := c.repo.FindByPaymentConfirmationID(ctx, confirmationID)
	if err == nil {
		return order, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by confirmation id")
}

func (c *Creator) persist(ctx context.Context, input reconcile.CreateOrderInput) (*models.Order, error) {
	var order *models.Order

	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)

		number, err := repo.NextOrderNumber(ctx, input.Intent.MerchantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
		}

		built := c.buildOrder(input, number)
		created, err := repo.CreateOrder(ctx, built)
		if err != nil {
			return err
		}

		items := buildLineItems(created.ID, input.Intent.Items)
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return err
		}
		created.Items = items

		if err := c.emitCreated(ctx, tx, created, input); err != nil {
			return err
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"merchant_id":  order.MerchantID.String(),
	})
	c.logg.Info(logCtx, "order created")
	return order, nil
}

func (c *Creator) buildOrder(input reconcile.CreateOrderInput, number int64) *models.Order {
	intent := input.Intent
	decision := input.Decision

	deliveryCost := 0
	var carrierName *string
	if decision.Type == enums.FulfillmentDelivery {
		deliveryCost = decision.CostCents
		if decision.CarrierName != "" {
			name := decision.CarrierName
			carrierName = &name
		}
	}

	total := intent.SubtotalCents + intent.CustomerFeeCents + deliveryCost

	return &models.Order{
		MerchantID:            intent.MerchantID,
		CustomerID:            input.Customer.ID,
		OrderNumber:           number,
		PaymentConfirmationID: intent.ConfirmationID,
		SubtotalCents:         intent.SubtotalCents,
		PlatformFeeCents:      intent.SubtotalCents * c.platformFeeBps / 10000,
		CustomerFeeCents:      intent.CustomerFeeCents,
		DeliveryCostCents:     deliveryCost,
		TotalCents:            total,
		Status:                enums.OrderStatusPaid,
		FulfillmentType:       decision.Type,
		CarrierName:           carrierName,
	}
}

func buildLineItems(orderID uuid.UUID, items []reconcile.CartItem) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderLineItem{
			OrderID:        orderID,
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.UnitPriceCents * item.Qty,
			SellingType:    item.SellingType,
		})
	}
	return out
}

func (c *Creator) emitCreated(ctx context.Context, tx *gorm.DB, order *models.Order, input reconcile.CreateOrderInput) error {
	payload := payloads.OrderCreatedEvent{
		OrderID:               order.ID,
		OrderNumber:           order.OrderNumber,
		MerchantID:            order.MerchantID,
		CustomerID:            order.CustomerID,
		PaymentConfirmationID: order.PaymentConfirmationID,
		SubtotalCents:         order.SubtotalCents,
		TotalCents:            order.TotalCents,
		FulfillmentType:       string(order.FulfillmentType),
		DeliveryCostCents:     order.DeliveryCostCents,
		CustomerName:          input.Customer.Name,
	}
	if order.CarrierName != nil {
		payload.CarrierName = *order.CarrierName
	}
	if input.Customer.Email != nil {
		payload.CustomerEmail = *input.Customer.Email
	}

	return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data:          payload,
	})
}
