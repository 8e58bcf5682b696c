package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/internal/merchants"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/outbox"
	"github.com/palletworks/palletworks-backend/pkg/outbox/payloads"
)

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Consumer turns order-created outbox events into notification fan-out.
type Consumer struct {
	dispatcher *Dispatcher
	orders     orderLoader
	customers  customerLoader
	merchants  merchants.Repository
	logg       *logger.Logger
}

// ConsumerParams bundles the consumer dependencies.
type ConsumerParams struct {
	Dispatcher *Dispatcher
	Orders     orderLoader
	Customers  customerLoader
	Merchants  merchants.Repository
	Logger     *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders loader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers loader required")
	}
	if params.Merchants == nil {
		return nil, fmt.Errorf("merchants repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher: params.Dispatcher,
		orders:     params.Orders,
		customers:  params.Customers,
		merchants:  params.Merchants,
		logg:       params.Logger,
	}, nil
}

// Process handles one outbox envelope. Only order_created events fan out;
// everything else is acknowledged untouched.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	if eventType != enums.EventOrderCreated {
		c.logg.Info(ctx, "event not handled by notification consumer")
		return nil
	}

	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order created payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("order id missing from payload")
	}

	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	customer, err := c.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	merchant, err := c.merchants.FindByID(ctx, order.MerchantID)
	if err != nil {
		return fmt.Errorf("load merchant: %w", err)
	}

	logCtx := c.logg.WithOrderID(ctx, order.ID.String())
	results, combined := c.dispatcher.Dispatch(logCtx, Input{
		Order:    *order,
		Customer: *customer,
		Merchant: *merchant,
	})

	// Retry through redelivery only when no channel got through; a partial
	// failure would otherwise re-send the channels that already succeeded.
	if combined != nil && !anySucceeded(results) {
		return combined
	}

	c.logg.Info(logCtx, "order notifications dispatched")
	return nil
}

func anySucceeded(results []ChannelResult) bool {
	for _, result := range results {
		if !result.Skipped && result.Err == nil {
			return true
		}
	}
	return false
}
