package shipping

import (
	"context"
	"fmt"

	"github.com/palletworks/palletworks-backend/internal/reconcile"
	"github.com/palletworks/palletworks-backend/pkg/carrier"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

// Service hands delivery orders off to the carrier network for payment.
type Service struct {
	carrier carrier.Processor
	logg    *logger.Logger
}

// NewService builds the delivery payment service.
func NewService(processor carrier.Processor, logg *logger.Logger) (*Service, error) {
	if processor == nil {
		return nil, fmt.Errorf("carrier processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{carrier: processor, logg: logg}, nil
}

// MaybePayDelivery triggers carrier payment when the event asked for it and
// a concrete carrier service was chosen. Failure leaves the order valid; the
// merchant arranges payment manually.
func (s *Service) MaybePayDelivery(ctx context.Context, order *models.Order, decision reconcile.FulfillmentDecision, autoPay bool) error {
	if !autoPay {
		return nil
	}
	if decision.Type != enums.FulfillmentDelivery {
		return nil
	}
	if decision.CarrierName == "" || decision.CarrierName == reconcile.UnknownCarrierName {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "auto pay requested but no carrier service chosen, skipping")
		return nil
	}

	err := s.carrier.ProcessShippingOrder(ctx, carrier.ShippingOrderRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CarrierName: decision.CarrierName,
		CostCents:   decision.CostCents,
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"carrier":  decision.CarrierName,
	})
	s.logg.Info(logCtx, "delivery payment processed")
	return nil
}
