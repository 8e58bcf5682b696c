package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/internal/customers"
	"github.com/palletworks/palletworks-backend/internal/inventory"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	pkgerrors "github.com/palletworks/palletworks-backend/pkg/errors"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/metrics"
)

const defaultStageTimeout = 10 * time.Second

type customerResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, input customers.ResolveInput) (*models.Customer, error)
}

type orderCreator interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, bool, error)
}

type stockAdjuster interface {
	AdjustForItems(ctx context.Context, items []models.OrderLineItem) []inventory.Outcome
}

type deliveryPayer interface {
	MaybePayDelivery(ctx context.Context, order *models.Order, decision FulfillmentDecision, autoPay bool) error
}

// Service is the reconciliation pipeline entry point. It converts a payment
// confirmation event into a durable order and runs the best-effort stages
// that follow creation.
type Service struct {
	decoder      *Decoder
	customers    customerResolver
	orders       orderCreator
	inventory    stockAdjuster
	shipping     deliveryPayer
	logg         *logger.Logger
	metrics      *metrics.ReconcileMetrics
	stageTimeout time.Duration
}

// ServiceParams bundles the pipeline dependencies.
type ServiceParams struct {
	Decoder      *Decoder
	Customers    customerResolver
	Orders       orderCreator
	Inventory    stockAdjuster
	Shipping     deliveryPayer
	Logger       *logger.Logger
	Metrics      *metrics.ReconcileMetrics
	StageTimeout time.Duration
}

// NewService builds the reconciliation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Decoder == nil {
		return nil, fmt.Errorf("decoder required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeout := params.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}

	return &Service{
		decoder:      params.Decoder,
		customers:    params.Customers,
		orders:       params.Orders,
		inventory:    params.Inventory,
		shipping:     params.Shipping,
		logg:         params.Logger,
		metrics:      params.Metrics,
		stageTimeout: timeout,
	}, nil
}

// Reconcile converts one payment confirmation into an order. The boolean
// reports whether this call created the order; a duplicate confirmation
// returns the existing order with no further side effects.
func (s *Service) Reconcile(ctx context.Context, event PaymentConfirmationEvent) (*models.Order, bool, error) {
	started := time.Now()

	intent := s.decoder.Decode(ctx, event)
	if intent.ConfirmationID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment confirmation id required")
	}
	if intent.MerchantID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}

	ctx = s.logg.WithConfirmationID(ctx, intent.ConfirmationID)
	ctx = s.logg.WithMerchantID(ctx, intent.MerchantID.String())

	customer, err := s.resolveCustomer(ctx, intent)
	if err != nil {
		s.observe("customer_error", started)
		return nil, false, err
	}

	decision := ClassifyFulfillment(intent)

	order, created, err := s.orders.Create(ctx, CreateOrderInput{
		Customer: customer,
		Intent:   intent,
		Decision: decision,
	})
	if err != nil {
		s.observe("create_error", started)
		return nil, false, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if !created {
		s.logg.Info(ctx, "confirmation already reconciled, returning existing order")
		s.metrics.IncDuplicate()
		s.observe("duplicate", started)
		return order, false, nil
	}

	// Everything below is best-effort: the order is durable and a stage
	// failure is logged as recoverable, never propagated to the caller.
	s.adjustStock(ctx, order)
	s.payDelivery(ctx, order, decision, intent.AutoPayDelivery)

	s.logg.Info(ctx, "reconciliation complete")
	s.observe("created", started)
	return order, true, nil
}

func (s *Service) resolveCustomer(ctx context.Context, intent PurchaseIntent) (*models.Customer, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	defer cancel()

	return s.customers.Resolve(stageCtx, nil, customers.ResolveInput{
		MerchantID: intent.MerchantID,
		Name:       intent.CustomerName,
		Phone:      intent.CustomerPhone,
		Email:      intent.CustomerEmail,
	})
}

func (s *Service) adjustStock(ctx context.Context, order *models.Order) {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	defer cancel()
	s.inventory.AdjustForItems(stageCtx, order.Items)
}

func (s *Service) payDelivery(ctx context.Context, order *models.Order, decision FulfillmentDecision, autoPay bool) {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	defer cancel()

	if err := s.shipping.MaybePayDelivery(stageCtx, order, decision, autoPay); err != nil {
		s.logg.Error(ctx, "delivery payment failed, merchant pays manually", err)
		s.metrics.IncStageFailure("delivery_payment")
	}
}

func (s *Service) observe(result string, started time.Time) {
	s.metrics.ObserveRun(result, time.Since(started))
}
