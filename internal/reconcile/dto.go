package reconcile

import (
	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
)

// PaymentConfirmationEvent is the raw webhook payload from the payment
// gateway. Metadata is an opaque string bag: some values are flat, some are
// JSON documents encoded as strings, and any of them may be missing.
type PaymentConfirmationEvent struct {
	ConfirmationID string            `json:"confirmation_id"`
	MerchantID     string            `json:"merchant_id"`
	Metadata       map[string]string `json:"metadata"`
}

// CartItem is one decoded cart entry.
type CartItem struct {
	ProductID      *uuid.UUID
	Qty            int
	UnitPriceCents int
	SellingType    enums.SellingType
}

// ShippingSelection is the explicit shipping choice made at checkout, when
// the event carries one.
type ShippingSelection struct {
	Option      string
	ServiceName string
	PriceCents  int
}

// PurchaseIntent is the typed view of a payment confirmation. It lives for a
// single reconciliation run and is never persisted.
type PurchaseIntent struct {
	ConfirmationID string
	MerchantID     uuid.UUID

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string

	Items            []CartItem
	SubtotalCents    int
	CustomerFeeCents int

	// Shipping is nil when the event carried no explicit selection.
	Shipping *ShippingSelection

	// Legacy fields kept for older event shapes.
	ShippingCostCents int
	ShippingCarrier   string
	DeliveryCostCents int
	DeliveryCarrier   string

	AutoPayDelivery bool
}

// FulfillmentDecision is derived once per run from the purchase intent.
type FulfillmentDecision struct {
	Type        enums.FulfillmentType
	CarrierName string
	CostCents   int
}

// CreateOrderInput carries everything the order creator needs to persist an
// order for this run.
type CreateOrderInput struct {
	Customer *models.Customer
	Intent   PurchaseIntent
	Decision FulfillmentDecision
}
