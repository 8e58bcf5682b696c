package payloads

import "github.com/google/uuid"

// OrderCreatedEvent is emitted transactionally with each new order and drives
// the notification fan-out worker.
type OrderCreatedEvent struct {
	OrderID               uuid.UUID `json:"order_id"`
	OrderNumber           int64     `json:"order_number"`
	MerchantID            uuid.UUID `json:"merchant_id"`
	CustomerID            uuid.UUID `json:"customer_id"`
	PaymentConfirmationID string    `json:"payment_confirmation_id"`
	SubtotalCents         int       `json:"subtotal_cents"`
	TotalCents            int       `json:"total_cents"`
	FulfillmentType       string    `json:"fulfillment_type"`
	CarrierName           string    `json:"carrier_name,omitempty"`
	DeliveryCostCents     int       `json:"delivery_cost_cents"`
	CustomerEmail         string    `json:"customer_email,omitempty"`
	CustomerName          string    `json:"customer_name,omitempty"`
}
