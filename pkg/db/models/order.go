package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/pkg/enums"
)

// Order is the durable record of a sale. The payment confirmation id is the
// idempotency key: the unique index guarantees at most one order per
// confirmation regardless of how often the upstream event is delivered.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID            uuid.UUID             `gorm:"column:merchant_id;type:uuid;not null"`
	CustomerID            uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	OrderNumber           int64                 `gorm:"column:order_number;not null"`
	PaymentConfirmationID string                `gorm:"column:payment_confirmation_id;not null;uniqueIndex:ux_orders_payment_confirmation_id"`
	SubtotalCents         int                   `gorm:"column:subtotal_cents;not null"`
	PlatformFeeCents      int                   `gorm:"column:platform_fee_cents;not null;default:0"`
	CustomerFeeCents      int                   `gorm:"column:customer_fee_cents;not null;default:0"`
	DeliveryCostCents     int                   `gorm:"column:delivery_cost_cents;not null;default:0"`
	TotalCents            int                   `gorm:"column:total_cents;not null"`
	Status                enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'paid'"`
	FulfillmentType       enums.FulfillmentType `gorm:"column:fulfillment_type;type:fulfillment_type;not null;default:'pickup'"`
	CarrierName           *string               `gorm:"column:carrier_name"`
	Items                 []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
