package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/pkg/enums"
)

// OrderLineItem captures the snapshot of each item within an order.
type OrderLineItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	ProductID      *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	Qty            int               `gorm:"column:qty;not null"`
	UnitPriceCents int               `gorm:"column:unit_price_cents;not null"`
	TotalCents     int               `gorm:"column:total_cents;not null"`
	SellingType    enums.SellingType `gorm:"column:selling_type;type:selling_type;not null;default:'unit'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
