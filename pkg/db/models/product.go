package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a merchant listing with two stock pools: individual
// units and whole pallets.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  uuid.UUID  `gorm:"column:merchant_id;type:uuid;not null"`
	Title       string     `gorm:"column:title;not null"`
	PriceCents  int        `gorm:"column:price_cents;not null"`
	UnitStock   int        `gorm:"column:unit_stock;not null;default:0"`
	PalletStock int        `gorm:"column:pallet_stock;not null;default:0"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
