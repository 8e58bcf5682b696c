package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/pkg/enums"
)

// Customer is the canonical identity record owning orders. A single logical
// person maps to exactly one row; phone and email are each unique when set.
type Customer struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID *uuid.UUID         `gorm:"column:merchant_id;type:uuid"`
	Name       string             `gorm:"column:name;not null"`
	Email      *string            `gorm:"column:email;uniqueIndex:ux_customers_email"`
	Phone      *string            `gorm:"column:phone;uniqueIndex:ux_customers_phone"`
	Role       enums.CustomerRole `gorm:"column:role;type:text;not null;default:'retailer'"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
