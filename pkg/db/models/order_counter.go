package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderCounter holds the per-merchant order number sequence. Numbers are
// advanced with an atomic upsert so concurrent reconciliations never share
// a value.
type OrderCounter struct {
	MerchantID uuid.UUID `gorm:"column:merchant_id;type:uuid;primaryKey"`
	NextNumber int64     `gorm:"column:next_number;not null;default:1"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
