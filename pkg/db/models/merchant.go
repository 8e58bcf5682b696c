package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Merchant represents a wholesale seller on the platform.
type Merchant struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string         `gorm:"column:name;not null"`
	SupportEmail    string         `gorm:"column:support_email;not null"`
	AlertEmails     pq.StringArray `gorm:"column:alert_emails;type:text[];not null;default:ARRAY[]::text[]"`
	ChatAddress     *string        `gorm:"column:chat_address"`
	ChatCredentials *string        `gorm:"column:chat_credentials"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
