package merchants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
)

// Repository defines read access to merchant records.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a merchants repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}
