package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentConfirmationID(ctx context.Context, confirmationID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_confirmation_id = ?", confirmationID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// NextOrderNumber advances the merchant's counter atomically. The upsert
// means two concurrent reconciliations for the same merchant can never be
// handed the same number.
func (r *repository) NextOrderNumber(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var assigned int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO order_counters (merchant_id, next_number, updated_at)
		VALUES (?, 2, CURRENT_TIMESTAMP)
		ON CONFLICT (merchant_id)
		DO UPDATE SET next_number = order_counters.next_number + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING next_number - 1
	`, merchantID).Scan(&assigned).Error
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindLineItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
