package webhooks

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/api/responses"
	"github.com/palletworks/palletworks-backend/api/validators"
	"github.com/palletworks/palletworks-backend/internal/reconcile"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	pkgerrors "github.com/palletworks/palletworks-backend/pkg/errors"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

// ReconcileService is the pipeline entry point consumed by this controller.
type ReconcileService interface {
	Reconcile(ctx context.Context, event reconcile.PaymentConfirmationEvent) (*models.Order, bool, error)
}

type paymentConfirmationRequest struct {
	ConfirmationID string            `json:"confirmation_id" validate:"required"`
	MerchantID     string            `json:"merchant_id"`
	Metadata       map[string]string `json:"metadata"`
}

type orderResponse struct {
	OrderID               uuid.UUID `json:"order_id"`
	OrderNumber           int64     `json:"order_number"`
	MerchantID            uuid.UUID `json:"merchant_id"`
	CustomerID            uuid.UUID `json:"customer_id"`
	PaymentConfirmationID string    `json:"payment_confirmation_id"`
	TotalCents            int       `json:"total_cents"`
	Status                string    `json:"status"`
	FulfillmentType       string    `json:"fulfillment_type"`
	Created               bool      `json:"created"`
}

// PaymentConfirmation accepts gateway confirmation events and runs the
// reconciliation pipeline. Redelivered confirmations return the existing
// order with a 200, so the gateway can safely retry.
func PaymentConfirmation(svc ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		var req paymentConfirmationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, created, err := svc.Reconcile(ctx, reconcile.PaymentConfirmationEvent{
			ConfirmationID: req.ConfirmationID,
			MerchantID:     req.MerchantID,
			Metadata:       req.Metadata,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, orderResponse{
			OrderID:               order.ID,
			OrderNumber:           order.OrderNumber,
			MerchantID:            order.MerchantID,
			CustomerID:            order.CustomerID,
			PaymentConfirmationID: order.PaymentConfirmationID,
			TotalCents:            order.TotalCents,
			Status:                string(order.Status),
			FulfillmentType:       string(order.FulfillmentType),
			Created:               created,
		})
	}
}
