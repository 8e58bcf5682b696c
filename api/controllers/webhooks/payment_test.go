package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletworks/palletworks-backend/internal/reconcile"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	pkgerrors "github.com/palletworks/palletworks-backend/pkg/errors"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type stubReconcile struct {
	order   *models.Order
	created bool
	err     error
	event   reconcile.PaymentConfirmationEvent
	calls   int
}

func (s *stubReconcile) Reconcile(ctx context.Context, event reconcile.PaymentConfirmationEvent) (*models.Order, bool, error) {
	s.calls++
	s.event = event
	return s.order, s.created, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newOrder() *models.Order {
	return &models.Order{
		ID:                    uuid.New(),
		MerchantID:            uuid.New(),
		CustomerID:            uuid.New(),
		OrderNumber:           42,
		PaymentConfirmationID: "conf-1",
		TotalCents:            11100,
		Status:                enums.OrderStatusPaid,
		FulfillmentType:       enums.FulfillmentDelivery,
	}
}

func postConfirmation(t *testing.T, svc ReconcileService, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	PaymentConfirmation(svc, testLogger())(rec, req)
	return rec
}

func TestPaymentConfirmationCreated(t *testing.T) {
	order := newOrder()
	svc := &stubReconcile{order: order, created: true}

	rec := postConfirmation(t, svc, `{"confirmation_id":"conf-1","merchant_id":"`+order.MerchantID.String()+`","metadata":{"subtotal":"100.00"}}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "conf-1", svc.event.ConfirmationID)
	assert.Equal(t, "100.00", svc.event.Metadata["subtotal"])

	var envelope struct {
		Data struct {
			OrderID     uuid.UUID `json:"order_id"`
			OrderNumber int64     `json:"order_number"`
			TotalCents  int       `json:"total_cents"`
			Created     bool      `json:"created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, order.ID, envelope.Data.OrderID)
	assert.Equal(t, int64(42), envelope.Data.OrderNumber)
	assert.Equal(t, 11100, envelope.Data.TotalCents)
	assert.True(t, envelope.Data.Created)
}

func TestPaymentConfirmationDuplicateReturnsOK(t *testing.T) {
	svc := &stubReconcile{order: newOrder(), created: false}

	rec := postConfirmation(t, svc, `{"confirmation_id":"conf-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Created bool `json:"created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Created)
}

func TestPaymentConfirmationMissingConfirmationID(t *testing.T) {
	svc := &stubReconcile{}

	rec := postConfirmation(t, svc, `{"merchant_id":"`+uuid.NewString()+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeValidation), envelope.Error.Code)
}

func TestPaymentConfirmationInvalidJSON(t *testing.T) {
	rec := postConfirmation(t, &stubReconcile{}, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentConfirmationServiceErrorMapsToStatus(t *testing.T) {
	svc := &stubReconcile{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}

	rec := postConfirmation(t, svc, `{"confirmation_id":"conf-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
