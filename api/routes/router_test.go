package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletworks/palletworks-backend/internal/reconcile"
	"github.com/palletworks/palletworks-backend/pkg/config"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type stubReconcileService struct {
	order *models.Order
}

func (s *stubReconcileService) Reconcile(ctx context.Context, event reconcile.PaymentConfirmationEvent) (*models.Order, bool, error) {
	return s.order, true, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	return NewRouter(RouterParams{
		Config: &config.Config{App: config.AppConfig{Env: "test"}},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:     okPinger{},
		Redis:  okPinger{},
		Reconcile: &stubReconcileService{order: &models.Order{
			ID:         uuid.New(),
			MerchantID: uuid.New(),
			CustomerID: uuid.New(),
		}},
	})
}

func TestHealthzRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentWebhookRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", strings.NewReader(`{"confirmation_id":"conf-1"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
