package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palletworks/palletworks-backend/api/controllers"
	webhookcontrollers "github.com/palletworks/palletworks-backend/api/controllers/webhooks"
	"github.com/palletworks/palletworks-backend/api/middleware"
	"github.com/palletworks/palletworks-backend/pkg/config"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Reconcile webhookcontrollers.ReconcileService
}

// NewRouter wires the API routes and middleware chain.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)

	r.Get("/healthz", controllers.Healthz(params.Config, params.Logger, params.DB, params.Redis))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payments", webhookcontrollers.PaymentConfirmation(params.Reconcile, params.Logger))
		})
	})

	return r
}
