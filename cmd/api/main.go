package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/palletworks/palletworks-backend/api/routes"
	"github.com/palletworks/palletworks-backend/internal/customers"
	"github.com/palletworks/palletworks-backend/internal/inventory"
	"github.com/palletworks/palletworks-backend/internal/orders"
	"github.com/palletworks/palletworks-backend/internal/reconcile"
	"github.com/palletworks/palletworks-backend/internal/shipping"
	"github.com/palletworks/palletworks-backend/pkg/carrier"
	"github.com/palletworks/palletworks-backend/pkg/config"
	"github.com/palletworks/palletworks-backend/pkg/db"
	"github.com/palletworks/palletworks-backend/pkg/env"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/metrics"
	"github.com/palletworks/palletworks-backend/pkg/migrate"
	"github.com/palletworks/palletworks-backend/pkg/outbox"
	"github.com/palletworks/palletworks-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reconcileMetrics := metrics.NewReconcileMetrics(prometheus.DefaultRegisterer)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	resolver, err := customers.NewResolver(customers.ResolverParams{
		Repo:           customers.NewRepository(dbClient.DB()),
		ForcedAccounts: cfg.Reconcile.ForcedCustomerOverrides(),
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer resolver", err)
		os.Exit(1)
	}

	creator, err := orders.NewCreator(orders.CreatorParams{
		Repo:           orders.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Outbox:         outboxSvc,
		Logger:         logg,
		PlatformFeeBps: cfg.Reconcile.PlatformFeeBps,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order creator", err)
		os.Exit(1)
	}

	adjuster, err := inventory.NewAdjuster(inventory.AdjusterParams{
		Tx:      dbClient,
		Logger:  logg,
		Metrics: reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory adjuster", err)
		os.Exit(1)
	}

	shippingSvc, err := shipping.NewService(carrier.NewClient(cfg.Carrier), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	reconcileSvc, err := reconcile.NewService(reconcile.ServiceParams{
		Decoder:      reconcile.NewDecoder(logg),
		Customers:    resolver,
		Orders:       creator,
		Inventory:    adjuster,
		Shipping:     shippingSvc,
		Logger:       logg,
		Metrics:      reconcileMetrics,
		StageTimeout: cfg.Reconcile.StageTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Reconcile: reconcileSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
