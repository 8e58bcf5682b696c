package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/palletworks/palletworks-backend/internal/customers"
	"github.com/palletworks/palletworks-backend/internal/merchants"
	"github.com/palletworks/palletworks-backend/internal/notifications"
	"github.com/palletworks/palletworks-backend/internal/orders"
	"github.com/palletworks/palletworks-backend/pkg/chat"
	"github.com/palletworks/palletworks-backend/pkg/config"
	"github.com/palletworks/palletworks-backend/pkg/db"
	"github.com/palletworks/palletworks-backend/pkg/email"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/metrics"
	"github.com/palletworks/palletworks-backend/pkg/outbox/idempotency"
	"github.com/palletworks/palletworks-backend/pkg/pubsub"
	"github.com/palletworks/palletworks-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer closeResource(ctx, logg, "database", dbClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer closeResource(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer closeResource(ctx, logg, "pubsub", pubsubClient.Close)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Email:   email.NewClient(cfg.Email),
		Chat:    chat.NewClient(cfg.Chat),
		Logger:  logg,
		Metrics: metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Dispatcher: dispatcher,
		Orders:     orders.NewRepository(dbClient.DB()),
		Customers:  customers.NewRepository(dbClient.DB()),
		Merchants:  merchants.NewRepository(dbClient.DB()),
		Logger:     logg,
	})
	requireResource(ctx, logg, "notification consumer", err)

	worker, err := notifications.NewWorker(pubsubClient.NotificationSubscription(), consumer, manager, logg)
	requireResource(ctx, logg, "notification worker", err)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.NotificationSubscription,
	}), "starting notification worker")

	if err := worker.Run(runCtx); err != nil && runCtx.Err() == nil {
		logg.Error(runCtx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "notification worker shut down")
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(ctx, "failed to bootstrap "+name, err)
		os.Exit(1)
	}
}

func closeResource(ctx context.Context, logg *logger.Logger, name string, close func() error) {
	if err := close(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
