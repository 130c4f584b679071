package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/businesssadigital-oss/backendpay/api/routes"
	"github.com/businesssadigital-oss/backendpay/internal/categories"
	"github.com/businesssadigital-oss/backendpay/internal/codes"
	"github.com/businesssadigital-oss/backendpay/internal/fulfillment"
	"github.com/businesssadigital-oss/backendpay/internal/orders"
	"github.com/businesssadigital-oss/backendpay/internal/paymentmethods"
	"github.com/businesssadigital-oss/backendpay/internal/products"
	"github.com/businesssadigital-oss/backendpay/internal/reviews"
	"github.com/businesssadigital-oss/backendpay/internal/settings"
	"github.com/businesssadigital-oss/backendpay/internal/users"
	"github.com/businesssadigital-oss/backendpay/pkg/config"
	"github.com/businesssadigital-oss/backendpay/pkg/db"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/metrics"
	"github.com/businesssadigital-oss/backendpay/pkg/migrate"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/payments"
	"github.com/businesssadigital-oss/backendpay/pkg/redis"
	"github.com/businesssadigital-oss/backendpay/pkg/ws"
)

const shutdownGrace = 10 * time.Second

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gormDB := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	productsRepo := products.NewRepository(gormDB)
	codesRepo := codes.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)

	codesService, err := codes.NewService(codesRepo, productsRepo, dbClient, events, logg)
	if err != nil {
		fatal(logg, "failed to create codes service", err)
	}
	productsService, err := products.NewService(productsRepo, codesRepo, dbClient, events, logg)
	if err != nil {
		fatal(logg, "failed to create products service", err)
	}
	categoriesService, err := categories.NewService(categories.NewRepository(gormDB), dbClient, events)
	if err != nil {
		fatal(logg, "failed to create categories service", err)
	}
	ordersService, err := orders.NewService(ordersRepo, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	reviewsService, err := reviews.NewService(reviews.NewRepository(gormDB), productsRepo, dbClient, events, logg)
	if err != nil {
		fatal(logg, "failed to create reviews service", err)
	}
	methodsService, err := paymentmethods.NewService(paymentmethods.NewRepository(gormDB), dbClient, events)
	if err != nil {
		fatal(logg, "failed to create payment methods service", err)
	}
	settingsService, err := settings.NewService(settings.NewRepository(gormDB), dbClient, events)
	if err != nil {
		fatal(logg, "failed to create settings service", err)
	}
	usersService, err := users.NewService(users.NewRepository(gormDB), dbClient, events, cfg.JWT, cfg.Password, logg)
	if err != nil {
		fatal(logg, "failed to create users service", err)
	}

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	fulfillmentService, err := fulfillment.NewService(productsRepo, codesRepo, ordersRepo, dbClient, events, appMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create fulfillment service", err)
	}

	// Payment providers are optional; an unconfigured provider leaves its
	// endpoints answering DEPENDENCY_ERROR instead of blocking startup.
	chargilyClient, err := payments.NewChargilyClient(cfg.Chargily, nil)
	if err != nil {
		logg.Warn(context.Background(), "chargily disabled: "+err.Error())
		chargilyClient = nil
	}
	paypalClient, err := payments.NewPayPalClient(cfg.PayPal, nil)
	if err != nil {
		logg.Warn(context.Background(), "paypal disabled: "+err.Error())
		paypalClient = nil
	}

	hub := ws.NewHub(logg)
	go hub.Run(ctx)
	go relayChanges(ctx, logg, redisClient, cfg.Broadcast.Channel, hub)

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
		Products:       productsService,
		Categories:     categoriesService,
		Codes:          codesService,
		Fulfillment:    fulfillmentService,
		Orders:         ordersService,
		Reviews:        reviewsService,
		PaymentMethods: methodsService,
		Settings:       settingsService,
		Users:          usersService,
	}, chargilyClient, paypalClient, hub, appMetrics, metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(context.Background(), "shutting down gracefully")
	}
}

// relayChanges forwards broadcaster messages from the Redis channel to the
// WebSocket hub. The subscription is re-established after transient failures.
func relayChanges(ctx context.Context, logg *logger.Logger, client *redis.Client, channel string, hub *ws.Hub) {
	if channel == "" {
		channel = "backendpay.changes"
	}
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := client.Subscribe(ctx, channel)
		if err != nil {
			logg.Error(ctx, "subscribe to broadcast channel failed", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		msgs := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					break recv
				}
				hub.Broadcast([]byte(msg.Payload))
			}
		}
		_ = sub.Close()
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
