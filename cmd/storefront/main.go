package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_pizza/internal/cache"
	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/cartstore"
	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/checkout"
	"github.com/fjod/go_pizza/internal/config"
	"github.com/fjod/go_pizza/internal/events"
	"github.com/fjod/go_pizza/internal/orders"
	"github.com/fjod/go_pizza/internal/telemetry"
	"github.com/fjod/go_pizza/pkg/circuitbreaker"
	"github.com/fjod/go_pizza/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	h "github.com/fjod/go_pizza/internal/http"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	telemetryOpts := telemetry.Options{ServiceName: "storefront"}
	if cfg.TraceStdout {
		telemetryOpts.Stdout = os.Stdout
	}
	shutdownTracing, err := telemetry.Setup(telemetryOpts)
	if err != nil {
		zl.Fatal("Failed to set up tracing", zap.Error(err))
	}

	ctx := context.Background()

	// Catalog (SQLite)
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		zl.Fatal("Failed to open catalog database", zap.Error(err))
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		zl.Fatal("Failed to migrate catalog", zap.Error(err))
	}
	zl.Info("Catalog ready", zap.String("path", cfg.CatalogDBPath))

	// Orders (Postgres)
	cred := &orders.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.OrdersMigrationsPath,
	}
	orderRepo, err := orders.NewRepository(cred)
	if err != nil {
		zl.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(cred); err != nil {
		zl.Fatal("Failed to migrate orders", zap.Error(err))
	}
	zl.Info("Connected to Postgres", zap.String("host", cfg.PostgresHost))

	// Carts (MongoDB behind a Redis read cache)
	mongoDB, err := cartstore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	cartRepo := cartstore.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		zl.Fatal("Failed to create cart indexes", zap.Error(err))
	}
	zl.Info("Connected to MongoDB", zap.String("uri", cfg.MongoURI))

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zl.Fatal("Redis connection failed", zap.Error(err))
	}

	cartStorage := cartstore.NewCachedStorage(cartRepo, cache.NewRedisCache(redisClient), zl.Named("cartstore"))
	carts := cart.NewManager(cartStorage)

	// Order events: written to the Postgres outbox with each order change, relayed to Kafka behind a circuit breaker
	kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
	defer kafkaPublisher.Close()
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name: "kafka-publisher",
		OnStateChange: func(name, from, to string) {
			zl.Warn("Circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		},
	})
	relay := orders.NewOutboxRelay(orderRepo, events.NewBreakerPublisher(kafkaPublisher, breaker), zl.Named("outbox"))

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go relay.Run(relayCtx)

	pricing := checkout.Pricing{
		DeliveryFee: cfg.DeliveryFee,
		TaxRate:     cfg.TaxRate,
		DeliveryETA: cfg.DeliveryETA,
		PickupETA:   cfg.PickupETA,
	}
	checkoutService := checkout.NewService(orderRepo, pricing, zl.Named("checkout"))
	statusService := orders.NewStatusService(orderRepo, zl.Named("orders"))

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		h.Handlers{
			Products: h.NewProductHandler(catalogRepo, cfg.RequestTimeout, zl),
			Cart:     h.NewCartHandler(carts, catalogRepo, cfg.RequestTimeout, zl),
			Checkout: h.NewCheckoutHandler(carts, checkoutService, cfg.RequestTimeout, zl),
			Orders:   h.NewOrdersHandler(statusService, cfg.RequestTimeout, zl),
		},
		zl.Named("http"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("Storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down storefront...")
	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		zl.Warn("Failed to disconnect MongoDB", zap.Error(err))
	}
	zl.Info("Storefront stopped")
}
