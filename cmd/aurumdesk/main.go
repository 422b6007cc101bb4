// Command aurumdesk runs the order-management backend for the
// precious-metals trading platform.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/catalog"
	"github.com/aurumdesk/aurumdesk/internal/custody"
	"github.com/aurumdesk/aurumdesk/internal/infrastructure/config"
	"github.com/aurumdesk/aurumdesk/internal/infrastructure/database"
	"github.com/aurumdesk/aurumdesk/internal/infrastructure/server"
	"github.com/aurumdesk/aurumdesk/internal/notifications"
	"github.com/aurumdesk/aurumdesk/internal/orders"
	"github.com/aurumdesk/aurumdesk/internal/payments"
	"github.com/aurumdesk/aurumdesk/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aurumdesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, event dedupe uses the store only", zap.Error(err))
			cache = nil
		}
	}

	var notifier notifications.Notifier = notifications.NopNotifier{}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := notifications.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kafkaNotifier.Close() //nolint:errcheck
		notifier = kafkaNotifier
	}

	pricing, err := pricingConfig(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("pricing config: %w", err)
	}

	catalogStore := catalog.NewStore(db, log)
	custodyStore := custody.NewStore(db)
	repo := orders.NewRepository(db, cache, log)
	enricher := orders.NewStockEnrichmentValidator(catalogStore, cfg.Pricing.CatalogTimeout, log)
	hooks := orders.NewHookRunner(log, orders.NotificationHook(notifier))
	orderService := orders.NewService(repo, enricher, custodyStore, pricing, hooks, log)

	verifier := payments.NewSignatureVerifier([]byte(cfg.Payments.WebhookSecret), cfg.Payments.SignatureTolerance)
	reconciler := payments.NewReconciliationService(verifier, repo, hooks, log)

	router := server.NewRouter(log, cfg.Server)
	v1 := router.Group("/v1")
	orders.Routes(v1, orders.NewHandler(orderService, log), []byte(cfg.Auth.JWTSecret))
	payments.Routes(v1, payments.NewWebhookHandler(reconciler, log))

	httpServer := server.NewHTTPServer(router, cfg.Server, log)

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := httpServer.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func pricingConfig(cfg config.PricingConfig) (orders.PricingConfig, error) {
	pricing := orders.DefaultPricingConfig()
	for _, field := range []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{cfg.ProcessingFeeRate, &pricing.ProcessingFeeRate},
		{cfg.TaxRate, &pricing.TaxRate},
		{cfg.ShippingFee, &pricing.ShippingFee},
		{cfg.InsuranceFee, &pricing.InsuranceFee},
	} {
		if field.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			return orders.PricingConfig{}, fmt.Errorf("invalid rate %q: %w", field.raw, err)
		}
		*field.dest = d
	}
	return pricing, nil
}
