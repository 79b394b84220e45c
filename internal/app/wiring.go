package app

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/infrastructure/cache"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/infrastructure/nats"
	"storefront/internal/usecase"
)

type statusCache interface {
	usecase.StatusCache
	Close()
}

func paymentSettings(cfg *config.Config) usecase.PaymentSettings {
	success, failure := cfg.Payment.CallbackURLs()
	return usecase.PaymentSettings{
		TestMode:                cfg.Payment.TestMode,
		SecretKey:               cfg.Payment.SecretKey,
		ProductCode:             cfg.Payment.ProductCode,
		FormURL:                 cfg.Payment.FormURL(),
		SuccessURL:              success,
		FailureURL:              failure,
		ClientURL:               cfg.Payment.ClientURL,
		TransactionPrefix:       cfg.Payment.TransactionPrefix,
		MaxVerificationAttempts: cfg.Reconciler.MaxAttempts,
	}
}

// NewPaymentUseCase builds the payment flow against the configured gateway.
// Cache, publisher and metrics are optional.
func NewPaymentUseCase(cfg *config.Config, stores *Stores, sc usecase.StatusCache, publisher usecase.EventPublisher, m *metrics.Registry, log *logger.Logger) *usecase.PaymentUseCase {
	checker := gateway.NewStatusClient(cfg.Payment.StatusURL(), cfg.Payment.StatusTimeout)

	uc := usecase.NewPaymentUseCase(stores.Orders, stores.Products, checker, paymentSettings(cfg), log)
	if sc != nil {
		uc.SetCache(sc)
	}
	if publisher != nil {
		uc.SetPublisher(publisher)
	}
	if m != nil {
		uc.SetMetrics(m)
	}
	return uc
}

// OpenStatusCache prefers Redis and falls back to process memory.
func OpenStatusCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) statusCache {
	if cfg.URL == "" {
		log.Info("REDIS_URL not set, caching gateway status in memory")
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	c, err := cache.NewRedisCache(ctx, cfg.URL, cfg.CacheTTL, log)
	if err != nil {
		log.Warn("Failed to connect to Redis, caching gateway status in memory", "error", err)
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	log.Info("Connected to Redis successfully")
	return c
}

// OpenPublisher connects to NATS, or returns a publisher that drops events.
func OpenPublisher(cfg config.NATSConfig, log *logger.Logger) usecase.EventPublisher {
	if cfg.URL == "" {
		log.Info("NATS URL not set, event publishing disabled")
		return nats.NoopPublisher{}
	}

	publisher, err := nats.NewNatsPublisher(cfg.URL, log)
	if err != nil {
		log.Warn("Failed to connect to NATS, continuing without event publishing",
			"error", err,
			"url", cfg.URL)
		return nats.NoopPublisher{}
	}

	log.Info("Connected to NATS successfully")
	return publisher
}
