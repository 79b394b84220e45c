package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	Store      StoreConfig
	Mongo      MongoConfig
	NATS       NATSConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Payment    PaymentConfig
	RateLimit  RateLimitConfig
	Reconciler ReconcilerConfig
	Log        LogConfig
}

type HTTPConfig struct {
	Port string
}

type GRPCConfig struct {
	Port string
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type StoreConfig struct {
	Driver string
	// CatalogSeedFile is a JSON array of products loaded at startup.
	CatalogSeedFile string
}

type MongoConfig struct {
	URI string
	DB  string
}

type NATSConfig struct {
	URL string
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type PaymentConfig struct {
	TestMode          bool
	SecretKey         string
	ProductCode       string
	Env               string
	FormURLUAT        string
	FormURLProd       string
	StatusURLUAT      string
	StatusURLProd     string
	BackendURL        string
	ClientURL         string
	SuccessURL        string
	FailureURL        string
	StatusTimeout     time.Duration
	TransactionPrefix string
}

func (p PaymentConfig) production() bool {
	return strings.EqualFold(p.Env, "prod") || strings.EqualFold(p.Env, "production")
}

// FormURL is the gateway form endpoint for the selected environment.
func (p PaymentConfig) FormURL() string {
	if p.production() {
		return p.FormURLProd
	}
	return p.FormURLUAT
}

// StatusURL is the transaction status endpoint for the selected environment.
func (p PaymentConfig) StatusURL() string {
	if p.production() {
		return p.StatusURLProd
	}
	return p.StatusURLUAT
}

// CallbackURLs returns the success and failure URLs the gateway redirects
// to. Explicit values win; otherwise they hang off BackendURL.
func (p PaymentConfig) CallbackURLs() (success, failure string) {
	success, failure = p.SuccessURL, p.FailureURL
	base := strings.TrimRight(p.BackendURL, "/")
	if success == "" && base != "" {
		success = base + "/api/payments/esewa/success"
	}
	if failure == "" && base != "" {
		failure = base + "/api/payments/esewa/failure"
	}
	return success, failure
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type ReconcilerConfig struct {
	Interval    time.Duration
	MinAge      time.Duration
	BatchSize   int
	MaxAttempts int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Port: getEnv("PORT", "5000"),
		},
		GRPC: GRPCConfig{
			Port: getEnv("GRPC_PORT", "50051"),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", StoreMongo),
			CatalogSeedFile: getEnv("CATALOG_SEED_FILE", ""),
		},
		Mongo: MongoConfig{
			URI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
			DB:  getEnv("MONGO_DB", "storefront"),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			CacheTTL: getEnvDuration("STATUS_CACHE_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Payment: PaymentConfig{
			TestMode:          getEnvBool("ESEWA_TEST_MODE", false),
			SecretKey:         getEnv("ESEWA_SECRET_KEY", ""),
			ProductCode:       getEnv("ESEWA_PRODUCT_CODE", "EPAYTEST"),
			Env:               getEnv("ESEWA_ENV", "uat"),
			FormURLUAT:        getEnv("ESEWA_FORM_URL_UAT", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			FormURLProd:       getEnv("ESEWA_FORM_URL_PROD", "https://epay.esewa.com.np/api/epay/main/v2/form"),
			StatusURLUAT:      getEnv("ESEWA_STATUS_URL_UAT", "https://rc.esewa.com.np/api/epay/transaction/status/"),
			StatusURLProd:     getEnv("ESEWA_STATUS_URL_PROD", "https://epay.esewa.com.np/api/epay/transaction/status/"),
			BackendURL:        getEnv("BACKEND_URL", "http://localhost:5000"),
			ClientURL:         getEnv("CLIENT_URL", "http://localhost:3000"),
			SuccessURL:        getEnv("ESEWA_SUCCESS_URL", ""),
			FailureURL:        getEnv("ESEWA_FAILURE_URL", ""),
			StatusTimeout:     getEnvDuration("ESEWA_STATUS_TIMEOUT", 10*time.Second),
			TransactionPrefix: getEnv("TRANSACTION_PREFIX", "storefront"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Reconciler: ReconcilerConfig{
			Interval:    getEnvDuration("RECONCILE_INTERVAL", time.Minute),
			MinAge:      getEnvDuration("RECONCILE_MIN_AGE", 2*time.Minute),
			BatchSize:   getEnvInt("RECONCILE_BATCH_SIZE", 50),
			MaxAttempts: getEnvInt("RECONCILE_MAX_ATTEMPTS", 10),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the process cannot start with. Missing gateway
// secrets are not fatal here: initiation refuses to run without them.
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return errors.New("PORT is required")
	}
	if c.GRPC.Port == "" {
		return errors.New("GRPC_PORT is required")
	}
	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required")
		}
		if c.Mongo.DB == "" {
			return errors.New("MONGO_DB is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Payment.TestMode && c.Payment.ClientURL == "" {
		return errors.New("CLIENT_URL is required in test mode")
	}
	if c.Payment.StatusTimeout <= 0 {
		return errors.New("ESEWA_STATUS_TIMEOUT must be positive")
	}
	if c.Reconciler.Interval <= 0 {
		return errors.New("RECONCILE_INTERVAL must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}
