package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"os"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBSlowQuery       time.Duration
	DBLogQueries      bool

	Redis     RedisConfig
	OCR       OCRConfig
	Billing   BillingConfig
	RateLimit RateLimitConfig
	Reconcile ReconcileConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OCRConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type BillingConfig struct {
	// GraceDays is the number of days between a bill's creation and its due
	// date.
	GraceDays int
	Currency  string
}

type RateLimitConfig struct {
	Enabled               bool
	ReadingIngestRate     float64
	ReadingIngestBurst    int
	LockTTL               time.Duration
	MeterLockWaitInterval time.Duration
}

type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "rentalmanager"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "rentalmanager"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBSlowQuery:       getenvDuration("DATABASE_SLOW_QUERY", 250*time.Millisecond),
		DBLogQueries:      getenvBool("DATABASE_LOG_QUERIES", false),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		OCR: OCRConfig{
			Endpoint: strings.TrimSpace(getenv("OCR_ENDPOINT", "")),
			Timeout:  getenvDuration("OCR_TIMEOUT", 3*time.Second),
		},
		Billing: BillingConfig{
			GraceDays: getenvInt("BILLING_GRACE_DAYS", 15),
			Currency:  getenv("BILLING_CURRENCY", "RON"),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", false),
			ReadingIngestRate:     getenvFloat("READING_INGEST_RATE", 5),
			ReadingIngestBurst:    getenvInt("READING_INGEST_BURST", 20),
			LockTTL:               getenvDuration("LOCK_TTL", 10*time.Second),
			MeterLockWaitInterval: getenvDuration("METER_LOCK_WAIT_INTERVAL", 50*time.Millisecond),
		},
		Reconcile: ReconcileConfig{
			Enabled:  getenvBool("RECONCILE_ENABLED", true),
			Interval: getenvDuration("RECONCILE_INTERVAL", 6*time.Hour),
		},
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getenvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
