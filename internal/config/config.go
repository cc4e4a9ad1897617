package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL and REDIS_URL are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Idempotency store
	RedisURL       string
	IdempotencyTTL time.Duration

	// Provider credentials, by channel
	SMTPProvider      string // gmail | outlook | custom | ""
	GmailEmail        string
	GmailAppPassword  string
	OutlookEmail      string
	OutlookPassword   string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFromEmail     string
	SMTPUseTLS        bool
	SMSProvider       string // console | textbelt
	TextbeltAPIKey    string
	FCMServerKey      string
	ProviderSendTimeout time.Duration

	// Dispatch
	WorkerCount         int
	RateLimitPerChannel int

	// Backoff (§4.5)
	BaseDelay      time.Duration
	ExponentialBase float64
	MaxDelay       time.Duration

	// Background tick intervals
	SchedulerInterval     time.Duration
	DLQAlertInterval      time.Duration
	RetryCleanupInterval  time.Duration
	RetryMarkerMaxAge     time.Duration

	// Scheduler/DLQ batch size per tick
	SchedulerBatchSize int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisURL:       redisURL,
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		SMTPProvider:     getEnv("SMTP_PROVIDER", ""),
		GmailEmail:       getEnv("GMAIL_EMAIL", ""),
		GmailAppPassword: getEnv("GMAIL_APP_PASSWORD", ""),
		OutlookEmail:     getEnv("OUTLOOK_EMAIL", ""),
		OutlookPassword:  getEnv("OUTLOOK_PASSWORD", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail:    getEnv("SMTP_FROM_EMAIL", ""),
		SMTPUseTLS:       getBool("SMTP_USE_TLS", true),

		SMSProvider:    getEnv("SMS_PROVIDER", "console"),
		TextbeltAPIKey: getEnv("TEXTBELT_API_KEY", ""),

		FCMServerKey: getEnv("FCM_SERVER_KEY", ""),

		ProviderSendTimeout: getDuration("PROVIDER_SEND_TIMEOUT", 10*time.Second),

		WorkerCount:         getInt("WORKER_COUNT", 4),
		RateLimitPerChannel: getInt("RATE_LIMIT_PER_CHANNEL", 100),

		BaseDelay:       getMillis("BASE_DELAY_MS", 1000),
		ExponentialBase: getFloat("EXPONENTIAL_BASE", 2.0),
		MaxDelay:        getMillis("MAX_DELAY_MS", 300_000),

		SchedulerInterval:    getDuration("SCHEDULER_INTERVAL", 60*time.Second),
		DLQAlertInterval:     getDuration("DLQ_ALERT_INTERVAL", 5*time.Minute),
		RetryCleanupInterval: getDuration("RETRY_CLEANUP_INTERVAL", 24*time.Hour),
		RetryMarkerMaxAge:    getDuration("RETRY_MARKER_MAX_AGE", 7*24*time.Hour),

		SchedulerBatchSize: getInt("SCHEDULER_BATCH_SIZE", 100),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getMillis(key string, defaultMs int) time.Duration {
	return time.Duration(getInt(key, defaultMs)) * time.Millisecond
}
