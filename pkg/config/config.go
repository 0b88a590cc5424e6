package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"smstudio/pkg/client"
	"smstudio/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	NotificationsEnabled  bool
	NotificationsTopic    string
	NotificationsDLQTopic string
	NotificationsGroupID  string
	NotifyQueueSize       int

	InvoicePrefix  string
	InvoiceDueDays int
	MaxBulkItems   int

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the optional .env file, then builds and validates the
// configuration from the environment. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envFile := getEnvStr(EnvEnvFile, DefaultEnvFile)
	envErr := godotenv.Load(envFile)

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RateLimitBurst:    getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		NotificationsEnabled:  getEnvBool(EnvNotificationsEnabled, DefaultNotificationsEnabled),
		NotificationsTopic:    getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsDLQTopic: getEnvStr(EnvNotificationsDLQTopic, DefaultNotificationsDLQTopic),
		NotificationsGroupID:  getEnvStr(EnvNotificationsGroupID, DefaultNotificationsGroupID),
		NotifyQueueSize:       getEnvNum(EnvNotifyQueueSize, DefaultNotifyQueueSize),

		InvoicePrefix:  getEnvStr(EnvInvoicePrefix, DefaultInvoicePrefix),
		InvoiceDueDays: getEnvNum(EnvInvoiceDueDays, DefaultInvoiceDueDays),
		MaxBulkItems:   getEnvNum(EnvMaxBulkItems, DefaultMaxBulkItems),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load env file", "file", envFile, "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the shared Redis client when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, using in-memory stores")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

var mongoScheme = regexp.MustCompile(`^mongodb(\+srv)?://`)

// Validate collects every configuration problem and reports them together as
// one numbered message.
func (cfg *Config) Validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		fail("Port must be between 1 and 65535, got: %s", cfg.Port)
	}

	switch {
	case cfg.MongoURI == "":
		fail("MongoURI cannot be empty")
	case !mongoScheme.MatchString(cfg.MongoURI):
		fail("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		fail("MongoDatabaseName cannot be empty")
	}
	if cfg.RedisDB < 0 {
		fail("RedisDB cannot be negative, got: %d", cfg.RedisDB)
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	} {
		if d.val <= 0 {
			fail("%s must be positive, got: %s", d.name, d.val)
		}
	}
	for _, n := range []struct {
		name string
		val  int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"RateLimitBurst", cfg.RateLimitBurst},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"NotifyQueueSize", cfg.NotifyQueueSize},
	} {
		if n.val <= 0 {
			fail("%s must be positive, got: %d", n.name, n.val)
		}
	}

	if cfg.NotificationsEnabled && cfg.NotificationsTopic == "" {
		fail("NotificationsTopic cannot be empty when notifications are enabled")
	}
	if cfg.InvoicePrefix == "" || len(cfg.InvoicePrefix) > 10 {
		fail("InvoicePrefix must be 1-10 characters, got: %q", cfg.InvoicePrefix)
	}
	if cfg.InvoiceDueDays < 0 {
		fail("InvoiceDueDays cannot be negative, got: %d", cfg.InvoiceDueDays)
	}
	if cfg.MaxBulkItems <= 0 || cfg.MaxBulkItems > DefaultMaxBulkItems {
		fail("MaxBulkItems must be between 1 and %d, got: %d", DefaultMaxBulkItems, cfg.MaxBulkItems)
	}

	if len(problems) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("Configuration validation failed:\n")
	for i, p := range problems {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
	}
	return errors.New(b.String())
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"notifications_enabled", cfg.NotificationsEnabled,
		"notifications_topic", cfg.NotificationsTopic,
		"notify_queue_size", cfg.NotifyQueueSize,
		"invoice_prefix", cfg.InvoicePrefix,
		"invoice_due_days", cfg.InvoiceDueDays,
		"max_bulk_items", cfg.MaxBulkItems,
	)
}

var mongoCredentials = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)

func redactMongoURI(uri string) string {
	return mongoCredentials.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
