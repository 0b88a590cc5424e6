package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "smstudio"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultRateLimitBurst    = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultNotificationsEnabled  = false
	DefaultNotificationsTopic    = "booking.notifications"
	DefaultNotificationsDLQTopic = "booking.notifications.dlq"
	DefaultNotificationsGroupID  = "notifier"
	DefaultNotifyQueueSize       = 256

	DefaultInvoicePrefix  = "INV"
	DefaultInvoiceDueDays = 0
	DefaultMaxBulkItems   = 366
)
