package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvNotificationsEnabled  = "NOTIFICATIONS_ENABLED"
	EnvNotificationsTopic    = "KAFKA_NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQTopic = "KAFKA_NOTIFICATIONS_DLQ_TOPIC"
	EnvNotificationsGroupID  = "KAFKA_NOTIFICATIONS_GROUP_ID"
	EnvNotifyQueueSize       = "NOTIFY_QUEUE_SIZE"

	EnvInvoicePrefix  = "INVOICE_PREFIX"
	EnvInvoiceDueDays = "INVOICE_DUE_DAYS"
	EnvMaxBulkItems   = "MAX_BULK_ITEMS"
)
