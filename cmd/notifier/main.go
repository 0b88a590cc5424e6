package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smstudio/internal/notifications/handler"
	"smstudio/internal/notifications/repository"
	"smstudio/pkg/config"
	"smstudio/pkg/kafka"
	kafka_config "smstudio/pkg/kafka/config"
	kafka_middleware "smstudio/pkg/kafka/middleware"
)

const (
	ServiceName     = "notifier"
	metricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	notifications := handler.NewNotificationHandler(repository.NewMongoNotificationRepository(cfg), cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.NotificationsTopic,
		cfg.NotificationsGroupID,
		cfg.NotificationsDLQTopic,
		notifications.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportMetrics(ctx, cfg)

	cfg.Log.Info("Starting notification consumer",
		"topic", cfg.NotificationsTopic,
		"group_id", cfg.NotificationsGroupID,
		"dlq_topic", cfg.NotificationsDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	kafka_middleware.GetMetrics().LogMetrics(cfg.Log)
	cfg.Log.Info("Notification consumer stopped")
}

func reportMetrics(ctx context.Context, cfg *config.Config) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kafka_middleware.GetMetrics().LogMetrics(cfg.Log)
		}
	}
}
