package kafka_middleware

import (
	"context"
	"time"

	"smstudio/pkg/kafka"
	"smstudio/pkg/logger"
)

func messageAttrs(msg kafka.Message) []any {
	return []any{
		"topic", msg.Topic,
		"key", msg.Key,
		"event_id", msg.GetEventID(),
		"event_type", msg.GetEventType(),
		"booking_id", msg.GetBookingID(),
	}
}

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := append(messageAttrs(msg), "duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			log.Error("Failed to publish notification", append(attrs, "error", err)...)
		} else {
			log.Debug("Published notification", attrs...)
		}
		return err
	}
}

// LoggingConsumerMiddleware logs each attempt, so a retried message shows up once per try.
func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := append(messageAttrs(msg),
			"partition", msg.Partition,
			"offset", msg.Offset,
			"retry", msg.GetRetryCount(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if err != nil {
			log.Warn("Failed to process notification", append(attrs, "error", err)...)
		} else {
			log.Info("Processed notification", attrs...)
		}
		return err
	}
}
