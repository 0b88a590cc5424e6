package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"smstudio/pkg/kafka"
	"smstudio/pkg/logger"
)

// counter tracks successes, failures and total time for one direction.
type counter struct {
	ok       atomic.Int64
	failed   atomic.Int64
	duration atomic.Int64
}

func (c *counter) observe(start time.Time, err error) {
	c.duration.Add(int64(time.Since(start)))
	if err != nil {
		c.failed.Add(1)
		return
	}
	c.ok.Add(1)
}

func (c *counter) avg() time.Duration {
	n := c.ok.Load() + c.failed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(c.duration.Load() / n)
}

func (c *counter) reset() {
	c.ok.Store(0)
	c.failed.Store(0)
	c.duration.Store(0)
}

// Metrics is process-wide; the API publishes and the notifier consumes.
type Metrics struct {
	published counter
	consumed  counter
}

var globalMetrics = &Metrics{}

func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) Reset() {
	m.published.reset()
	m.consumed.reset()
}

func (m *Metrics) Published() (ok, failed int64) {
	return m.published.ok.Load(), m.published.failed.Load()
}

func (m *Metrics) Consumed() (ok, failed int64) {
	return m.consumed.ok.Load(), m.consumed.failed.Load()
}

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		globalMetrics.published.observe(start, err)
		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		globalMetrics.consumed.observe(start, err)
		return err
	}
}

func (m *Metrics) LogMetrics(log *logger.Logger) {
	published, publishFailed := m.Published()
	consumed, consumeFailed := m.Consumed()
	log.Info("Kafka metrics",
		"published", published,
		"publish_failed", publishFailed,
		"avg_publish_duration", m.published.avg().String(),
		"consumed", consumed,
		"consume_failed", consumeFailed,
		"avg_consume_duration", m.consumed.avg().String(),
	)
}
