package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	kafka_config "smstudio/pkg/kafka/config"
	"smstudio/pkg/logger"
)

// ProducerMiddleware wraps Publish, outermost first in registration order.
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

// Producer publishes notification events. Messages the broker refuses are
// parked on the dead letter topic when one is configured.
type Producer struct {
	writer     *kafka.Writer
	dlqWriter  *kafka.Writer
	topic      string
	middleware []ProducerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
}

var compressionCodecs = map[string]compress.Compression{
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

var requiredAcks = map[int]kafka.RequiredAcks{
	-1: kafka.RequireAll,
	0:  kafka.RequireNone,
	1:  kafka.RequireOne,
}

func NewProducer(cfg *kafka_config.Config, topic string, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	p := &Producer{
		writer: newWriter(cfg, topic, cfg.ProducerMaxAttempts, log),
		topic:  topic,
		log:    log,
	}
	if dlqTopic != "" {
		p.dlqWriter = newWriter(cfg, dlqTopic, 3, log)
		p.dlqWriter.RequiredAcks = kafka.RequireAll
	}
	return p, nil
}

// newWriter hashes on the key so one recipient's events stay ordered.
func newWriter(cfg *kafka_config.Config, topic string, maxAttempts int, log *logger.Logger) *kafka.Writer {
	acks, ok := requiredAcks[cfg.ProducerRequireAcks]
	if !ok {
		acks = kafka.RequireAll
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Compression:  compressionCodecs[cfg.ProducerCompression],
		MaxAttempts:  maxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:  errorLogger(log, topic),
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	chain := p.middleware
	p.mu.RUnlock()
	if closed {
		return ErrProducerClosed
	}

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	if msg.Topic == "" {
		msg.Topic = p.topic
	}

	handler := p.write
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, msg.toKafka())
	if err == nil || p.dlqWriter == nil {
		return err
	}
	if dlqErr := p.dlqWriter.WriteMessages(ctx, deadLetter(msg, p.topic, "", err)); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
	}
	p.log.Warn("Notification parked on DLQ", "topic", p.topic, "key", msg.Key, "error", err)
	return err
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		err = errors.Join(err, p.dlqWriter.Close())
	}
	return err
}

// errorLogger routes kafka-go client errors through the service logger.
func errorLogger(log *logger.Logger, topic string) kafka.LoggerFunc {
	return func(msg string, args ...any) {
		log.Error("kafka client error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
	}
}
