package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	kafka_config "smstudio/pkg/kafka/config"
	"smstudio/pkg/logger"
)

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// Consumer reads a topic in a consumer group. Each message is retried while
// ShouldRetry allows, then dead-lettered, and its offset is committed either way.
type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	maxRetries int
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, topic string, groupID string, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        groupID,
			MaxBytes:       cfg.ConsumerMaxBytes,
			MaxWait:        cfg.ConsumerMaxWait,
			CommitInterval: cfg.ConsumerCommitInterval,
			SessionTimeout: cfg.ConsumerSessionTimeout,
			StartOffset:    cfg.ConsumerStartOffset,
			Logger:         kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:    errorLogger(log, topic),
		}),
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		log:        log,
	}
	if dlqTopic != "" {
		c.dlqWriter = newWriter(cfg, dlqTopic, 3, log)
		c.dlqWriter.RequiredAcks = kafka.RequireAll
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start blocks until ctx is cancelled or the consumer is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.log.Error("Failed to fetch message", "topic", c.topic, "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafka(km)
		if err := c.process(ctx, msg); err != nil {
			c.log.Warn("Message processing failed", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
		if err := c.reader.CommitMessages(ctx, km); err != nil {
			c.log.Error("Failed to commit offset", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	handler := c.chain()
	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if ShouldRetry(err, retries, c.maxRetries) {
			c.log.Warn("Retrying message", "attempt", retries+1, "max_retries", c.maxRetries, "error", err)
			if !sleep(ctx, retryBackoff(retries)) {
				return ctx.Err()
			}
			msg.IncrementRetryCount()
			continue
		}

		c.deadLetter(ctx, msg, err)
		return err
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, cause error) {
	if c.dlqWriter == nil {
		return
	}
	if err := c.dlqWriter.WriteMessages(ctx, deadLetter(msg, c.topic, c.groupID, cause)); err != nil {
		c.log.Error("Failed to send message to DLQ", "topic", c.topic, "error", err, "original_error", cause)
		return
	}
	c.log.Warn("Message sent to DLQ", "topic", c.topic, "retries", msg.GetRetryCount(), "error", cause)
}

// Close waits for an in-flight Start loop to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		err = errors.Join(err, c.dlqWriter.Close())
	}
	return err
}

func retryBackoff(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	return min(d, 5*time.Second)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
