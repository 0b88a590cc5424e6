// Package notify emits user notifications without ever holding up the
// operation that produced them. Emit hands the notification to a bounded
// queue; a single worker drains it into a Sink and logs sink failures.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smstudio/pkg/kafka"
	"smstudio/pkg/logger"
	"smstudio/pkg/model"
)

const (
	EventTypePrefix = "notification."
	DefaultSource   = "booking-api"

	sinkTimeout = 5 * time.Second
)

var ErrStopped = errors.New("notify: dispatcher stopped")

// Sink delivers one notification. Implementations may block.
type Sink interface {
	Send(ctx context.Context, n model.Notification) error
}

type SinkFunc func(ctx context.Context, n model.Notification) error

func (f SinkFunc) Send(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(n model.Notification)
}

type Dispatcher struct {
	sink  Sink
	log   *logger.Logger
	queue chan model.Notification

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	start   sync.Once
}

func NewDispatcher(sink Sink, queueSize int, log *logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		sink:  sink,
		log:   log,
		queue: make(chan model.Notification, queueSize),
		done:  make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		go d.run()
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, n); err != nil {
		d.log.Warn("Failed to deliver notification",
			"user_id", n.UserID,
			"booking_id", n.BookingID,
			"type", n.Type,
			"error", err,
		)
		return
	}
	d.log.Debug("Notification delivered", "user_id", n.UserID, "booking_id", n.BookingID)
}

// Emit queues n and returns immediately. A full queue drops the notification.
func (d *Dispatcher) Emit(n model.Notification) {
	if n.UserID == "" {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn("Notification dropped, dispatcher stopped", "user_id", n.UserID, "booking_id", n.BookingID)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.log.Warn("Notification dropped, queue full", "user_id", n.UserID, "booking_id", n.BookingID, "type", n.Type)
	}
}

// Stop closes the queue and waits for the worker to drain it, or for ctx.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.Start()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: drain interrupted: %w", ctx.Err())
	}
}

// Publisher is the subset of kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaSink publishes notifications as JSON keyed by recipient, so one
// user's notifications stay ordered on a partition.
type KafkaSink struct {
	publisher Publisher
	source    string
}

func NewKafkaSink(publisher Publisher, source string) *KafkaSink {
	if source == "" {
		source = DefaultSource
	}
	return &KafkaSink{publisher: publisher, source: source}
}

func (s *KafkaSink) Send(ctx context.Context, n model.Notification) error {
	msg := NewMessage(n, s.source)
	if len(msg.Value) == 0 {
		return fmt.Errorf("notify: encode notification for %s", n.UserID)
	}
	return s.publisher.Publish(ctx, msg)
}

func NewMessage(n model.Notification, source string) kafka.Message {
	b := kafka.NewMessage().
		WithKey(n.UserID).
		WithValue(n).
		WithEventType(EventTypePrefix + n.Type).
		WithSource(source)
	if n.BookingID != 0 {
		b = b.WithBookingID(n.BookingID)
	}
	return b.Build()
}

// LogSink only logs. Used when no broker is configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, n model.Notification) error {
	s.log.Info("Notification",
		"user_id", n.UserID,
		"type", n.Type,
		"title", n.Title,
		"booking_id", n.BookingID,
	)
	return nil
}

// Discard drops everything. Useful in tests and tools.
type Discard struct{}

func (Discard) Emit(model.Notification) {}
