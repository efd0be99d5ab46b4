package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
)

// ActivityLog appends one line per event to a file.
type ActivityLog struct {
	mu   sync.Mutex
	path string
}

// NewActivityLog returns an ActivityLog writing to path.
func NewActivityLog(path string) *ActivityLog { return &ActivityLog{path: path} }

// Handle decodes a delivery body and appends it to the log.
func (a *ActivityLog) Handle(body []byte) error {
	var ev CourseEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	return a.Append(ev)
}

// Append writes ev as a single line, creating the directory if needed.
func (a *ActivityLog) Append(ev CourseEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(ev.Line()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Consumer reads the activity queue and feeds the ActivityLog.
type Consumer struct {
	URL   string
	Queue string
	Log   *ActivityLog
	log   *logger.Logger
}

// NewConsumer returns a consumer for the given broker, queue and log file.
func NewConsumer(url, queueName, logPath string) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Consumer{URL: url, Queue: queueName, Log: NewActivityLog(logPath), log: logger.New("activity-consumer")}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// until ctx is cancelled. Lost connections are re-dialled with
// exponential backoff; undecodable messages are rejected without requeue
// so they cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.log.Warn("failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Log.Handle(d.Body); err != nil {
				c.log.Error("handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
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
