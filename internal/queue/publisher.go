package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
)

// Publisher sends CourseEvents to a durable RabbitMQ queue. Each publish
// dials, declares the queue and closes again, so a broker outage never
// leaves a broken connection behind.
type Publisher struct {
	URL   string
	Queue string
	log   *logger.Logger
}

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{URL: url, Queue: queueName, log: logger.New("rabbitmq")}
}

// Publish sends one event. Any error is logged and returned so the caller
// can choose to ignore it. Messages are marked as persistent.
func (p *Publisher) Publish(ctx context.Context, ev CourseEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.log.Warn("dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.log.Warn("publish failed: %v", err)
		return err
	}
	return nil
}

// Sink is anything that accepts course events.
type Sink interface {
	Publish(ctx context.Context, ev CourseEvent) error
}

// Async hands events to a Sink on a background goroutine with its own
// timeout, so request handlers never wait on the broker.
type Async struct {
	next    Sink
	timeout time.Duration
	log     *logger.Logger
}

// NewAsync wraps next. A zero timeout means five seconds.
func NewAsync(next Sink, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{next: next, timeout: timeout, log: logger.New("events")}
}

// Publish schedules the event and returns immediately.
func (a *Async) Publish(_ context.Context, ev CourseEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Publish(ctx, ev); err != nil {
			a.log.Warn("event %s (%s) dropped: %v", ev.ID, ev.Type, err)
		}
	}()
	return nil
}

// Discard drops every event. It is used when no broker is configured.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, CourseEvent) error { return nil }
