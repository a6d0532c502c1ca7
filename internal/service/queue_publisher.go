package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/queue"
)

// defaultDialTimeout bounds dial and handshake when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// AMQPPublisher publishes auth events to the durable auth.events queue.
// Each call dials its own connection; auth events are low volume and a
// broker outage must never hold a shared connection in a broken state.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuthEvent) error {
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return ctx.Err()
		}
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.AuthEventsQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",                    // default exchange
		queue.AuthEventsQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
}

// ErrEventDropped is returned by AsyncPublisher when its buffer is full.
var ErrEventDropped = errors.New("auth event dropped: buffer full")

// AsyncPublisher decouples requests from the broker.  Publish only enqueues;
// a single Run loop forwards events to the wrapped publisher.
type AsyncPublisher struct {
	next    EventPublisher
	events  chan queue.AuthEvent
	timeout time.Duration
	log     *logger.Logger
}

// NewAsyncPublisher buffers up to size events in front of next.
func NewAsyncPublisher(next EventPublisher, size int, log *logger.Logger) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AsyncPublisher{next: next, events: make(chan queue.AuthEvent, size), timeout: 5 * time.Second, log: log}
}

// Publish enqueues ev without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrEventDropped
	}
}

// Run forwards queued events until ctx is cancelled.
func (p *AsyncPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			pctx, cancel := context.WithTimeout(ctx, p.timeout)
			if err := p.next.Publish(pctx, ev); err != nil {
				p.log.Warn().Err(err).Str("event", ev.Type).Msg("forward auth event failed")
			}
			cancel()
		}
	}
}
