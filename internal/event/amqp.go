package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Forwarder copies bus events onto a durable RabbitMQ queue as persistent
// JSON messages.
type Forwarder struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

func DialForwarder(url string, queue string) (*Forwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	slog.Info("event forwarder connected", "queue", queue)
	return &Forwarder{conn: conn, channel: ch, queue: queue}, nil
}

// Run forwards until events is closed or ctx is done. Publish failures are
// logged and the event is skipped.
func (f *Forwarder) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := f.forward(ctx, e); err != nil {
				slog.Error("forward event failed", "type", e.Type, "event_id", e.ID, "error", err)
			}
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return f.channel.PublishWithContext(ctx, "", f.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    ts,
		Body:         body,
	})
}

func (f *Forwarder) Close() error {
	if f.channel != nil {
		_ = f.channel.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
