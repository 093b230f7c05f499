package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQP exchange the alert events fan out on. External presentation
// collaborators (overlay renderer, TTS) bind their own queues to it.
const alertsExchange = "orderwatch.alerts"

// AMQPRenderer publishes alert events to a fanout exchange instead of
// (or in addition to) pushing them to browser agents.
type AMQPRenderer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects and declares the alerts exchange.
func DialAMQP(url string) (*AMQPRenderer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(alertsExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", alertsExchange, err)
	}
	return &AMQPRenderer{conn: conn, ch: ch}, nil
}

type amqpEvent struct {
	Event string `json:"event"`
	Alert any    `json:"alert,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Present publishes the alert as a persistent JSON message.
func (r *AMQPRenderer) Present(ctx context.Context, a Alert) error {
	return r.publish(ctx, amqpEvent{Event: "show", Alert: a})
}

// Clear publishes a teardown event for the given alert.
func (r *AMQPRenderer) Clear(ctx context.Context, alertID string) error {
	return r.publish(ctx, amqpEvent{Event: "clear", ID: alertID})
}

func (r *AMQPRenderer) publish(ctx context.Context, ev amqpEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx, alertsExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

func (r *AMQPRenderer) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}
