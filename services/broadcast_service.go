package services

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bakeprint/bakeprint-api/config"
)

// OrderEvent is the payload fanned out to interested listeners whenever an
// order changes state
type OrderEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BakerID     uint      `json:"baker_id"`
	EventType   string    `json:"event_type"` // stage_changed, details_updated, details_confirmed, ...
	Stage       string    `json:"stage"`
	ActorID     uint      `json:"actor_id"`
	ActorEmail  string    `json:"actor_email,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Broadcaster fans order events out to listeners. Fan-out is best-effort:
// the absence of a live subscriber is not an error, and callers never block a
// committed state change on a broadcast failure.
type Broadcaster interface {
	EmitOrderUpdate(event OrderEvent) error
	Close()
}

var broadcasterInstance Broadcaster

// GetBroadcaster returns the initialized broadcaster instance
func GetBroadcaster() Broadcaster {
	return broadcasterInstance
}

// SetBroadcaster sets the broadcaster instance (primarily for testing)
func SetBroadcaster(b Broadcaster) {
	broadcasterInstance = b
}

// RabbitBroadcaster publishes order events to a durable topic exchange.
// Listeners bind queues to the routing keys they care about: the order room
// (order.<id>), the admin room (admin) and the owning baker's room
// (baker.<id>).
type RabbitBroadcaster struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// InitRabbitBroadcaster connects to RabbitMQ, declares the order event
// exchange and installs the broadcaster as the global instance
func InitRabbitBroadcaster(cfg *config.Config) (Broadcaster, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.OrderExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare order exchange: %w", err)
	}

	broadcasterInstance = &RabbitBroadcaster{
		conn:     conn,
		channel:  ch,
		exchange: cfg.OrderExchange,
	}
	return broadcasterInstance, nil
}

// EmitOrderUpdate publishes the event to the order, admin and baker routing
// keys. A missing subscriber is not an error; only publish failures surface.
func (b *RabbitBroadcaster) EmitOrderUpdate(event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
	}

	routingKeys := []string{
		fmt.Sprintf("order.%d", event.OrderID),
		"admin",
		fmt.Sprintf("baker.%d", event.BakerID),
	}
	for _, key := range routingKeys {
		if err := b.channel.Publish(
			b.exchange,
			key,
			false, // mandatory
			false, // immediate
			msg,
		); err != nil {
			return fmt.Errorf("failed to publish order event to %s: %w", key, err)
		}
	}
	return nil
}

// Close shuts down the channel and connection, best-effort
func (b *RabbitBroadcaster) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

// NoopBroadcaster discards every event. Used when no broker is configured.
type NoopBroadcaster struct{}

func (NoopBroadcaster) EmitOrderUpdate(event OrderEvent) error { return nil }
func (NoopBroadcaster) Close()                                 {}
