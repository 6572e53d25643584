// Package broker mirrors order events onto a RabbitMQ fanout exchange so
// services outside the API process can follow the order queue.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the durable fanout exchange every event is published to.
const ExchangeName = "pos.events"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// message is the wire body, identical in shape to a websocket event.
type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher publishes order events. It satisfies service.Notifier.
type Publisher struct {
	ch   Channel
	conn *amqp.Connection

	// amqp channels must not be shared by concurrent publishers
	mu sync.Mutex
}

// Dial connects to the broker at url, opens a channel and declares the
// events exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := New(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// New wraps an open channel and declares the events exchange on it.
func New(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}
	return &Publisher{ch: ch}, nil
}

// Publish sends one event. The routing key is the event type so topic
// bindings can be added later without changing producers.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	body, err := json.Marshal(message{Type: eventType, Payload: data})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, ExchangeName, eventType, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Notify publishes an event and logs instead of returning failures.
func (p *Publisher) Notify(eventType string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, eventType, payload); err != nil {
		log.Printf("WARN: broker: %v", err)
	}
}

// Close closes the channel and, when the publisher owns it, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
