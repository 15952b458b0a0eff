// Package broker publishes booking lifecycle events to a RabbitMQ topic
// exchange for downstream integrations.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is used when AMQP_EXCHANGE is empty.
	DefaultExchange = "mindbridge.bookings"
	exchangeKind    = "topic"
	publishTimeout  = 5 * time.Second
)

// EventPublisher publishes booking events. Implementations must be safe
// for concurrent use.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, evt models.BookingEvent) error
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a durable topic exchange. The routing key is
// the event type, e.g. booking.approved.
type Publisher struct {
	exchange string
	conn     *amqp.Connection

	mu sync.Mutex
	ch channel
}

// NewPublisher dials url and declares the exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Publisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func newPublisherWithChannel(exchange string, ch channel) *Publisher {
	return &Publisher{exchange: exchange, ch: ch}
}

// PublishBookingEvent publishes evt as persistent JSON.
func (p *Publisher) PublishBookingEvent(ctx context.Context, evt models.BookingEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	middleware.Logger.DebugContext(ctx, "booking event published",
		slog.String("exchange", p.exchange),
		slog.String("routing_key", string(evt.Type)),
		slog.Uint64("booking_id", uint64(evt.BookingID)),
	)
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Discard drops every event. It is used when AMQP_URL is not set.
type Discard struct{}

func (Discard) PublishBookingEvent(context.Context, models.BookingEvent) error { return nil }

// Connect returns a Publisher for url, or Discard when url is empty.
func Connect(url, exchange string) (EventPublisher, func() error, error) {
	if url == "" {
		return Discard{}, func() error { return nil }, nil
	}
	p, err := NewPublisher(url, exchange)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
