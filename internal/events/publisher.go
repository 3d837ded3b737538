package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange       = "paygate.events"
	publishTimeout = 3 * time.Second
)

// PurchaseEvent describes a purchase lifecycle change for downstream
// consumers (receipts, payout accounting, analytics).
type PurchaseEvent struct {
	PurchaseID   string    `json:"purchaseId"`
	UserID       string    `json:"userId"`
	CollectionID string    `json:"collectionId"`
	Status       string    `json:"status"`
	Amount       float64   `json:"amount"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher emits purchase events. Implementations are best-effort: callers
// log failures and continue, they never fail the primary write.
type Publisher interface {
	PublishPurchase(ctx context.Context, ev PurchaseEvent) error
	Close() error
}

// AMQPPublisher publishes purchase events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange. The broker
// being down at startup is not fatal; the publisher redials lazily.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		// Lazy redial keeps the service available while the broker is down.
		return p, nil
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn, p.ch = nil, nil
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p.ch, nil
}

// PublishPurchase emits one event with routing key "purchase.<status>".
func (p *AMQPPublisher) PublishPurchase(ctx context.Context, ev PurchaseEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, exchange, "purchase."+ev.Status, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   ev.OccurredAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
