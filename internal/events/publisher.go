// Package events содержит публикацию доменных событий в RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Имена очередей, в которые публикуются события.
const (
	QueueDepositApproved = "deposit.approved"
	QueueSaleCreated     = "sale.created"
	QueueInvoiceIssued   = "invoice.issued"
)

// DepositApprovedEvent публикуется после одобрения залога и резервирования автомобиля.
type DepositApprovedEvent struct {
	DepositID   int64     `json:"deposit_id"`
	ListingID   int64     `json:"listing_id"`
	BuyerID     int64     `json:"buyer_id"`
	AmountCents int64     `json:"amount_cents"`
	ApprovedAt  time.Time `json:"approved_at"`
}

// SaleCreatedEvent публикуется после создания сделки и перевода автомобиля в sold.
type SaleCreatedEvent struct {
	SaleID     int64     `json:"sale_id"`
	CarID      int64     `json:"car_id"`
	BuyerID    int64     `json:"buyer_id"`
	SellerID   int64     `json:"seller_id"`
	SaleType   string    `json:"sale_type"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// InvoiceIssuedEvent публикуется после выставления счёта по сделке.
type InvoiceIssuedEvent struct {
	InvoiceID  int64     `json:"invoice_id"`
	SaleID     int64     `json:"sale_id"`
	Number     string    `json:"number"`
	TotalCents int64     `json:"total_cents"`
	IssuedAt   time.Time `json:"issued_at"`
}

// Publisher публикует доменные события в RabbitMQ.
// Соединение устанавливается один раз при создании и переиспользуется.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher подключается к брокеру и объявляет очереди событий.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, name := range []string{QueueDepositApproved, QueueSaleCreated, QueueInvoiceIssued} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// Close закрывает канал и соединение с брокером.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	if p == nil || p.ch == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	return nil
}

// PublishDepositApproved публикует событие об одобрении залога.
func (p *Publisher) PublishDepositApproved(ctx context.Context, event DepositApprovedEvent) error {
	return p.publish(ctx, QueueDepositApproved, event)
}

// PublishSaleCreated публикует событие о создании сделки.
func (p *Publisher) PublishSaleCreated(ctx context.Context, event SaleCreatedEvent) error {
	return p.publish(ctx, QueueSaleCreated, event)
}

// PublishInvoiceIssued публикует событие о выставлении счёта.
func (p *Publisher) PublishInvoiceIssued(ctx context.Context, event InvoiceIssuedEvent) error {
	return p.publish(ctx, QueueInvoiceIssued, event)
}
