// Package audit publishes coordination events (claim, reject, transfer, end)
// to a RabbitMQ topic exchange consumed by reporting dashboards. Publishing
// is fire-and-forget: a failed delivery is logged and dropped so the chat
// operation that triggered it is never affected.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"naf-chat-server/internal/domain/chat"
)

const (
	exchangeName   = "chat.audit"
	routingPrefix  = "chat.audit."
	publishTimeout = 5 * time.Second
)

// AMQPPublisher ships audit events over a single AMQP channel. Channel use
// is serialized with a mutex; amqp091 channels are not safe for concurrent
// publishing.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

// NewAMQPPublisher dials the broker and declares the audit exchange.
func NewAMQPPublisher(amqpURL string, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare audit exchange: %w", err)
	}

	return &AMQPPublisher{
		conn: conn,
		ch:   ch,
		log:  log.With().Str("component", "audit-publisher").Logger(),
	}, nil
}

// Publish sends one audit event. Errors are logged and swallowed.
func (p *AMQPPublisher) Publish(ctx context.Context, event chat.AuditEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("event_type", event.Type).Msg("marshal audit event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(pubCtx,
		exchangeName,
		routingPrefix+event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   event.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		p.log.Error().Err(err).
			Str("event_type", event.Type).
			Str("conversation_id", event.ConversationID).
			Msg("publish audit event")
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NoopPublisher discards audit events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish drops the event.
func (NoopPublisher) Publish(ctx context.Context, event chat.AuditEvent) {}
