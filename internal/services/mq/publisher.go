// Package mq publishes match events to a RabbitMQ topic exchange.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// EventPayload wraps an event with its type so consumers can dispatch before decoding.
type EventPayload struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends MatchEvents to an exchange, one short-lived channel per event.
type Publisher struct {
	conn     *amqp.Connection
	open     func() (Channel, error)
	exchange string
}

// Dial connects to RabbitMQ and declares the events exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	p := &Publisher{
		conn:     conn,
		exchange: exchange,
		open: func() (Channel, error) {
			return conn.Channel()
		},
	}
	if err := p.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// NewPublisher builds a publisher around a channel factory.
func NewPublisher(open func() (Channel, error), exchange string) (*Publisher, error) {
	p := &Publisher{open: open, exchange: exchange}
	if err := p.setup(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) setup() error {
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	return nil
}

// Notify publishes the event under its routing key.
func (p *Publisher) Notify(ctx context.Context, event models.MatchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}
	body, err := json.Marshal(EventPayload{EventType: string(event.Type), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		p.exchange,
		event.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.RoutingKey(), err)
	}

	utils.Logger.Debug("Match event published",
		zap.String("routing_key", event.RoutingKey()),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// Close closes the underlying connection, if any.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}
