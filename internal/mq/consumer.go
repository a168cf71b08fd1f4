package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultPrefetch = 32

// Handler обрабатывает одно сообщение.
//
// nil — ack. ErrMalformed / ErrUnknownType — nack без повтора (в DLQ).
// Любая другая ошибка — nack с возвратом в очередь.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue    Queue
	Handler  Handler
	Prefetch int // default: 32
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", string(cfg.Queue)),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start потребляет сообщения до отмены ctx или вызова Stop.
// После разрыва соединения ждёт переподключения и продолжает.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to start consuming", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("deliveries interrupted, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue),
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.dispatch(ctx, raw)
		}
	}
}

// Acknowledger — ack/nack доставки (amqp.Delivery).
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	c.handle(ctx, raw.Body, &raw)
}

// handle разбирает тело, вызывает handler и подтверждает доставку.
func (c *Consumer) handle(ctx context.Context, body []byte, ack Acknowledger) {
	msg, err := decodeMessage(body)
	if err == nil {
		err = c.handler(ctx, msg)
	}

	switch {
	case err == nil:
		if ackErr := ack.Ack(false); ackErr != nil {
			c.logger.Warn("failed to ack message", "message_id", msg.ID, "error", ackErr)
		}

	case errors.Is(err, ErrMalformed), errors.Is(err, ErrUnknownType):
		c.logger.Error("rejecting message", "error", err, "body", string(body))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			c.logger.Warn("failed to nack message", "error", nackErr)
		}

	default:
		c.logger.Warn("handler failed, requeueing", "message_id", msg.ID, "type", msg.Type, "error", err)
		if nackErr := ack.Nack(false, true); nackErr != nil {
			c.logger.Warn("failed to nack message", "error", nackErr)
		}
	}
}

func decodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: message without type", ErrMalformed)
	}
	return &msg, nil
}
