package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Connection — AMQP соединение с одним каналом и автоматическим reconnect.
//
// Закрытие канала (например, после ошибки протокола) переоткрывает только
// канал; разрыв соединения — всё целиком, с экспоненциальной задержкой.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	done        chan struct{}
	reconnected chan struct{}
}

// NewConnection подключается к RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:         url,
		logger:      logger,
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// watch ждёт закрытия соединения или канала и восстанавливает их.
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		conn, ch := c.conn, c.channel
		c.mu.RUnlock()

		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return

		case err := <-chClosed:
			if conn.IsClosed() {
				c.logger.Warn("connection closed", "error", err)
				c.redial()
				continue
			}
			c.logger.Warn("channel closed, reopening", "error", err)
			if reopenErr := c.reopenChannel(conn); reopenErr != nil {
				c.logger.Warn("failed to reopen channel", "error", reopenErr)
				conn.Close()
				c.redial()
			}

		case err := <-connClosed:
			c.logger.Warn("connection closed", "error", err)
			c.redial()
		}

		if c.isClosed() {
			return
		}
		c.notifyReconnected()
	}
}

func (c *Connection) reopenChannel(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()
	return nil
}

// redial переподключается, пока не получится или пока соединение не закроют.
func (c *Connection) redial() {
	c.mu.Lock()
	c.channel = nil
	c.mu.Unlock()

	delay := minReconnectDelay
	for {
		c.logger.Info("attempting to reconnect", "delay", delay)

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		if err := c.dial(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = nextDelay(delay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")
		return
	}
}

// nextDelay удваивает задержку, не превышая maxReconnectDelay.
func nextDelay(d time.Duration) time.Duration {
	return min(d*2, maxReconnectDelay)
}

func (c *Connection) notifyReconnected() {
	select {
	case c.reconnected <- struct{}{}:
	default:
	}
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Channel возвращает текущий канал (nil во время переподключения).
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify сигналит после восстановления канала или соединения.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnected
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch, closed := c.channel, c.closed
	c.mu.RUnlock()

	switch {
	case closed:
		return ErrClosed
	case ch == nil:
		return ErrNoChannel
	}
	return fn(ch)
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil
}

// Close закрывает канал и соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn, ch := c.conn, c.channel
	c.mu.Unlock()

	var errs []error
	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("RabbitMQ connection closed")
	return errors.Join(errs...)
}
