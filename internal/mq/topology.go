package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeLedger     Exchange = "cronos.ledger"
	ExchangeExecutions Exchange = "cronos.executions"
	ExchangeDLQ        Exchange = "cronos.dlq"
)

// Queues — имена очередей.
const (
	QueueLedgerEvents Queue = "ledger.events"
	QueueDLQLedger    Queue = "dlq.ledger"
)

// Routing keys.
const (
	RoutingKeyEvents    RoutingKey = "events"
	RoutingKeyReported  RoutingKey = "reported"
	RoutingKeyDLQLedger RoutingKey = "ledger"
)

// ExchangeSpec — объявление обменника.
type ExchangeSpec struct {
	Name Exchange
	Kind string
}

// QueueSpec — объявление очереди.
type QueueSpec struct {
	Name Queue
	Args amqp.Table
}

// BindingSpec — привязка очереди к обменнику.
type BindingSpec struct {
	Queue      Queue
	RoutingKey RoutingKey
	Exchange   Exchange
}

// Topology — полный набор объявлений RabbitMQ для worker'а.
type Topology struct {
	Exchanges []ExchangeSpec
	Queues    []QueueSpec
	Bindings  []BindingSpec
}

// DefaultTopology возвращает топологию cronos.
//
// cronos.executions — fanout без очередей: потребители отчётов
// (индексаторы, алерты) привязывают собственные очереди.
func DefaultTopology() Topology {
	return Topology{
		Exchanges: []ExchangeSpec{
			{ExchangeLedger, amqp.ExchangeDirect},
			{ExchangeExecutions, amqp.ExchangeFanout},
			{ExchangeDLQ, amqp.ExchangeDirect},
		},
		Queues: []QueueSpec{
			// ledger.events — неразобранные сообщения уходят в DLQ
			{QueueLedgerEvents, amqp.Table{
				"x-dead-letter-exchange":    string(ExchangeDLQ),
				"x-dead-letter-routing-key": string(RoutingKeyDLQLedger),
			}},
			{QueueDLQLedger, nil},
		},
		Bindings: []BindingSpec{
			{QueueLedgerEvents, RoutingKeyEvents, ExchangeLedger},
			{QueueDLQLedger, RoutingKeyDLQLedger, ExchangeDLQ},
		},
	}
}

// Validate проверяет, что привязки ссылаются только на объявленные сущности.
func (t Topology) Validate() error {
	exchanges := make(map[Exchange]bool, len(t.Exchanges))
	for _, ex := range t.Exchanges {
		exchanges[ex.Name] = true
	}
	queues := make(map[Queue]bool, len(t.Queues))
	for _, q := range t.Queues {
		queues[q.Name] = true
	}

	for _, b := range t.Bindings {
		if !exchanges[b.Exchange] {
			return fmt.Errorf("binding %s: exchange %s is not declared", b.Queue, b.Exchange)
		}
		if !queues[b.Queue] {
			return fmt.Errorf("binding %s: queue is not declared", b.Queue)
		}
	}
	for _, q := range t.Queues {
		if dlx, ok := q.Args["x-dead-letter-exchange"].(string); ok && !exchanges[Exchange(dlx)] {
			return fmt.Errorf("queue %s: dead-letter exchange %s is not declared", q.Name, dlx)
		}
	}
	return nil
}

// String возвращает описание топологии для логирования.
func (t Topology) String() string {
	var b strings.Builder
	for _, ex := range t.Exchanges {
		fmt.Fprintf(&b, "%s (%s)\n", ex.Name, ex.Kind)
		for _, bind := range t.Bindings {
			if bind.Exchange == ex.Name {
				fmt.Fprintf(&b, "  └── %s [routing: %s]\n", bind.Queue, bind.RoutingKey)
			}
		}
	}
	return b.String()
}

// SetupTopology объявляет exchanges, queues и bindings.
func SetupTopology(ctx context.Context, conn *Connection, topo Topology) error {
	if err := topo.Validate(); err != nil {
		return err
	}

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range topo.Exchanges {
			err := ch.ExchangeDeclare(
				string(ex.Name), // name
				ex.Kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
			}
		}

		for _, q := range topo.Queues {
			if _, err := ch.QueueDeclare(string(q.Name), true, false, false, false, q.Args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.Name, err)
			}
		}

		for _, b := range topo.Bindings {
			if err := ch.QueueBind(string(b.Queue), string(b.RoutingKey), string(b.Exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.Queue, b.Exchange, err)
			}
		}

		return nil
	})
}
