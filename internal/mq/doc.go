// Package mq — транспорт уведомлений леджера и отчётов об исполнении через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — exchanges, queues, bindings
//   - messages.go   — конверт сообщения и payload'ы
//   - publisher.go  — публикация отчётов об исполнении
//   - consumer.go   — потребление уведомлений леджера
//
// Входящие (cronos.ledger → ledger.events):
//   - slot.confirmed  — слот подтверждён
//   - clock.updated   — новый сэмпл sysvar Clock
//   - queue.updated   — изменился аккаунт очереди
//
// Исходящие (cronos.executions, fanout):
//   - execution.reported — итог попытки исполнения очереди
//
// Сообщения, которые не удалось разобрать, уходят в cronos.dlq без повторов.
package mq
