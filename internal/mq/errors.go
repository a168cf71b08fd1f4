package mq

import "errors"

// Ошибки транспорта.
var (
	// ErrNoChannel — канал AMQP недоступен (идёт переподключение).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrClosed — соединение закрыто вызовом Close.
	ErrClosed = errors.New("amqp connection closed")

	// ErrMalformed — сообщение не разбирается; повторная доставка не поможет.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType — тип сообщения не поддерживается этим consumer'ом.
	ErrUnknownType = errors.New("unknown message type")
)
