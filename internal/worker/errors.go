package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoSink — не настроен Sink, транзакции некуда отправлять.
	ErrNoSink = errors.New("no transaction sink configured")
)
