package ledger

import "errors"

// Ошибки чтения леджера.
var (
	// ErrAccountNotFound — аккаунт не существует (или ещё не создан).
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmptyResponse — RPC ответил без значения.
	ErrEmptyResponse = errors.New("empty rpc response")
)
