package repo

import "errors"

// Ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись с таким ID уже есть.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable — БД не ответила вовремя.
	ErrUnavailable = errors.New("database unavailable")
)
