package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — запись об одной попытке диспетчеризации очереди.
//
// Execution создаётся Worker'ом на каждый результат sweep'а:
// - транзакция собрана и отправлена (SUBMITTED)
// - очередь пропущена или на паузе (SKIPPED / PAUSED)
// - сборка или отправка не удалась (FAILED)
//
// Повторной отправки нет: следующая попытка — следующий sweep.
type Execution struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Queue — адрес очереди (base58).
	Queue string `json:"queue"`

	// Slot — слот, на котором выполнялся sweep.
	Slot uint64 `json:"slot"`

	// Status — итог попытки.
	Status ExecutionStatus `json:"status"`

	// Signature — подпись отправленной транзакции (если была отправка).
	Signature string `json:"signature,omitempty"`

	// FirstTask — индекс первой task в транзакции.
	FirstTask uint64 `json:"first_task"`

	// TaskCount — количество task в транзакции.
	TaskCount int `json:"task_count"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewExecution создаёт запись с новым ID и текущим временем.
func NewExecution(queue string, slot uint64, status ExecutionStatus) *Execution {
	return &Execution{
		ID:        uuid.New(),
		Queue:     queue,
		Slot:      slot,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkFailed переводит запись в FAILED с ошибкой.
func (e *Execution) MarkFailed(err string) {
	e.Status = ExecutionStatusFailed
	e.Error = err
}
