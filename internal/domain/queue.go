package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Queue — очередь задач, зарегистрированная в леджере.
//
// Queue изменяется только on-chain программой в ответ на транзакции.
// Worker читает её и поддерживает производные индексы (pending / actionable).
type Queue struct {
	// Manager — аккаунт-владелец очереди.
	Manager solana.PublicKey `json:"manager"`

	// ExecAt — unix timestamp следующего запуска.
	// Nil, пока расписание не сработало (или очередь поставлена на паузу).
	ExecAt *int64 `json:"exec_at,omitempty"`

	// Schedule — выражение расписания (вычисляется on-chain).
	Schedule string `json:"schedule,omitempty"`

	// Status — текущий статус очереди.
	Status QueueStatus `json:"status"`

	// TaskCount — количество задач в очереди.
	TaskCount uint64 `json:"task_count"`
}

// IsDue проверяет, наступило ли время выполнения на момент now.
func (q *Queue) IsDue(now int64) bool {
	if q.ExecAt == nil {
		return false
	}
	return now >= *q.ExecAt
}

// HasExecAt возвращает true, если у очереди есть время следующего запуска.
func (q *Queue) HasExecAt() bool {
	return q.ExecAt != nil
}
