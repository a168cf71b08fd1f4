package domain

import "fmt"

// QueueStatusKind — вариант статуса очереди.
//
// Жизненный цикл:
//
//	PENDING → PROCESSING{i} → PENDING (после последней задачи)
//	        ↘ PAUSED (внешняя пауза, снимается только транзакцией)
type QueueStatusKind uint8

const (
	// QueueStatusPending — очередь ожидает запуска (нужна инструкция queue_start).
	QueueStatusPending QueueStatusKind = iota

	// QueueStatusPaused — очередь на паузе.
	QueueStatusPaused

	// QueueStatusProcessing — очередь выполняется, TaskIndex — следующая задача.
	QueueStatusProcessing
)

// String возвращает строковое представление QueueStatusKind.
func (k QueueStatusKind) String() string {
	switch k {
	case QueueStatusPending:
		return "PENDING"
	case QueueStatusPaused:
		return "PAUSED"
	case QueueStatusProcessing:
		return "PROCESSING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// QueueStatus — статус очереди.
// TaskIndex имеет смысл только для QueueStatusProcessing.
type QueueStatus struct {
	Kind      QueueStatusKind `json:"kind"`
	TaskIndex uint64          `json:"task_index,omitempty"`
}

// Pending создаёт статус PENDING.
func Pending() QueueStatus {
	return QueueStatus{Kind: QueueStatusPending}
}

// Paused создаёт статус PAUSED.
func Paused() QueueStatus {
	return QueueStatus{Kind: QueueStatusPaused}
}

// Processing создаёт статус PROCESSING с индексом следующей задачи.
func Processing(taskIndex uint64) QueueStatus {
	return QueueStatus{Kind: QueueStatusProcessing, TaskIndex: taskIndex}
}

func (s QueueStatus) String() string {
	if s.Kind == QueueStatusProcessing {
		return fmt.Sprintf("PROCESSING{%d}", s.TaskIndex)
	}
	return s.Kind.String()
}

// ExecutionStatus — итог попытки диспетчеризации очереди.
type ExecutionStatus string

const (
	// ExecutionStatusSubmitted — транзакция отправлена в леджер.
	ExecutionStatusSubmitted ExecutionStatus = "SUBMITTED"

	// ExecutionStatusSkipped — очередь пропущена (не наступило время или нет прав).
	ExecutionStatusSkipped ExecutionStatus = "SKIPPED"

	// ExecutionStatusPaused — очередь на паузе.
	ExecutionStatusPaused ExecutionStatus = "PAUSED"

	// ExecutionStatusFailed — сборка или отправка транзакции не удалась.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsAttempt возвращает true, если worker действительно пытался выполнить очередь.
func (s ExecutionStatus) IsAttempt() bool {
	switch s {
	case ExecutionStatusSubmitted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус известен.
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case ExecutionStatusSubmitted, ExecutionStatusSkipped, ExecutionStatusPaused, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}
