package executor

import "errors"

// Ошибки сборки транзакций.
//
// ErrNotDue и ErrNotAuthorized — не ошибки в строгом смысле: очередь
// просто пропускается и будет проверена на следующем sweep'е.
var (
	// ErrNotDue — у очереди нет exec_at (пауза или расписание не сработало).
	ErrNotDue = errors.New("queue is not due")

	// ErrNotAuthorized — узел не делегат, и grace period ещё не истёк.
	ErrNotAuthorized = errors.New("node is not a delegate and the grace period has not elapsed")

	// ErrQueuePaused — очередь на паузе; до внешнего снятия паузы повторов нет.
	ErrQueuePaused = errors.New("queue is paused")

	// ErrSubmissionPrep — не удалось прочитать леджер, получить blockhash или подписать.
	ErrSubmissionPrep = errors.New("failed to prepare transaction")

	// ErrOversizedQueue — task не помещается в одну транзакцию даже отдельно.
	ErrOversizedQueue = errors.New("task exceeds transaction size limit")
)

// IsSkip возвращает true для ошибок, означающих "пропустить до следующего sweep'а".
func IsSkip(err error) bool {
	return errors.Is(err, ErrNotDue) || errors.Is(err, ErrNotAuthorized)
}

// RetryError — пропуск или временная ошибка, после которой очередь можно
// попробовать снова, когда подтверждённое время дойдёт до RetryAt.
type RetryError struct {
	RetryAt int64
	Err     error
}

func (e *RetryError) Error() string {
	return e.Err.Error()
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// RetryAt возвращает время повторной попытки, если ошибка его несёт.
func RetryAt(err error) (int64, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return re.RetryAt, true
	}
	return 0, false
}
