// Package worker связывает поток событий леджера с отправкой транзакций.
//
// # Обзор
//
// Worker — процесс cronos-worker. Он:
//
//   - Потребляет уведомления леджера из очереди ledger.events
//     (slot.confirmed, clock.updated, queue.updated)
//   - Передаёт их Observer'у, который ведёт ClockIndex, PendingIndex
//     и ActionableSet
//   - Запускает sweep, когда подтверждённый слот сделал очереди actionable,
//     и дополнительно по таймеру
//   - Отправляет собранные транзакции в Sink (RPC леджера)
//   - Пишет запись Execution на каждую попытку и публикует execution.reported
//
// # Sweep
//
// Sweep'ы выполняются одной горутиной: запросы от Observer'а схлопываются
// в один, таймер гарантирует повторную проверку очередей, которые вернулись
// в ActionableSet без нового slot.confirmed.
//
//	w := worker.New(worker.Config{
//	    Observer:  obs,
//	    Refresher: refresher,
//	    Sink:      ledgerClient,
//	    Store:     executionRepo,
//	    Reporter:  publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки
//
// Неразбираемые сообщения отклоняются без повтора и уходят в dlq.ledger.
// Если Observer остановлен, сообщение возвращается в очередь.
// Ошибки отправки транзакции не повторяются: запись получает статус FAILED,
// очередь будет рассмотрена снова после следующего обновления.
package worker
