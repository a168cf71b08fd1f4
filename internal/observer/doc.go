// Package observer принимает уведомления леджера и ведёт индексы планировщика.
//
// # Обзор
//
// Observer — точка входа для трёх типов событий:
//
//   - SlotConfirmed(slot) — потребить сэмпл часов слота, выгрузить из
//     PendingIndex всё, что наступило, и перевести в ActionableSet
//   - ClockUpdated(slot, ts) — записать сэмпл в ClockIndex
//   - QueueUpdated(queue) — убрать очередь из ActionableSet и, если у неё
//     есть exec_at, положить в PendingIndex
//
// Каждое событие ставится в очередь одной из "полос" (lane) и возвращается
// сразу. События одной очереди попадают в одну полосу, поэтому применяются
// в порядке доставки. Часы и подтверждения слотов идут по своим полосам.
// Результат каждого события публикуется в канал Results().
//
// # Sweep
//
// Sweep(ctx, slot) берёт снимок ActionableSet и для каждой очереди
// вызывает Builder. Очередь удаляется из ActionableSet до сборки, при
// любом исходе. Ошибка одной очереди не прерывает остальные.
// Пропуск по grace period и временные ошибки возвращают очередь в
// PendingIndex на время повторной попытки.
//
//	obs := observer.New(observer.Config{
//	    Builder:   builder,
//	    Positions: refresher.Positions(),
//	    Clock:     ledgerClient,
//	    Logger:    logger,
//	})
//	obs.Start(ctx)
//	defer obs.Stop()
package observer
