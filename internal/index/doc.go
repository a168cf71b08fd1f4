// Package index содержит разделяемые индексы реактивного планировщика.
//
// Структура:
//   - clock.go      — ClockIndex: слот → unix timestamp из sysvar Clock
//   - pending.go    — PendingIndex: exec_at → множество очередей
//   - actionable.go — ActionableSet: очереди, готовые к диспетчеризации
//
// Все индексы построены на конкурентных map'ах xsync: каждая операция
// (insert / remove / drain) атомарна сама по себе, глобальной блокировки нет,
// и ни одна операция не держит блокировку сразу на нескольких индексах.
//
// Поток данных:
//
//	clock.updated  → ClockIndex.Record
//	queue.updated  → ActionableSet.Evict + PendingIndex.Insert
//	slot.confirmed → ClockIndex.ConsumeConfirmed → PendingIndex.DrainDue → ActionableSet.Promote
package index
