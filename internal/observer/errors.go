package observer

import "errors"

// Ошибки обработки уведомлений.
var (
	// ErrStopped — Observer остановлен, событие не принято.
	ErrStopped = errors.New("observer stopped")

	// ErrNoClockSample — для подтверждённого слота нет сэмпла часов,
	// а чтение часов из леджера не настроено или не удалось.
	ErrNoClockSample = errors.New("no clock sample for confirmed slot")

	// ErrStaleSlot — слот уже подтверждён более поздним slot.confirmed.
	ErrStaleSlot = errors.New("slot already confirmed")

	// ErrBuildPanic — сборка очереди завершилась паникой.
	ErrBuildPanic = errors.New("queue build panicked")
)
