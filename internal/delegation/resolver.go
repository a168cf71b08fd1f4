// Package delegation решает, имеет ли узел право исполнять очередь.
//
// Обычно за своевременное выполнение отвечает один ротируемый делегат.
// Если делегат недоступен, после grace period исполнить очередь может любой узел.
package delegation

import (
	"sync"

	"github.com/shaiso/Cronos/internal/domain"
)

// DefaultGracePeriod — окно (в секундах времени леджера) после exec_at,
// в течение которого действовать может только делегат.
const DefaultGracePeriod int64 = 10

// MayAct возвращает true, если узел — активный делегат,
// или если с момента dueAt прошло не меньше grace секунд.
//
// false — не ошибка: вызывающий повторит проверку на следующем sweep'е.
func MayAct(pos domain.PoolPosition, now, dueAt, grace int64) bool {
	if pos.IsDelegate() {
		return true
	}
	return now >= dueAt+grace
}

// Positions хранит текущую позицию узла в пуле делегатов.
// Пишется Refresher'ом, читается sweep'ом.
type Positions struct {
	mu  sync.RWMutex
	pos domain.PoolPosition
}

// NewPositions создаёт хранилище без назначенной позиции.
func NewPositions() *Positions {
	return &Positions{}
}

// Get возвращает копию текущей позиции.
func (p *Positions) Get() domain.PoolPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// Set заменяет текущую позицию.
func (p *Positions) Set(pos domain.PoolPosition) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}
