package index

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// ClockIndex хранит соответствие слот → unix timestamp для ещё не подтверждённых слотов.
//
// Подтверждённый слот потребляется вместе со всеми более ранними.
// Сэмплы, пришедшие после подтверждения своего слота, отбрасываются:
// порядок clock.updated и slot.confirmed не гарантирован.
type ClockIndex struct {
	samples *xsync.MapOf[uint64, int64]

	// confirmed — наибольший потреблённый слот + 1 (0 — ещё ничего не подтверждено).
	confirmed atomic.Uint64

	// last — время, с которым был подтверждён последний слот.
	last atomic.Pointer[confirmedSample]
}

type confirmedSample struct {
	slot uint64
	ts   int64
}

// NewClockIndex создаёт пустой ClockIndex.
func NewClockIndex() *ClockIndex {
	return &ClockIndex{
		samples: xsync.NewMapOf[uint64, int64](),
	}
}

// Record записывает (или перезаписывает) сэмпл для слота.
// Возвращает false, если слот уже подтверждён и сэмпл устарел.
func (c *ClockIndex) Record(slot uint64, unixTimestamp int64) bool {
	if c.isStale(slot) {
		return false
	}
	c.samples.Store(slot, unixTimestamp)

	// Подтверждение могло пройти между проверкой и записью.
	if c.isStale(slot) {
		c.samples.Delete(slot)
		return false
	}
	return true
}

// ConsumeConfirmed атомарно извлекает сэмпл для confirmedSlot и удаляет
// все сэмплы для слотов <= confirmedSlot.
//
// Если сэмпла для слота нет, возвращает false — вызывающий должен
// прочитать часы из леджера, а не считать это ошибкой.
func (c *ClockIndex) ConsumeConfirmed(confirmedSlot uint64) (int64, bool) {
	c.advance(confirmedSlot)

	ts, ok := c.samples.LoadAndDelete(confirmedSlot)
	if ok {
		c.Remember(confirmedSlot, ts)
	}

	c.samples.Range(func(slot uint64, _ int64) bool {
		if slot <= confirmedSlot {
			c.samples.Delete(slot)
		}
		return true
	})

	return ts, ok
}

// Get возвращает сэмпл для слота без удаления.
func (c *ClockIndex) Get(slot uint64) (int64, bool) {
	return c.samples.Load(slot)
}

// At возвращает время слота: ещё не подтверждённый сэмпл или время,
// с которым был подтверждён последний слот.
func (c *ClockIndex) At(slot uint64) (int64, bool) {
	if ts, ok := c.samples.Load(slot); ok {
		return ts, true
	}
	if last := c.last.Load(); last != nil && last.slot == slot {
		return last.ts, true
	}
	return 0, false
}

// Remember фиксирует время, с которым подтверждён слот (например, прочитанное
// из леджера, когда сэмпла не было). Более старый слот не перезаписывает новый.
func (c *ClockIndex) Remember(slot uint64, ts int64) {
	next := &confirmedSample{slot: slot, ts: ts}
	for {
		cur := c.last.Load()
		if cur != nil && cur.slot > slot {
			return
		}
		if c.last.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Confirmed возвращает наибольший подтверждённый слот.
func (c *ClockIndex) Confirmed() (uint64, bool) {
	next := c.confirmed.Load()
	if next == 0 {
		return 0, false
	}
	return next - 1, true
}

// Len возвращает количество хранимых сэмплов.
func (c *ClockIndex) Len() int {
	return c.samples.Size()
}

// Samples возвращает копию всех сэмплов (для диагностики).
func (c *ClockIndex) Samples() map[uint64]int64 {
	out := make(map[uint64]int64, c.samples.Size())
	c.samples.Range(func(slot uint64, ts int64) bool {
		out[slot] = ts
		return true
	})
	return out
}

// advance сдвигает watermark подтверждения вперёд (только монотонно).
func (c *ClockIndex) advance(slot uint64) {
	next := slot + 1
	for {
		cur := c.confirmed.Load()
		if cur >= next {
			return
		}
		if c.confirmed.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (c *ClockIndex) isStale(slot uint64) bool {
	return slot < c.confirmed.Load()
}
