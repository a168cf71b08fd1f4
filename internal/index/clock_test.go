package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockIndex_RecordAndGet(t *testing.T) {
	c := NewClockIndex()

	require.True(t, c.Record(10, 1000))
	ts, ok := c.Get(10)
	require.True(t, ok)
	assert.Equal(t, int64(1000), ts)

	// Перезапись
	require.True(t, c.Record(10, 1001))
	ts, _ = c.Get(10)
	assert.Equal(t, int64(1001), ts)
}

func TestClockIndex_ConsumeConfirmed(t *testing.T) {
	c := NewClockIndex()
	c.Record(8, 998)
	c.Record(9, 999)
	c.Record(10, 1000)
	c.Record(11, 1001)

	ts, ok := c.ConsumeConfirmed(10)
	require.True(t, ok)
	assert.Equal(t, int64(1000), ts)

	for _, slot := range []uint64{8, 9, 10} {
		_, ok := c.Get(slot)
		assert.False(t, ok, "slot %d should be pruned", slot)
	}
	ts, ok = c.Get(11)
	require.True(t, ok, "later slot must survive")
	assert.Equal(t, int64(1001), ts)
	assert.Equal(t, 1, c.Len())
}

func TestClockIndex_ConsumeConfirmed_Missing(t *testing.T) {
	c := NewClockIndex()
	c.Record(5, 500)
	c.Record(12, 1200)

	_, ok := c.ConsumeConfirmed(10)
	assert.False(t, ok)

	// Стейл-сэмплы всё равно удалены
	_, ok = c.Get(5)
	assert.False(t, ok)
	_, ok = c.Get(12)
	assert.True(t, ok)
}

func TestClockIndex_NeverReturnsLaterSlot(t *testing.T) {
	c := NewClockIndex()
	c.Record(11, 1100)

	_, ok := c.ConsumeConfirmed(10)
	assert.False(t, ok, "sample for slot 11 must not satisfy slot 10")
}

func TestClockIndex_LateSampleIgnored(t *testing.T) {
	c := NewClockIndex()
	c.ConsumeConfirmed(10)

	// clock.updated для уже подтверждённого слота пришёл позже
	assert.False(t, c.Record(9, 900))
	assert.False(t, c.Record(10, 1000))
	assert.Equal(t, 0, c.Len())

	assert.True(t, c.Record(11, 1100))
}

func TestClockIndex_ConcurrentRecordAndConfirm(t *testing.T) {
	c := NewClockIndex()

	var wg sync.WaitGroup
	for slot := uint64(0); slot < 200; slot++ {
		wg.Add(1)
		go func(slot uint64) {
			defer wg.Done()
			c.Record(slot, int64(slot)*10)
		}(slot)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ConsumeConfirmed(100)
	}()
	wg.Wait()

	for slot := range c.Samples() {
		assert.Greater(t, slot, uint64(100), "no sample <= confirmed slot may remain")
	}
}

func TestClockIndex_Confirmed(t *testing.T) {
	c := NewClockIndex()

	_, ok := c.Confirmed()
	assert.False(t, ok)

	c.ConsumeConfirmed(0)
	slot, ok := c.Confirmed()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), slot)

	c.ConsumeConfirmed(12)
	c.ConsumeConfirmed(5) // watermark не откатывается
	slot, _ = c.Confirmed()
	assert.Equal(t, uint64(12), slot)
}

func TestClockIndex_At(t *testing.T) {
	c := NewClockIndex()
	c.Record(10, 1000)
	c.Record(11, 1001)

	ts, ok := c.At(11)
	require.True(t, ok)
	assert.Equal(t, int64(1001), ts)

	c.ConsumeConfirmed(10)
	_, ok = c.Get(10)
	assert.False(t, ok, "confirmed sample is gone from the index")
	ts, ok = c.At(10)
	require.True(t, ok, "confirmed slot keeps its timestamp")
	assert.Equal(t, int64(1000), ts)

	c.ConsumeConfirmed(11)
	_, ok = c.At(10)
	assert.False(t, ok, "only the latest confirmed slot is kept")

	// Время из леджера для слота без сэмпла
	_, ok = c.ConsumeConfirmed(12)
	require.False(t, ok)
	c.Remember(12, 1020)
	ts, ok = c.At(12)
	require.True(t, ok)
	assert.Equal(t, int64(1020), ts)

	c.Remember(11, 1)
	ts, _ = c.At(12)
	assert.Equal(t, int64(1020), ts, "older slot must not overwrite")
}
