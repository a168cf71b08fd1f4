package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/executor"
)

// --- fakes ---

type buildResult struct {
	prepared []*executor.Prepared
	err      error
}

type fakeBuilder struct {
	mu      sync.Mutex
	results map[solana.PublicKey]buildResult
	calls   []solana.PublicKey
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{results: make(map[solana.PublicKey]buildResult)}
}

func (b *fakeBuilder) set(queue solana.PublicKey, prepared []*executor.Prepared, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[queue] = buildResult{prepared: prepared, err: err}
}

func (b *fakeBuilder) Build(_ context.Context, queue solana.PublicKey, _ uint64, _ domain.PoolPosition) ([]*executor.Prepared, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, queue)
	r, ok := b.results[queue]
	if !ok {
		return []*executor.Prepared{{Queue: queue}}, nil
	}
	return r.prepared, r.err
}

func (b *fakeBuilder) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type fakeClockReader struct {
	clock *domain.Clock
	err   error
}

func (f *fakeClockReader) GetClock(context.Context) (*domain.Clock, error) {
	return f.clock, f.err
}

// --- helpers ---

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func startObserver(t *testing.T, cfg Config) *Observer {
	t.Helper()
	if cfg.Builder == nil {
		cfg.Builder = newFakeBuilder()
	}
	o := New(cfg)
	o.Start(context.Background())
	t.Cleanup(o.Stop)
	return o
}

func waitResults(t *testing.T, o *Observer, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case r := <-o.Results():
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out waiting for %d results, got %d", n, len(out))
		}
	}
	return out
}

func queueAt(execAt int64) *domain.Queue {
	return &domain.Queue{ExecAt: &execAt, Status: domain.Pending()}
}

// --- tests ---

func TestObserver_SlotConfirmedPromotesDueQueues(t *testing.T) {
	o := startObserver(t, Config{})
	early, late := newKey(), newKey()

	require.NoError(t, o.HandleQueueUpdated(early, queueAt(1000)))
	require.NoError(t, o.HandleQueueUpdated(late, queueAt(2000)))
	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 10, UnixTimestamp: 1005}))
	waitResults(t, o, 3)

	require.NoError(t, o.HandleSlotConfirmed(10))
	res := waitResults(t, o, 1)[0]

	require.NoError(t, res.Err)
	assert.Equal(t, EventSlotConfirmed, res.Kind)
	assert.Equal(t, int64(1005), res.Timestamp)
	assert.Equal(t, 1, res.Promoted)

	assert.True(t, o.Actionable().Contains(early))
	assert.False(t, o.Pending().Contains(early), "queue is in at most one of pending/actionable")
	assert.False(t, o.Actionable().Contains(late))
	assert.True(t, o.Pending().Contains(late))
	assert.Zero(t, o.Clock().Len(), "confirmed sample consumed")
}

func TestObserver_SlotWithoutSampleFallsBackToLedgerClock(t *testing.T) {
	reader := &fakeClockReader{clock: &domain.Clock{Slot: 11, UnixTimestamp: 1500}}
	o := startObserver(t, Config{ClockReader: reader})
	q := newKey()

	require.NoError(t, o.HandleQueueUpdated(q, queueAt(1400)))
	waitResults(t, o, 1)

	require.NoError(t, o.HandleSlotConfirmed(11))
	res := waitResults(t, o, 1)[0]

	require.NoError(t, res.Err)
	assert.Equal(t, int64(1500), res.Timestamp)
	assert.True(t, o.Actionable().Contains(q))

	ts, ok := o.Clock().At(11)
	require.True(t, ok, "ledger time is kept for the confirmed slot")
	assert.Equal(t, int64(1500), ts)
}

func TestObserver_SlotWithoutSampleAndNoReader(t *testing.T) {
	o := startObserver(t, Config{})
	q := newKey()

	require.NoError(t, o.HandleQueueUpdated(q, queueAt(0)))
	waitResults(t, o, 1)

	require.NoError(t, o.HandleSlotConfirmed(3))
	res := waitResults(t, o, 1)[0]

	assert.ErrorIs(t, res.Err, ErrNoClockSample)
	assert.True(t, o.Pending().Contains(q), "nothing promoted without a timestamp")
}

func TestObserver_FallbackReadFailure(t *testing.T) {
	o := startObserver(t, Config{ClockReader: &fakeClockReader{err: errors.New("timeout")}})

	require.NoError(t, o.HandleSlotConfirmed(3))
	res := waitResults(t, o, 1)[0]
	assert.ErrorIs(t, res.Err, ErrNoClockSample)
}

func TestObserver_StaleSlotAndLateClock(t *testing.T) {
	o := startObserver(t, Config{})

	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 20, UnixTimestamp: 2000}))
	waitResults(t, o, 1)
	require.NoError(t, o.HandleSlotConfirmed(20))
	require.NoError(t, waitResults(t, o, 1)[0].Err)

	// повторная доставка и более ранний слот
	require.NoError(t, o.HandleSlotConfirmed(20))
	assert.ErrorIs(t, waitResults(t, o, 1)[0].Err, ErrStaleSlot)
	require.NoError(t, o.HandleSlotConfirmed(19))
	assert.ErrorIs(t, waitResults(t, o, 1)[0].Err, ErrStaleSlot)

	// сэмпл для уже подтверждённого слота пришёл поздно
	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 18, UnixTimestamp: 1800}))
	assert.ErrorIs(t, waitResults(t, o, 1)[0].Err, ErrStaleSlot)
	assert.Zero(t, o.Clock().Len())
}

func TestObserver_QueueUpdatedEvictsEvenWithUnchangedExecAt(t *testing.T) {
	o := startObserver(t, Config{})
	q := newKey()

	require.NoError(t, o.HandleQueueUpdated(q, queueAt(1000)))
	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 1, UnixTimestamp: 1000}))
	waitResults(t, o, 2)
	require.NoError(t, o.HandleSlotConfirmed(1))
	waitResults(t, o, 1)
	require.True(t, o.Actionable().Contains(q))

	require.NoError(t, o.HandleQueueUpdated(q, queueAt(1000)))
	res := waitResults(t, o, 1)[0]

	assert.True(t, res.Evicted)
	assert.False(t, o.Actionable().Contains(q))
	assert.True(t, o.Pending().Contains(q))
}

func TestObserver_QueueUpdatedWithoutExecAtLeavesPending(t *testing.T) {
	o := startObserver(t, Config{})
	q := newKey()

	require.NoError(t, o.HandleQueueUpdated(q, queueAt(1000)))
	require.NoError(t, o.HandleQueueUpdated(q, &domain.Queue{Status: domain.Paused()}))
	waitResults(t, o, 2)

	assert.False(t, o.Pending().Contains(q))
	assert.False(t, o.Actionable().Contains(q))
}

func TestObserver_PerQueueOrderPreserved(t *testing.T) {
	o := startObserver(t, Config{Lanes: 4})
	q := newKey()

	for ts := int64(1); ts <= 100; ts++ {
		require.NoError(t, o.HandleQueueUpdated(q, queueAt(ts)))
	}
	waitResults(t, o, 100)

	buckets := o.Pending().Buckets()
	require.Len(t, buckets, 1)
	assert.Equal(t, []solana.PublicKey{q}, buckets[100], "last update wins")
}

func TestObserver_ResultsDroppedWhenNotDrained(t *testing.T) {
	o := New(Config{Builder: newFakeBuilder(), ResultBuffer: 1})
	o.Start(context.Background())

	for slot := uint64(1); slot <= 3; slot++ {
		require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: slot, UnixTimestamp: int64(slot)}))
	}
	o.Stop()

	assert.Equal(t, uint64(2), o.Dropped())

	var received int
	for range o.Results() {
		received++
	}
	assert.Equal(t, 1, received)
	assert.Equal(t, 3, o.Clock().Len(), "dropped results still applied")
}

func TestObserver_StopRejectsNewEvents(t *testing.T) {
	o := New(Config{Builder: newFakeBuilder()})
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	assert.ErrorIs(t, o.HandleSlotConfirmed(1), ErrStopped)
	assert.ErrorIs(t, o.HandleQueueUpdated(newKey(), nil), ErrStopped)
}

func TestSweep_EvictsRegardlessOfOutcome(t *testing.T) {
	builder := newFakeBuilder()
	o := startObserver(t, Config{Builder: builder, BuildConcurrency: 2})

	ok, paused, failed, skipped := newKey(), newKey(), newKey(), newKey()
	builder.set(paused, nil, executor.ErrQueuePaused)
	builder.set(failed, nil, executor.ErrOversizedQueue)
	builder.set(skipped, nil, executor.ErrNotDue)
	o.Actionable().Promote(ok, paused, failed, skipped)

	outcomes := o.Sweep(context.Background(), 5)
	require.Len(t, outcomes, 4)

	byQueue := make(map[solana.PublicKey]Outcome)
	for _, out := range outcomes {
		byQueue[out.Queue] = out
		assert.Equal(t, uint64(5), out.Slot)
	}

	assert.Equal(t, domain.ExecutionStatusSubmitted, byQueue[ok].Status())
	assert.Len(t, byQueue[ok].Prepared, 1)
	assert.Equal(t, domain.ExecutionStatusPaused, byQueue[paused].Status())
	assert.Equal(t, domain.ExecutionStatusFailed, byQueue[failed].Status())
	assert.Equal(t, domain.ExecutionStatusSkipped, byQueue[skipped].Status())

	assert.Zero(t, o.Actionable().Len(), "every attempted queue is evicted")
	assert.Zero(t, o.Pending().Len())
	assert.Empty(t, o.Sweep(context.Background(), 6))
	assert.Equal(t, 4, builder.callCount())
}

type panicBuilder struct{ bad solana.PublicKey }

func (b panicBuilder) Build(_ context.Context, queue solana.PublicKey, _ uint64, _ domain.PoolPosition) ([]*executor.Prepared, error) {
	if queue.Equals(b.bad) {
		panic("makeslice: cap out of range")
	}
	return []*executor.Prepared{{Queue: queue}}, nil
}

func TestSweep_PanicIsolatedToQueue(t *testing.T) {
	bad, good := newKey(), newKey()
	o := startObserver(t, Config{Builder: panicBuilder{bad: bad}})
	o.Actionable().Promote(bad, good)

	outcomes := o.Sweep(context.Background(), 1)
	require.Len(t, outcomes, 2)

	for _, out := range outcomes {
		if out.Queue.Equals(bad) {
			assert.ErrorIs(t, out.Err, ErrBuildPanic)
			assert.Equal(t, domain.ExecutionStatusFailed, out.Status())
		} else {
			assert.NoError(t, out.Err)
			assert.Len(t, out.Prepared, 1)
		}
	}
}

func TestSweep_NotAuthorizedRequeuedUntilGraceElapses(t *testing.T) {
	builder := newFakeBuilder()
	o := startObserver(t, Config{Builder: builder})
	q := newKey()

	builder.set(q, nil, &executor.RetryError{RetryAt: 1010, Err: executor.ErrNotAuthorized})
	o.Actionable().Promote(q)

	outcomes := o.Sweep(context.Background(), 1)
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.ExecutionStatusSkipped, outcomes[0].Status())
	assert.True(t, outcomes[0].Requeued)
	assert.Equal(t, int64(1010), outcomes[0].RetryAt)

	assert.False(t, o.Actionable().Contains(q))
	assert.True(t, o.Pending().Contains(q))

	// До конца grace period очередь не возвращается в actionable
	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 2, UnixTimestamp: 1009}))
	waitResults(t, o, 1)
	require.NoError(t, o.HandleSlotConfirmed(2))
	assert.Zero(t, waitResults(t, o, 1)[0].Promoted)

	require.NoError(t, o.HandleClockUpdated(domain.Clock{Slot: 3, UnixTimestamp: 1010}))
	waitResults(t, o, 1)
	require.NoError(t, o.HandleSlotConfirmed(3))
	assert.Equal(t, 1, waitResults(t, o, 1)[0].Promoted)
	assert.True(t, o.Actionable().Contains(q))
}

func TestSweep_RequeueDoesNotOverrideFresherUpdate(t *testing.T) {
	builder := newFakeBuilder()
	o := startObserver(t, Config{Builder: builder})
	q := newKey()

	builder.set(q, nil, &executor.RetryError{RetryAt: 1000, Err: executor.ErrSubmissionPrep})
	o.Actionable().Promote(q)
	o.Pending().Insert(5000, q)

	outcomes := o.Sweep(context.Background(), 1)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Requeued)
	assert.Equal(t, []solana.PublicKey{q}, o.Pending().Buckets()[5000])
}

func TestSweep_Empty(t *testing.T) {
	o := startObserver(t, Config{})
	assert.Nil(t, o.Sweep(context.Background(), 1))
}
