package observer

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/executor"
	"github.com/shaiso/Cronos/internal/index"
	"github.com/shaiso/Cronos/internal/telemetry"
)

// Default configuration values.
const (
	defaultQueueLanes       = 8
	defaultLaneBuffer       = 256
	defaultResultBuffer     = 1024
	defaultBuildConcurrency = 4
	defaultFallbackTimeout  = 5 * time.Second
)

// Полосы 0 и 1 зарезервированы за часами и подтверждениями слотов.
const (
	clockLane = iota
	slotLane
	firstQueueLane
)

// EventKind — тип уведомления леджера.
type EventKind string

const (
	EventSlotConfirmed EventKind = "slot.confirmed"
	EventClockUpdated  EventKind = "clock.updated"
	EventQueueUpdated  EventKind = "queue.updated"
)

// Builder собирает транзакции для actionable очереди.
type Builder interface {
	Build(ctx context.Context, queue solana.PublicKey, slot uint64, pos domain.PoolPosition) ([]*executor.Prepared, error)
}

// PositionSource — текущая позиция узла в пуле делегатов.
type PositionSource interface {
	Get() domain.PoolPosition
}

// ClockReader — чтение часов из леджера, когда сэмпла для слота нет.
type ClockReader interface {
	GetClock(ctx context.Context) (*domain.Clock, error)
}

// Result — итог обработки одного уведомления.
type Result struct {
	Kind  EventKind
	Slot  uint64
	Queue solana.PublicKey

	// Timestamp — подтверждённое время слота (slot.confirmed).
	Timestamp int64

	// Promoted — сколько очередей стало actionable (slot.confirmed).
	Promoted int

	// Evicted — очередь была в ActionableSet (queue.updated).
	Evicted bool

	Err error
}

type job struct {
	kind  EventKind
	slot  uint64
	ts    int64
	key   solana.PublicKey
	queue *domain.Queue
}

// Observer — диспетчер уведомлений леджера.
type Observer struct {
	clock      *index.ClockIndex
	pending    *index.PendingIndex
	actionable *index.ActionableSet

	builder     Builder
	positions   PositionSource
	clockReader ClockReader

	lanes            []chan job
	results          chan Result
	dropped          atomic.Uint64
	buildConcurrency int
	fallbackTimeout  time.Duration

	// Lifecycle
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	quit    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// Config — конфигурация Observer.
type Config struct {
	// Индексы (опционально; если nil — создаются пустые)
	Clock      *index.ClockIndex
	Pending    *index.PendingIndex
	Actionable *index.ActionableSet

	Builder     Builder
	Positions   PositionSource
	ClockReader ClockReader // опционально: fallback для слотов без сэмпла

	Lanes            int           // полосы для queue.updated (default: 8)
	LaneBuffer       int           // default: 256
	ResultBuffer     int           // default: 1024
	BuildConcurrency int           // параллельных сборок в Sweep (default: 4)
	FallbackTimeout  time.Duration // default: 5s

	Logger *slog.Logger
}

// New создаёт новый Observer.
func New(cfg Config) *Observer {
	clock := cfg.Clock
	if clock == nil {
		clock = index.NewClockIndex()
	}
	pending := cfg.Pending
	if pending == nil {
		pending = index.NewPendingIndex()
	}
	actionable := cfg.Actionable
	if actionable == nil {
		actionable = index.NewActionableSet()
	}

	queueLanes := cfg.Lanes
	if queueLanes <= 0 {
		queueLanes = defaultQueueLanes
	}
	laneBuffer := cfg.LaneBuffer
	if laneBuffer <= 0 {
		laneBuffer = defaultLaneBuffer
	}
	resultBuffer := cfg.ResultBuffer
	if resultBuffer <= 0 {
		resultBuffer = defaultResultBuffer
	}
	buildConcurrency := cfg.BuildConcurrency
	if buildConcurrency <= 0 {
		buildConcurrency = defaultBuildConcurrency
	}
	fallbackTimeout := cfg.FallbackTimeout
	if fallbackTimeout <= 0 {
		fallbackTimeout = defaultFallbackTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lanes := make([]chan job, firstQueueLane+queueLanes)
	for i := range lanes {
		lanes[i] = make(chan job, laneBuffer)
	}

	return &Observer{
		clock:            clock,
		pending:          pending,
		actionable:       actionable,
		builder:          cfg.Builder,
		positions:        cfg.Positions,
		clockReader:      cfg.ClockReader,
		lanes:            lanes,
		results:          make(chan Result, resultBuffer),
		buildConcurrency: buildConcurrency,
		fallbackTimeout:  fallbackTimeout,
		logger:           logger,
		ctx:              context.Background(),
		quit:             make(chan struct{}),
	}
}

// Start запускает обработчики полос.
func (o *Observer) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)

	for _, ch := range o.lanes {
		o.wg.Add(1)
		go o.runLane(ch)
	}

	o.logger.Info("observer started", "lanes", len(o.lanes))
}

// Stop перестаёт принимать события, дообрабатывает уже принятые
// и закрывает канал Results().
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.quit)
	o.mu.Unlock()

	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
	close(o.results)

	o.logger.Info("observer stopped", "results_dropped", o.dropped.Load())
}

// Results возвращает канал с итогами обработки событий.
// Если канал никто не читает, итоги отбрасываются (см. Dropped).
func (o *Observer) Results() <-chan Result {
	return o.results
}

// Dropped возвращает количество отброшенных итогов.
func (o *Observer) Dropped() uint64 {
	return o.dropped.Load()
}

// Clock возвращает ClockIndex.
func (o *Observer) Clock() *index.ClockIndex { return o.clock }

// Pending возвращает PendingIndex.
func (o *Observer) Pending() *index.PendingIndex { return o.pending }

// Actionable возвращает ActionableSet.
func (o *Observer) Actionable() *index.ActionableSet { return o.actionable }

// HandleSlotConfirmed ставит в очередь подтверждение слота.
func (o *Observer) HandleSlotConfirmed(slot uint64) error {
	return o.submit(slotLane, job{kind: EventSlotConfirmed, slot: slot})
}

// HandleClockUpdated ставит в очередь новый сэмпл часов.
func (o *Observer) HandleClockUpdated(clock domain.Clock) error {
	return o.submit(clockLane, job{kind: EventClockUpdated, slot: clock.Slot, ts: clock.UnixTimestamp})
}

// HandleQueueUpdated ставит в очередь обновление аккаунта очереди.
func (o *Observer) HandleQueueUpdated(key solana.PublicKey, queue *domain.Queue) error {
	return o.submit(o.laneFor(key), job{kind: EventQueueUpdated, key: key, queue: queue})
}

func (o *Observer) submit(lane int, j job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.stopped {
		return ErrStopped
	}
	o.lanes[lane] <- j
	return nil
}

// laneFor выбирает полосу по ключу очереди. Ключи — ed25519/PDA адреса,
// первые 8 байт распределены равномерно.
func (o *Observer) laneFor(key solana.PublicKey) int {
	n := uint64(len(o.lanes) - firstQueueLane)
	return firstQueueLane + int(binary.LittleEndian.Uint64(key[:8])%n)
}

func (o *Observer) runLane(ch chan job) {
	defer o.wg.Done()

	for {
		select {
		case j := <-ch:
			o.publish(o.process(j))
		case <-o.quit:
			for {
				select {
				case j := <-ch:
					o.publish(o.process(j))
				default:
					return
				}
			}
		}
	}
}

func (o *Observer) publish(res Result) {
	select {
	case o.results <- res:
	default:
		o.dropped.Add(1)
		telemetry.ResultsDropped.Inc()
	}
}

func (o *Observer) process(j job) Result {
	telemetry.EventsHandled.WithLabelValues(string(j.kind)).Inc()

	var res Result
	switch j.kind {
	case EventSlotConfirmed:
		res = o.confirmSlot(j.slot)
	case EventClockUpdated:
		res = o.recordClock(j.slot, j.ts)
	case EventQueueUpdated:
		res = o.updateQueue(j.key, j.queue)
	}

	o.observeSizes()
	return res
}

// confirmSlot: сэмпл часов слота → DrainDue → Promote.
func (o *Observer) confirmSlot(slot uint64) Result {
	res := Result{Kind: EventSlotConfirmed, Slot: slot}

	if last, ok := o.clock.Confirmed(); ok && slot <= last {
		res.Err = fmt.Errorf("%w: slot %d, last confirmed %d", ErrStaleSlot, slot, last)
		return res
	}

	ts, ok := o.clock.ConsumeConfirmed(slot)
	if !ok {
		telemetry.ClockFallbacks.Inc()

		var err error
		if ts, err = o.readClock(slot); err != nil {
			res.Err = err
			o.logger.Warn("confirmed slot without clock sample", "slot", slot, "error", err)
			return res
		}
		o.clock.Remember(slot, ts)
	}

	due := o.pending.DrainDue(ts)
	res.Timestamp = ts
	res.Promoted = o.actionable.Promote(due...)
	telemetry.QueuesPromoted.Add(float64(res.Promoted))

	if res.Promoted > 0 {
		o.logger.Debug("queues promoted", "slot", slot, "unix_timestamp", ts, "count", res.Promoted)
	}
	return res
}

// readClock читает часы из леджера для слота без сэмпла.
func (o *Observer) readClock(slot uint64) (int64, error) {
	if o.clockReader == nil {
		return 0, fmt.Errorf("%w: slot %d", ErrNoClockSample, slot)
	}

	ctx, cancel := context.WithTimeout(o.ctx, o.fallbackTimeout)
	defer cancel()

	clock, err := o.clockReader.GetClock(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: slot %d: %v", ErrNoClockSample, slot, err)
	}

	o.logger.Debug("clock read from ledger", "slot", slot, "clock_slot", clock.Slot, "unix_timestamp", clock.UnixTimestamp)
	return clock.UnixTimestamp, nil
}

func (o *Observer) recordClock(slot uint64, ts int64) Result {
	res := Result{Kind: EventClockUpdated, Slot: slot, Timestamp: ts}
	if !o.clock.Record(slot, ts) {
		res.Err = fmt.Errorf("%w: clock sample for slot %d", ErrStaleSlot, slot)
	}
	return res
}

// updateQueue: состояние очереди изменилось — любые предположения о ней устарели.
func (o *Observer) updateQueue(key solana.PublicKey, queue *domain.Queue) Result {
	res := Result{Kind: EventQueueUpdated, Queue: key}
	res.Evicted = o.actionable.Evict(key)

	if queue != nil && queue.HasExecAt() {
		o.pending.Insert(*queue.ExecAt, key)
	} else {
		o.pending.Remove(key)
	}

	telemetry.WithQueue(o.logger, key.String()).Debug("queue updated",
		"evicted", res.Evicted,
		"pending", o.pending.Contains(key),
	)
	return res
}

func (o *Observer) observeSizes() {
	telemetry.PendingQueues.Set(float64(o.pending.Len()))
	telemetry.ActionableQueues.Set(float64(o.actionable.Len()))
	telemetry.ClockSamples.Set(float64(o.clock.Len()))
}
