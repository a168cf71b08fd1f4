package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/delegation"
	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/mq"
	"github.com/shaiso/Cronos/internal/observer"
)

// Default configuration values.
const (
	defaultSweepInterval = 2 * time.Second
	defaultPrefetch      = 64
	defaultReportTimeout = 5 * time.Second
)

// Sink принимает подписанные транзакции для отправки в леджер.
type Sink interface {
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// ExecutionStore сохраняет историю попыток.
type ExecutionStore interface {
	Create(ctx context.Context, e *domain.Execution) error
}

// Reporter публикует отчёты об исполнении.
type Reporter interface {
	PublishExecution(ctx context.Context, payload mq.ExecutionReportedPayload) error
}

// Worker — узел планировщика.
//
// Worker:
//   - Получает уведомления леджера из RabbitMQ и передаёт их Observer'у
//   - Запускает sweep по подтверждению слота (если что-то стало actionable)
//     и по таймеру
//   - Отправляет собранные транзакции в Sink
//   - Пишет историю попыток и публикует отчёты
type Worker struct {
	observer  *observer.Observer
	refresher *delegation.Refresher

	// Outputs
	sink     Sink
	store    ExecutionStore
	reporter Reporter

	// MQ
	conn     *mq.Connection
	consumer *mq.Consumer

	// Sweep
	sweepInterval time.Duration
	sweepCh       chan struct{}
	lastSlot      atomic.Uint64

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    atomic.Bool
}

// Config — конфигурация Worker.
type Config struct {
	Observer  *observer.Observer
	Refresher *delegation.Refresher // опционально

	Sink     Sink
	Store    ExecutionStore // опционально
	Reporter Reporter       // опционально

	// Conn — соединение RabbitMQ; если nil, события подаются через HandleMessage.
	Conn *mq.Connection

	SweepInterval time.Duration // default: 2s

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		observer:      cfg.Observer,
		refresher:     cfg.Refresher,
		sink:          cfg.Sink,
		store:         cfg.Store,
		reporter:      cfg.Reporter,
		conn:          cfg.Conn,
		sweepInterval: sweepInterval,
		sweepCh:       make(chan struct{}, 1),
		logger:        logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Observer и обработку его результатов
//   - Refresher позиции в пуле
//   - Consumer для ledger.events
//   - Цикл sweep'ов
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "sweep_interval", w.sweepInterval)

	w.observer.Start(ctx)

	if w.refresher != nil {
		w.refresher.Start(ctx)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.watchResults()
	}()

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueLedgerEvents,
			Handler:  w.HandleMessage,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("ledger events consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweepLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}

	w.logger.Info("stopping worker...")

	if w.consumer != nil {
		w.consumer.Stop()
	}

	// Observer дообрабатывает принятые события и закрывает Results(),
	// после чего watchResults завершается.
	w.observer.Stop()

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.refresher != nil {
		w.refresher.Stop()
	}

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

// watchResults читает итоги Observer'а: логирует ошибки и
// запрашивает sweep, когда очереди стали actionable.
func (w *Worker) watchResults() {
	for res := range w.observer.Results() {
		if res.Err != nil {
			if errors.Is(res.Err, observer.ErrStaleSlot) {
				w.logger.Debug("stale ledger event", "type", res.Kind, "slot", res.Slot)
			} else {
				w.logger.Warn("ledger event not applied", "type", res.Kind, "slot", res.Slot, "error", res.Err)
			}
			continue
		}

		if res.Kind == observer.EventSlotConfirmed {
			w.advanceSlot(res.Slot)
			if res.Promoted > 0 {
				w.requestSweep()
			}
		}
	}
}

func (w *Worker) advanceSlot(slot uint64) {
	for {
		cur := w.lastSlot.Load()
		if slot <= cur || w.lastSlot.CompareAndSwap(cur, slot) {
			return
		}
	}
}

// requestSweep просит цикл sweep'ов пройти как можно скорее.
// Несколько запросов подряд схлопываются в один.
func (w *Worker) requestSweep() {
	select {
	case w.sweepCh <- struct{}{}:
	default:
	}
}

// sweepLoop — единственная горутина, выполняющая sweep'ы.
func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.sweepCh:
		case <-ticker.C:
		}

		w.Sweep(ctx, w.lastSlot.Load())
	}
}
