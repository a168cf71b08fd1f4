package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/delegation"
	"github.com/shaiso/Cronos/internal/domain"
)

// DefaultMaxTasksPerTx — сколько task_exec инструкций максимум кладётся в одну транзакцию.
const DefaultMaxTasksPerTx = 5

// DefaultMaxTasksPerBuild — сколько task'ов читается за одну сборку.
// Остаток исполняется следующими сборками: queue.updated с PROCESSING{i}
// возвращает очередь в PendingIndex.
const DefaultMaxTasksPerBuild = 4 * DefaultMaxTasksPerTx

// Ledger — чтение состояния леджера, нужное для сборки транзакции.
//
// Все методы могут временно падать (сеть, таймаут); ошибка касается только
// той очереди, для которой выполнялся вызов.
type Ledger interface {
	GetQueue(ctx context.Context, queue solana.PublicKey) (*domain.Queue, error)
	GetTask(ctx context.Context, task solana.PublicKey) (*domain.Task, error)
	GetClock(ctx context.Context) (*domain.Clock, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// ClockSamples — источник wall-clock времени по слоту (ClockIndex).
// Для последнего подтверждённого слота отдаёт время, с которым он подтверждён.
type ClockSamples interface {
	At(slot uint64) (int64, bool)
}

// Prepared — подписанная транзакция, готовая к отправке.
type Prepared struct {
	Queue       solana.PublicKey
	Transaction *solana.Transaction

	// Instructions — инструкции транзакции до компиляции (для логов и проверки).
	Instructions []solana.Instruction

	IncludesStart bool
	FirstTask     uint64
	TaskCount     int
}

// Builder собирает транзакции исполнения очереди.
type Builder struct {
	programID   solana.PublicKey
	signer      solana.PrivateKey
	identity    solana.PublicKey
	ledger      Ledger
	clock       ClockSamples
	gracePeriod int64
	maxTasks    int
	maxPerBuild uint64
	logger      *slog.Logger
}

// Config — конфигурация Builder.
type Config struct {
	ProgramID     solana.PublicKey  // scheduler-программа
	Signer        solana.PrivateKey // ключ узла: fee payer и подпись
	Ledger        Ledger
	Clock         ClockSamples
	GracePeriod   int64 // секунды (default: delegation.DefaultGracePeriod)
	MaxTasksPerTx int   // default: DefaultMaxTasksPerTx
	// MaxTasksPerBuild — не меньше MaxTasksPerTx (default: DefaultMaxTasksPerBuild)
	MaxTasksPerBuild int
	Logger           *slog.Logger
}

// New создаёт новый Builder.
func New(cfg Config) *Builder {
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = delegation.DefaultGracePeriod
	}

	maxTasks := cfg.MaxTasksPerTx
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasksPerTx
	}

	perBuild := cfg.MaxTasksPerBuild
	if perBuild <= 0 {
		perBuild = DefaultMaxTasksPerBuild
	}
	perBuild = max(perBuild, maxTasks)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		programID:   cfg.ProgramID,
		signer:      cfg.Signer,
		identity:    cfg.Signer.PublicKey(),
		ledger:      cfg.Ledger,
		clock:       cfg.Clock,
		gracePeriod: grace,
		maxTasks:    maxTasks,
		maxPerBuild: uint64(perBuild),
		logger:      logger,
	}
}

// Identity возвращает ключ узла.
func (b *Builder) Identity() solana.PublicKey {
	return b.identity
}

// Build собирает транзакции, исполняющие оставшуюся работу очереди.
//
//  1. Очередь без exec_at → ErrNotDue
//  2. "Сейчас" — сэмпл ClockIndex для slot, иначе чтение часов из леджера
//  3. MayAct == false → ErrNotAuthorized
//  4. PENDING → queue_start + task'и с 0; PROCESSING{i} → task'и с i; PAUSED → ErrQueuePaused
//  5. task_exec на каждую task, аккаунты вложенных инструкций дедуплицируются
//  6. Чанки подписываются ключом узла с последним blockhash
//
// За одну сборку читается не больше MaxTasksPerBuild task'ов.
//
// При ErrOversizedQueue возвращаются и уже собранные транзакции.
// Пропуск по grace period и временные ошибки чтения леджера приходят
// как *RetryError с временем, когда очередь стоит проверить снова.
func (b *Builder) Build(ctx context.Context, queueKey solana.PublicKey, slot uint64, pos domain.PoolPosition) ([]*Prepared, error) {
	queue, err := b.ledger.GetQueue(ctx, queueKey)
	if err != nil {
		return nil, fmt.Errorf("%w: get queue %s: %v", ErrSubmissionPrep, queueKey, err)
	}

	if !queue.HasExecAt() {
		return nil, fmt.Errorf("%w: queue %s has no exec_at", ErrNotDue, queueKey)
	}

	execAt := *queue.ExecAt

	now, err := b.now(ctx, slot)
	if err != nil {
		return nil, &RetryError{RetryAt: execAt, Err: err}
	}

	if !delegation.MayAct(pos, now, execAt, b.gracePeriod) {
		return nil, &RetryError{
			RetryAt: execAt + b.gracePeriod,
			Err:     fmt.Errorf("%w: queue %s exec_at=%d now=%d", ErrNotAuthorized, queueKey, execAt, now),
		}
	}

	var (
		start     bool
		firstTask uint64
	)
	switch queue.Status.Kind {
	case domain.QueueStatusPaused:
		return nil, fmt.Errorf("%w: %s", ErrQueuePaused, queueKey)
	case domain.QueueStatusPending:
		start = true
	case domain.QueueStatusProcessing:
		firstTask = queue.Status.TaskIndex
	default:
		return nil, fmt.Errorf("%w: queue %s has unknown status %s", ErrSubmissionPrep, queueKey, queue.Status)
	}

	if !start && firstTask >= queue.TaskCount {
		return nil, fmt.Errorf("%w: queue %s has no remaining tasks", ErrNotDue, queueKey)
	}

	tasks, err := b.loadTasks(ctx, queueKey, firstTask, queue.TaskCount)
	if err != nil {
		return nil, &RetryError{RetryAt: execAt, Err: err}
	}

	asm := assembler{
		programID: b.programID,
		delegate:  b.identity,
		manager:   queue.Manager,
		queue:     queueKey,
	}

	chunks, planErr := asm.plan(start, tasks, b.maxTasks)
	if len(chunks) == 0 {
		if planErr == nil {
			planErr = fmt.Errorf("%w: queue %s produced no instructions", ErrNotDue, queueKey)
		}
		return nil, planErr
	}

	prepared, err := b.sign(ctx, asm, chunks, firstTask)
	if err != nil {
		return nil, &RetryError{RetryAt: execAt, Err: err}
	}

	b.logger.Debug("built queue transactions",
		"queue", queueKey,
		"slot", slot,
		"status", queue.Status.String(),
		"transactions", len(prepared),
	)

	return prepared, planErr
}

// now возвращает unix timestamp для слота.
func (b *Builder) now(ctx context.Context, slot uint64) (int64, error) {
	if b.clock != nil {
		if ts, ok := b.clock.At(slot); ok {
			return ts, nil
		}
	}

	clock, err := b.ledger.GetClock(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: get clock: %v", ErrSubmissionPrep, err)
	}
	return clock.UnixTimestamp, nil
}

// loadTasks читает task'и [from, count), но не больше maxPerBuild за раз.
// count приходит из аккаунта очереди и ничем не ограничен.
func (b *Builder) loadTasks(ctx context.Context, queueKey solana.PublicKey, from, count uint64) ([]taskRef, error) {
	if from >= count {
		return nil, nil
	}
	end := count
	if count-from > b.maxPerBuild {
		end = from + b.maxPerBuild
	}

	refs := make([]taskRef, 0, end-from)
	for i := from; i < end; i++ {
		addr, err := domain.TaskPDA(b.programID, queueKey, i)
		if err != nil {
			return nil, fmt.Errorf("%w: derive task %d address: %v", ErrSubmissionPrep, i, err)
		}

		task, err := b.ledger.GetTask(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: get task %d (%s): %v", ErrSubmissionPrep, i, addr, err)
		}
		task.Index = i

		refs = append(refs, taskRef{address: addr, task: task})
	}
	return refs, nil
}

// sign компилирует чанки в транзакции с fee payer = узел и подписывает их.
func (b *Builder) sign(ctx context.Context, asm assembler, chunks []chunk, firstTask uint64) ([]*Prepared, error) {
	blockhash, err := b.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get latest blockhash: %v", ErrSubmissionPrep, err)
	}

	out := make([]*Prepared, 0, len(chunks))
	next := firstTask
	for _, c := range chunks {
		tx, err := solana.NewTransaction(asm.instructions(c), blockhash, solana.TransactionPayer(b.identity))
		if err != nil {
			return nil, fmt.Errorf("%w: compile transaction: %v", ErrSubmissionPrep, err)
		}

		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(b.identity) {
				return &b.signer
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("%w: sign transaction: %v", ErrSubmissionPrep, err)
		}

		out = append(out, &Prepared{
			Queue:         asm.queue,
			Transaction:   tx,
			Instructions:  asm.instructions(c),
			IncludesStart: c.start,
			FirstTask:     next,
			TaskCount:     len(c.tasks),
		})
		next += uint64(len(c.tasks))
	}
	return out, nil
}
