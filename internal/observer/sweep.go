package observer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/executor"
	"github.com/shaiso/Cronos/internal/telemetry"
)

// Outcome — итог попытки собрать транзакции для одной очереди.
type Outcome struct {
	Queue    solana.PublicKey
	Slot     uint64
	Prepared []*executor.Prepared
	Err      error

	// Requeued — очередь возвращена в PendingIndex (в момент RetryAt).
	Requeued bool
	RetryAt  int64
}

// Status переводит итог в статус записи истории.
// Собранные транзакции ещё не отправлены: статус SUBMITTED окончательно
// выставляет тот, кто отдаёт их в sink.
func (o Outcome) Status() domain.ExecutionStatus {
	switch {
	case o.Err == nil:
		return domain.ExecutionStatusSubmitted
	case executor.IsSkip(o.Err):
		return domain.ExecutionStatusSkipped
	case errors.Is(o.Err, executor.ErrQueuePaused):
		return domain.ExecutionStatusPaused
	default:
		return domain.ExecutionStatusFailed
	}
}

// Sweep пытается исполнить все очереди из снимка ActionableSet.
//
// Каждая очередь удаляется из ActionableSet до сборки, независимо от исхода.
// Если Builder вернул время повторной попытки, очередь возвращается в
// PendingIndex (если за это время её не положил туда queue.updated).
// Ошибки отдельных очередей не прерывают sweep.
func (o *Observer) Sweep(ctx context.Context, slot uint64) []Outcome {
	members := o.actionable.Snapshot()
	if len(members) == 0 {
		return nil
	}

	var pos domain.PoolPosition
	if o.positions != nil {
		pos = o.positions.Get()
	}

	var (
		outcomes  = make([]Outcome, len(members))
		attempted = make([]bool, len(members))
		g         errgroup.Group
	)
	g.SetLimit(o.buildConcurrency)

	for i, queue := range members {
		g.Go(func() error {
			// Очередь могли уже выселить queue.updated или параллельный sweep.
			if !o.actionable.Evict(queue) {
				return nil
			}
			outcomes[i] = o.attempt(ctx, queue, slot, pos)
			attempted[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := outcomes[:0]
	for i := range outcomes {
		if attempted[i] {
			out = append(out, outcomes[i])
		}
	}

	o.observeSizes()
	return out
}

func (o *Observer) attempt(ctx context.Context, queue solana.PublicKey, slot uint64, pos domain.PoolPosition) Outcome {
	out := Outcome{Queue: queue, Slot: slot}

	out.Prepared, out.Err = o.build(ctx, queue, slot, pos)

	if at, ok := executor.RetryAt(out.Err); ok {
		out.RetryAt = at
		out.Requeued = o.pending.InsertIfAbsent(at, queue)
	}

	telemetry.SweepOutcomes.WithLabelValues(string(out.Status())).Inc()

	logger := telemetry.WithSlot(telemetry.WithQueue(o.logger, queue.String()), slot)
	switch status := out.Status(); {
	case out.Err == nil:
	case status.IsAttempt():
		logger.Warn("queue dispatch failed", "error", out.Err, "requeued", out.Requeued, "prepared", len(out.Prepared))
	default:
		logger.Debug("queue skipped", "status", status, "reason", out.Err, "requeued", out.Requeued)
	}
	return out
}

// build вызывает Builder; паника превращается в ошибку этой очереди.
func (o *Observer) build(ctx context.Context, queue solana.PublicKey, slot uint64, pos domain.PoolPosition) (prepared []*executor.Prepared, err error) {
	defer func() {
		if r := recover(); r != nil {
			prepared, err = nil, fmt.Errorf("%w: %v", ErrBuildPanic, r)
		}
	}()
	return o.builder.Build(ctx, queue, slot, pos)
}
