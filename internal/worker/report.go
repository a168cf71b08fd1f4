package worker

import (
	"context"
	"errors"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/executor"
	"github.com/shaiso/Cronos/internal/mq"
	"github.com/shaiso/Cronos/internal/observer"
	"github.com/shaiso/Cronos/internal/telemetry"
)

// Sweep выполняет один sweep и обрабатывает его итоги: собранные
// транзакции отправляются в Sink, по каждой попытке пишется запись истории.
// Возвращает записанные Execution (порядок: по очередям, внутри очереди по chunk'ам).
func (w *Worker) Sweep(ctx context.Context, slot uint64) []*domain.Execution {
	outcomes := w.observer.Sweep(ctx, slot)
	if len(outcomes) == 0 {
		return nil
	}

	var out []*domain.Execution
	for _, outcome := range outcomes {
		out = append(out, w.dispatch(ctx, outcome)...)
	}
	return out
}

// dispatch отправляет транзакции одной очереди и формирует записи истории.
func (w *Worker) dispatch(ctx context.Context, outcome observer.Outcome) []*domain.Execution {
	queue := outcome.Queue.String()
	logger := telemetry.WithSlot(telemetry.WithQueue(w.logger, queue), outcome.Slot)

	var out []*domain.Execution

	for _, prepared := range outcome.Prepared {
		exec := domain.NewExecution(queue, outcome.Slot, domain.ExecutionStatusSubmitted)
		exec.FirstTask = prepared.FirstTask
		exec.TaskCount = prepared.TaskCount

		sig, err := w.submit(ctx, prepared)
		if err != nil {
			logger.Error("failed to submit transaction", "first_task", prepared.FirstTask, "error", err)
			exec.MarkFailed(err.Error())
		} else {
			exec.Signature = sig
			telemetry.TransactionsSubmitted.Inc()
			logger.Info("transaction submitted",
				"signature", sig,
				"first_task", prepared.FirstTask,
				"task_count", prepared.TaskCount,
				"includes_start", prepared.IncludesStart,
			)
		}

		w.record(ctx, exec)
		out = append(out, exec)
	}

	// Ошибка сборки могла наступить после части chunk'ов.
	if outcome.Err != nil {
		exec := domain.NewExecution(queue, outcome.Slot, outcome.Status())
		exec.Error = outcome.Err.Error()
		if len(outcome.Prepared) > 0 {
			last := outcome.Prepared[len(outcome.Prepared)-1]
			exec.FirstTask = last.FirstTask + uint64(last.TaskCount)
		}
		w.record(ctx, exec)
		out = append(out, exec)
	}

	return out
}

func (w *Worker) submit(ctx context.Context, prepared *executor.Prepared) (string, error) {
	if w.sink == nil {
		return "", ErrNoSink
	}
	sig, err := w.sink.Submit(ctx, prepared.Transaction)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// record сохраняет запись и публикует отчёт. Ошибки только логируются:
// история не влияет на исполнение.
func (w *Worker) record(ctx context.Context, exec *domain.Execution) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultReportTimeout)
	defer cancel()

	if w.store != nil {
		if err := w.store.Create(ctx, exec); err != nil {
			w.logger.Warn("failed to store execution", "execution_id", exec.ID, "error", err)
		}
	}

	if w.reporter != nil {
		err := w.reporter.PublishExecution(ctx, mq.ExecutionReportedPayload{
			ExecutionID: exec.ID,
			Queue:       exec.Queue,
			Slot:        exec.Slot,
			Status:      string(exec.Status),
			Signature:   exec.Signature,
			FirstTask:   exec.FirstTask,
			TaskCount:   exec.TaskCount,
			Error:       exec.Error,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("failed to publish execution report", "execution_id", exec.ID, "error", err)
		}
	}
}
