package executor

import (
	"fmt"
	"slices"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/domain"
)

// PacketDataSize — максимальный размер сериализованной транзакции в леджере.
const PacketDataSize = 1232

// signatureSize — размер одной ed25519-подписи.
const signatureSize = 64

// taskRef — task вместе с её адресом.
type taskRef struct {
	address solana.PublicKey
	task    *domain.Task
}

// chunk — набор task'ов, упаковываемых в одну транзакцию.
type chunk struct {
	start bool
	tasks []taskRef
}

func (c chunk) empty() bool {
	return !c.start && len(c.tasks) == 0
}

// assembler собирает инструкции для одной транзакции.
type assembler struct {
	programID solana.PublicKey
	delegate  solana.PublicKey
	manager   solana.PublicKey
	queue     solana.PublicKey
}

// instructions возвращает список инструкций чанка: queue_start (если нужен),
// затем task_exec по возрастанию индекса.
//
// Аккаунты вложенных инструкций дедуплицируются в пределах своей task_exec:
// программа добавляется один раз как read-only, аккаунт — один раз, и
// запрос на запись делает уже добавленный аккаунт writable. Каждой task_exec
// нужен полный список своих аккаунтов; общие ключи транзакции схлопывает
// компиляция сообщения.
func (a assembler) instructions(c chunk) []solana.Instruction {
	ixs := make([]solana.Instruction, 0, len(c.tasks)+1)
	if c.start {
		ixs = append(ixs, QueueStart(a.programID, a.delegate, a.manager, a.queue))
	}

	for _, ref := range c.tasks {
		ix := TaskExec(a.programID, a.delegate, a.manager, a.queue, ref.address)

		seen := make(map[solana.PublicKey]*solana.AccountMeta)

		for _, inner := range ref.task.Instructions {
			if _, ok := seen[inner.ProgramID]; !ok {
				meta := solana.NewAccountMeta(inner.ProgramID, false, false)
				seen[inner.ProgramID] = meta
				ix.AccountValues = append(ix.AccountValues, meta)
			}

			for _, acc := range inner.Accounts {
				key := acc.Resolve(a.delegate)
				if meta, ok := seen[key]; ok {
					if acc.IsWritable {
						meta.IsWritable = true
					}
					continue
				}
				meta := solana.NewAccountMeta(key, acc.IsWritable, false)
				seen[key] = meta
				ix.AccountValues = append(ix.AccountValues, meta)
			}
		}

		ixs = append(ixs, ix)
	}
	return ixs
}

// size возвращает размер подписанной транзакции для чанка.
func (a assembler) size(c chunk) (int, error) {
	tx, err := solana.NewTransaction(a.instructions(c), solana.Hash{}, solana.TransactionPayer(a.delegate))
	if err != nil {
		return 0, fmt.Errorf("%w: compile transaction: %v", ErrSubmissionPrep, err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("%w: marshal message: %v", ErrSubmissionPrep, err)
	}
	// compact-u16 длина массива подписей (1 байт при < 128 подписей)
	return 1 + signatureSize*int(tx.Message.Header.NumRequiredSignatures) + len(msg), nil
}

func (a assembler) fits(c chunk) (bool, error) {
	n, err := a.size(c)
	if err != nil {
		return false, err
	}
	return n <= PacketDataSize, nil
}

// plan раскладывает task'и по чанкам жадно, в порядке индексов.
//
// Ограничения: не больше maxTasks task'ов и не больше PacketDataSize байт
// на транзакцию. queue_start едет в первом чанке. Если task не помещается
// даже одна, возвращаются уже собранные чанки и ErrOversizedQueue.
func (a assembler) plan(start bool, tasks []taskRef, maxTasks int) ([]chunk, error) {
	var out []chunk
	cur := chunk{start: start}

	for _, ref := range tasks {
		candidate := chunk{start: cur.start, tasks: append(slices.Clone(cur.tasks), ref)}

		if len(candidate.tasks) <= maxTasks {
			ok, err := a.fits(candidate)
			if err != nil {
				return out, err
			}
			if ok {
				cur = candidate
				continue
			}
		}

		if !cur.empty() {
			out = append(out, cur)
		}
		cur = chunk{tasks: []taskRef{ref}}

		ok, err := a.fits(cur)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, fmt.Errorf("%w: task %d of queue %s", ErrOversizedQueue, ref.task.Index, a.queue)
		}
	}

	if !cur.empty() {
		out = append(out, cur)
	}
	return out, nil
}
