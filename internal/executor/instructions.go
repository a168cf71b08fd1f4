package executor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/domain"
)

var (
	queueStartDiscriminator = domain.InstructionDiscriminator("queue_start")
	taskExecDiscriminator   = domain.InstructionDiscriminator("task_exec")
)

// QueueStart строит инструкцию запуска очереди (переводит PENDING → PROCESSING{0}).
func QueueStart(programID, delegate, manager, queue solana.PublicKey) *solana.GenericInstruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(delegate, true, true),
			solana.NewAccountMeta(manager, false, false),
			solana.NewAccountMeta(queue, true, false),
		},
		append([]byte(nil), queueStartDiscriminator[:]...),
	)
}

// TaskExec строит инструкцию выполнения одной task.
// Аккаунты вложенных инструкций добавляются вызывающим после фиксированных.
func TaskExec(programID, delegate, manager, queue, task solana.PublicKey) *solana.GenericInstruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(delegate, true, true),
			solana.NewAccountMeta(manager, false, false),
			solana.NewAccountMeta(queue, true, false),
			solana.NewAccountMeta(task, false, false),
		},
		append([]byte(nil), taskExecDiscriminator[:]...),
	)
}
