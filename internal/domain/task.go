package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Task — отдельная единица работы внутри очереди.
//
// Task идентифицируется парой (queue, index) и неизменяема после создания.
// Worker только читает её при сборке транзакции.
type Task struct {
	// Queue — очередь, которой принадлежит task.
	Queue solana.PublicKey `json:"queue"`

	// Index — порядковый номер task в очереди (начиная с 0).
	Index uint64 `json:"index"`

	// Instructions — вложенные инструкции, выполняемые через CPI.
	Instructions []InstructionData `json:"instructions"`
}

// InstructionData — сериализованная инструкция внутри task.
type InstructionData struct {
	ProgramID solana.PublicKey  `json:"program_id"`
	Accounts  []AccountMetaData `json:"accounts"`
	Data      []byte            `json:"data"`
}

// AccountRole — роль аккаунта во вложенной инструкции.
type AccountRole uint8

const (
	// RoleStatic — обычный аккаунт, передаётся как есть.
	RoleStatic AccountRole = iota

	// RoleDelegatePayer — placeholder "исполняющий делегат как плательщик".
	// При сборке транзакции заменяется на ключ текущего узла.
	RoleDelegatePayer
)

// AccountMetaData — аккаунт, запрошенный вложенной инструкцией.
type AccountMetaData struct {
	PublicKey  solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`

	// Role вычисляется при декодировании, в аккаунте не хранится.
	Role AccountRole `json:"-"`
}

// Resolve возвращает фактический ключ аккаунта для узла delegate.
func (m AccountMetaData) Resolve(delegate solana.PublicKey) solana.PublicKey {
	if m.Role == RoleDelegatePayer {
		return delegate
	}
	return m.PublicKey
}

// NewAccountMetaData создаёт AccountMetaData с вычисленной ролью.
func NewAccountMetaData(pubkey solana.PublicKey, isSigner, isWritable bool) AccountMetaData {
	role := RoleStatic
	if pubkey.Equals(DelegatePayerPlaceholder) {
		role = RoleDelegatePayer
	}
	return AccountMetaData{
		PublicKey:  pubkey,
		IsSigner:   isSigner,
		IsWritable: isWritable,
		Role:       role,
	}
}

// TaskPDA вычисляет адрес task по очереди и индексу.
func TaskPDA(programID, queue solana.PublicKey, index uint64) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(SeedTask),
		queue.Bytes(),
		leUint64(index),
	}, programID)
	return addr, err
}
