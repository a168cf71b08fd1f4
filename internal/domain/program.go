package domain

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// SeedTask — seed PDA task в scheduler-программе.
const SeedTask = "task"

// DelegatePayerPlaceholder — зарезервированный ключ "исполнитель как плательщик".
//
// Вложенные инструкции ссылаются на него, не зная заранее, какой узел их выполнит.
var DelegatePayerPlaceholder = solana.PublicKeyFromBytes(hashed("cronos:delegate-payer"))

// Дискриминаторы Anchor-аккаунтов: sha256("account:<Name>")[:8].
var (
	QueueDiscriminator = discriminator("account:Queue")
	TaskDiscriminator  = discriminator("account:Task")
	PoolDiscriminator  = discriminator("account:Pool")
)

// InstructionDiscriminator возвращает дискриминатор Anchor-инструкции: sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [8]byte {
	var out [8]byte
	copy(out[:], hashed(preimage))
	return out
}

func hashed(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
