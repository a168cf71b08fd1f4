package index

import (
	"github.com/gagliardetto/solana-go"
	"github.com/puzpuzpuz/xsync/v3"
)

// ActionableSet — множество очередей, готовых к диспетчеризации.
//
// Очередь попадает сюда из PendingIndex и удаляется после любой попытки
// (успешной или нет) либо при обновлении аккаунта очереди.
type ActionableSet struct {
	members *xsync.MapOf[solana.PublicKey, struct{}]
}

// NewActionableSet создаёт пустое множество.
func NewActionableSet() *ActionableSet {
	return &ActionableSet{
		members: xsync.NewMapOf[solana.PublicKey, struct{}](),
	}
}

// Promote добавляет очереди в множество. Возвращает количество новых.
func (a *ActionableSet) Promote(queues ...solana.PublicKey) int {
	var added int
	for _, q := range queues {
		if _, loaded := a.members.LoadOrStore(q, struct{}{}); !loaded {
			added++
		}
	}
	return added
}

// Evict удаляет очередь. Возвращает true, если она была в множестве.
func (a *ActionableSet) Evict(queue solana.PublicKey) bool {
	_, ok := a.members.LoadAndDelete(queue)
	return ok
}

// Contains проверяет членство.
func (a *ActionableSet) Contains(queue solana.PublicKey) bool {
	_, ok := a.members.Load(queue)
	return ok
}

// Snapshot возвращает срез членов на момент вызова.
// Безопасен при параллельных Promote / Evict.
func (a *ActionableSet) Snapshot() []solana.PublicKey {
	out := make([]solana.PublicKey, 0, a.members.Size())
	a.members.Range(func(q solana.PublicKey, _ struct{}) bool {
		out = append(out, q)
		return true
	})
	return out
}

// Len возвращает количество очередей.
func (a *ActionableSet) Len() int {
	return a.members.Size()
}
