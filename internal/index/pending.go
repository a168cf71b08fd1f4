package index

import (
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/puzpuzpuz/xsync/v3"
)

type queueSet map[solana.PublicKey]struct{}

// PendingIndex — индекс очередей, ожидающих выполнения, по времени exec_at.
//
// Инварианты:
//   - очередь находится не более чем в одном bucket'е;
//   - пустые bucket'ы удаляются;
//   - DrainDue возвращает очередь не более одного раза.
//
// members — источник истины "в каком bucket'е очередь"; bucket'ы неизменяемы
// (copy-on-write), поэтому их можно читать без блокировок.
type PendingIndex struct {
	buckets *xsync.MapOf[int64, queueSet]
	members *xsync.MapOf[solana.PublicKey, int64]
}

// NewPendingIndex создаёт пустой PendingIndex.
func NewPendingIndex() *PendingIndex {
	return &PendingIndex{
		buckets: xsync.NewMapOf[int64, queueSet](),
		members: xsync.NewMapOf[solana.PublicKey, int64](),
	}
}

// Insert добавляет очередь в bucket execAt.
// Повторная вставка идемпотентна; если очередь была в другом bucket'е, она переносится.
func (p *PendingIndex) Insert(execAt int64, queue solana.PublicKey) {
	prev, loaded := p.members.LoadAndStore(queue, execAt)
	if loaded && prev != execAt {
		p.removeFromBucket(prev, queue)
	}
	p.addToBucket(execAt, queue)
}

// InsertIfAbsent добавляет очередь, только если её ещё нет в индексе.
// Более свежая вставка из queue.updated не перезаписывается.
func (p *PendingIndex) InsertIfAbsent(execAt int64, queue solana.PublicKey) bool {
	if _, loaded := p.members.LoadOrStore(queue, execAt); loaded {
		return false
	}
	p.addToBucket(execAt, queue)
	return true
}

// Remove удаляет очередь из индекса. Возвращает true, если очередь там была.
func (p *PendingIndex) Remove(queue solana.PublicKey) bool {
	prev, loaded := p.members.LoadAndDelete(queue)
	if !loaded {
		return false
	}
	p.removeFromBucket(prev, queue)
	return true
}

// DrainDue удаляет и возвращает все очереди из bucket'ов с ключом <= confirmedTimestamp.
//
// Очереди возвращаются в порядке возрастания exec_at. Вставки для более
// поздних timestamp'ов, идущие параллельно, не затрагиваются.
func (p *PendingIndex) DrainDue(confirmedTimestamp int64) []solana.PublicKey {
	var due []int64
	p.buckets.Range(func(execAt int64, _ queueSet) bool {
		if execAt <= confirmedTimestamp {
			due = append(due, execAt)
		}
		return true
	})
	slices.Sort(due)

	var out []solana.PublicKey
	for _, execAt := range due {
		bucket, ok := p.buckets.LoadAndDelete(execAt)
		if !ok {
			continue
		}
		for queue := range bucket {
			if p.claim(queue, confirmedTimestamp) {
				out = append(out, queue)
			}
		}
	}
	return out
}

// Contains проверяет, есть ли очередь в индексе.
func (p *PendingIndex) Contains(queue solana.PublicKey) bool {
	_, ok := p.members.Load(queue)
	return ok
}

// Len возвращает количество очередей в индексе.
func (p *PendingIndex) Len() int {
	return p.members.Size()
}

// Buckets возвращает копию индекса exec_at → очереди (для диагностики).
func (p *PendingIndex) Buckets() map[int64][]solana.PublicKey {
	out := make(map[int64][]solana.PublicKey)
	p.members.Range(func(queue solana.PublicKey, execAt int64) bool {
		out[execAt] = append(out[execAt], queue)
		return true
	})
	return out
}

// claim удаляет членство очереди, если её bucket уже наступил.
// Если очередь успела переехать в более поздний bucket, она остаётся в индексе.
func (p *PendingIndex) claim(queue solana.PublicKey, confirmedTimestamp int64) bool {
	var claimed bool
	p.members.Compute(queue, func(execAt int64, loaded bool) (int64, bool) {
		if !loaded {
			return execAt, true
		}
		if execAt <= confirmedTimestamp {
			claimed = true
			return execAt, true
		}
		return execAt, false
	})
	return claimed
}

func (p *PendingIndex) addToBucket(execAt int64, queue solana.PublicKey) {
	p.buckets.Compute(execAt, func(old queueSet, loaded bool) (queueSet, bool) {
		if loaded {
			if _, ok := old[queue]; ok {
				return old, false
			}
		}
		next := make(queueSet, len(old)+1)
		for q := range old {
			next[q] = struct{}{}
		}
		next[queue] = struct{}{}
		return next, false
	})
}

func (p *PendingIndex) removeFromBucket(execAt int64, queue solana.PublicKey) {
	p.buckets.Compute(execAt, func(old queueSet, loaded bool) (queueSet, bool) {
		if !loaded {
			return old, true
		}
		if _, ok := old[queue]; !ok {
			return old, false
		}
		if len(old) == 1 {
			return nil, true
		}
		next := make(queueSet, len(old)-1)
		for q := range old {
			if q != queue {
				next[q] = struct{}{}
			}
		}
		return next, false
	})
}
