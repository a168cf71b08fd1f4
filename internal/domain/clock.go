package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Clock — срез системного аккаунта часов: слот и wall-clock время на нём.
type Clock struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// Pool — ротируемый пул делегатов.
type Pool struct {
	Delegates []solana.PublicKey `json:"delegates"`
}

// PositionOf возвращает позицию worker'а в пуле (nil, если его там нет).
func (p *Pool) PositionOf(worker solana.PublicKey) *uint64 {
	for i, d := range p.Delegates {
		if d.Equals(worker) {
			pos := uint64(i)
			return &pos
		}
	}
	return nil
}

// PoolPosition — текущая позиция узла в пуле делегатов.
//
// CurrentPosition == nil означает, что узел не держит слот делегата.
type PoolPosition struct {
	CurrentPosition *uint64            `json:"current_position,omitempty"`
	Workers         []solana.PublicKey `json:"workers,omitempty"`
}

// IsDelegate возвращает true, если узел сейчас назначен делегатом.
func (p PoolPosition) IsDelegate() bool {
	return p.CurrentPosition != nil
}
