package api

import (
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/shaiso/Cronos/internal/domain"
)

// State DTOs

// PendingBucketResponse — очереди с одинаковым exec_at.
type PendingBucketResponse struct {
	ExecAt int64    `json:"exec_at"`
	Queues []string `json:"queues"`
}

// ClockSampleResponse — сэмпл часов леджера.
type ClockSampleResponse struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// PositionResponse — позиция узла в пуле.
type PositionResponse struct {
	IsDelegate      bool    `json:"is_delegate"`
	CurrentPosition *uint64 `json:"current_position,omitempty"`
	Workers         int     `json:"workers"`
}

// StateResponse — снимок индексов планировщика.
type StateResponse struct {
	ConfirmedSlot  *uint64                 `json:"confirmed_slot,omitempty"`
	ClockSamples   []ClockSampleResponse   `json:"clock_samples"`
	Pending        []PendingBucketResponse `json:"pending"`
	Actionable     []string                `json:"actionable"`
	Position       *PositionResponse       `json:"position,omitempty"`
	ResultsDropped uint64                  `json:"results_dropped"`
}

// QueueStateResponse — положение очереди в индексах.
type QueueStateResponse struct {
	Address    string `json:"address"`
	Pending    bool   `json:"pending"`
	Actionable bool   `json:"actionable"`
}

// PendingFromBuckets конвертирует корзины PendingIndex в отсортированный по exec_at список.
func PendingFromBuckets(buckets map[int64][]solana.PublicKey) []PendingBucketResponse {
	out := make([]PendingBucketResponse, 0, len(buckets))
	for execAt, queues := range buckets {
		out = append(out, PendingBucketResponse{ExecAt: execAt, Queues: addresses(queues)})
	}
	slices.SortFunc(out, func(a, b PendingBucketResponse) int {
		switch {
		case a.ExecAt < b.ExecAt:
			return -1
		case a.ExecAt > b.ExecAt:
			return 1
		}
		return 0
	})
	return out
}

// ClockFromSamples конвертирует сэмплы ClockIndex в отсортированный по слоту список.
func ClockFromSamples(samples map[uint64]int64) []ClockSampleResponse {
	out := make([]ClockSampleResponse, 0, len(samples))
	for slot, ts := range samples {
		out = append(out, ClockSampleResponse{Slot: slot, UnixTimestamp: ts})
	}
	slices.SortFunc(out, func(a, b ClockSampleResponse) int {
		switch {
		case a.Slot < b.Slot:
			return -1
		case a.Slot > b.Slot:
			return 1
		}
		return 0
	})
	return out
}

// PositionFromDomain конвертирует domain.PoolPosition в PositionResponse.
func PositionFromDomain(p domain.PoolPosition) PositionResponse {
	return PositionResponse{
		IsDelegate:      p.IsDelegate(),
		CurrentPosition: p.CurrentPosition,
		Workers:         len(p.Workers),
	}
}

func addresses(keys []solana.PublicKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	slices.Sort(out)
	return out
}

// Execution DTOs

// ExecutionResponse — ответ с записью истории.
type ExecutionResponse struct {
	ID        uuid.UUID `json:"id"`
	Queue     string    `json:"queue"`
	Slot      uint64    `json:"slot"`
	Status    string    `json:"status"`
	Signature string    `json:"signature,omitempty"`
	FirstTask uint64    `json:"first_task"`
	TaskCount int       `json:"task_count"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:        e.ID,
		Queue:     e.Queue,
		Slot:      e.Slot,
		Status:    string(e.Status),
		Signature: e.Signature,
		FirstTask: e.FirstTask,
		TaskCount: e.TaskCount,
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}
}
