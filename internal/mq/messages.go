package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeSlotConfirmed     MessageType = "slot.confirmed"
	MessageTypeClockUpdated      MessageType = "clock.updated"
	MessageTypeQueueUpdated      MessageType = "queue.updated"
	MessageTypeExecutionReported MessageType = "execution.reported"
)

// Message — конверт сообщения.
//
// При публикации Payload — любая JSON-сериализуемая структура,
// при получении — сырой JSON (см. DecodePayload).
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// SlotConfirmedPayload — payload slot.confirmed.
type SlotConfirmedPayload struct {
	Slot uint64 `json:"slot"`
}

// ClockUpdatedPayload — payload clock.updated.
type ClockUpdatedPayload struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// QueueUpdatedPayload — payload queue.updated.
// Data — данные аккаунта очереди как есть (base64 в JSON).
type QueueUpdatedPayload struct {
	Queue string `json:"queue"`
	Data  []byte `json:"data"`
}

// ExecutionReportedPayload — payload execution.reported.
type ExecutionReportedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Queue       string    `json:"queue"`
	Slot        uint64    `json:"slot"`
	Status      string    `json:"status"` // SUBMITTED, SKIPPED, PAUSED, FAILED
	Signature   string    `json:"signature,omitempty"`
	FirstTask   uint64    `json:"first_task"`
	TaskCount   int       `json:"task_count"`
	Error       string    `json:"error,omitempty"`
}

// DecodePayload разбирает payload сообщения в указанный тип.
func DecodePayload[T any](msg *Message) (T, error) {
	var result T
	if len(msg.Payload) == 0 {
		return result, fmt.Errorf("%w: %s without payload", ErrMalformed, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("%w: %s payload: %v", ErrMalformed, msg.Type, err)
	}
	return result, nil
}
