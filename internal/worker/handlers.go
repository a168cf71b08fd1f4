package worker

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/mq"
)

// HandleMessage передаёт уведомление леджера Observer'у.
//
// Неразбираемые сообщения возвращают mq.ErrMalformed (уходят в DLQ),
// остановленный Observer — ошибку, при которой сообщение вернётся в очередь.
func (w *Worker) HandleMessage(_ context.Context, msg *mq.Message) error {
	switch msg.Type {
	case mq.MessageTypeSlotConfirmed:
		payload, err := mq.DecodePayload[mq.SlotConfirmedPayload](msg)
		if err != nil {
			return err
		}
		return w.observer.HandleSlotConfirmed(payload.Slot)

	case mq.MessageTypeClockUpdated:
		payload, err := mq.DecodePayload[mq.ClockUpdatedPayload](msg)
		if err != nil {
			return err
		}
		return w.observer.HandleClockUpdated(domain.Clock{
			Slot:          payload.Slot,
			UnixTimestamp: payload.UnixTimestamp,
		})

	case mq.MessageTypeQueueUpdated:
		key, queue, err := decodeQueueUpdated(msg)
		if err != nil {
			return err
		}
		return w.observer.HandleQueueUpdated(key, queue)

	default:
		return fmt.Errorf("%w: %s", mq.ErrUnknownType, msg.Type)
	}
}

func decodeQueueUpdated(msg *mq.Message) (solana.PublicKey, *domain.Queue, error) {
	payload, err := mq.DecodePayload[mq.QueueUpdatedPayload](msg)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	key, err := solana.PublicKeyFromBase58(payload.Queue)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: queue address %q: %v", mq.ErrMalformed, payload.Queue, err)
	}

	queue, err := domain.DecodeQueue(payload.Data)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: queue %s: %v", mq.ErrMalformed, key, err)
	}
	return key, queue, nil
}
