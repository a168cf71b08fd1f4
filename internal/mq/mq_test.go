package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked++
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func TestDefaultTopology_Valid(t *testing.T) {
	topo := DefaultTopology()
	require.NoError(t, topo.Validate())
	assert.Contains(t, topo.String(), "ledger.events [routing: events]")
}

func TestTopology_ValidateRejectsDanglingBinding(t *testing.T) {
	topo := DefaultTopology()
	topo.Bindings = append(topo.Bindings, BindingSpec{Queue: "missing", RoutingKey: "x", Exchange: ExchangeLedger})
	assert.Error(t, topo.Validate())

	topo = DefaultTopology()
	topo.Exchanges = topo.Exchanges[:2] // без cronos.dlq
	assert.Error(t, topo.Validate())
}

func TestNewMessage_RoundTrip(t *testing.T) {
	msg, err := NewMessage(MessageTypeQueueUpdated, QueueUpdatedPayload{Queue: "Q1", Data: []byte{0, 1, 2, 255}})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	decoded, err := decodeMessage(body)
	require.NoError(t, err)
	payload, err := DecodePayload[QueueUpdatedPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, payload.Data)
}

func TestDecodePayload_Malformed(t *testing.T) {
	_, err := DecodePayload[SlotConfirmedPayload](&Message{Type: MessageTypeSlotConfirmed})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodePayload[SlotConfirmedPayload](&Message{Type: MessageTypeSlotConfirmed, Payload: json.RawMessage(`{"slot":"x"}`)})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestConsumer_AckNackPolicy(t *testing.T) {
	valid := []byte(`{"id":"1","type":"slot.confirmed","payload":{"slot":5}}`)

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"handled", valid, nil, true, false},
		{"transient failure", valid, errors.New("observer busy"), false, true},
		{"unknown type", valid, ErrUnknownType, false, false},
		{"malformed payload", valid, ErrMalformed, false, false},
		{"not json", []byte("{"), nil, false, false},
		{"no type", []byte(`{"id":"1"}`), nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Message
			c := NewConsumer(nil, nil, ConsumerConfig{
				Queue: QueueLedgerEvents,
				Handler: func(_ context.Context, msg *Message) error {
					got = msg
					return tt.handlerErr
				},
			})

			ack := &fakeAck{}
			c.handle(context.Background(), tt.body, ack)

			if tt.wantAck {
				assert.Equal(t, 1, ack.acked)
				assert.Zero(t, ack.nacked)
				require.NotNil(t, got)
				assert.Equal(t, MessageTypeSlotConfirmed, got.Type)
				return
			}
			assert.Zero(t, ack.acked)
			assert.Equal(t, 1, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

func TestNextDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextDelay(time.Second))
	assert.Equal(t, maxReconnectDelay, nextDelay(20*time.Second))
	assert.Equal(t, maxReconnectDelay, nextDelay(maxReconnectDelay))
}
