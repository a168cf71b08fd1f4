package api

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// GetState возвращает снимок индексов планировщика.
// GET /api/v1/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		ClockSamples:   ClockFromSamples(h.state.Clock().Samples()),
		Pending:        PendingFromBuckets(h.state.Pending().Buckets()),
		Actionable:     addresses(h.state.Actionable().Snapshot()),
		ResultsDropped: h.state.Dropped(),
	}

	if slot, ok := h.state.Clock().Confirmed(); ok {
		resp.ConfirmedSlot = &slot
	}

	if h.positions != nil {
		pos := PositionFromDomain(h.positions.Get())
		resp.Position = &pos
	}

	writeData(w, resp)
}

// GetQueue возвращает положение очереди в индексах.
// GET /api/v1/queues/{address}
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	key, err := solana.PublicKeyFromBase58(r.PathValue("address"))
	if err != nil {
		badRequest(w, "invalid queue address")
		return
	}

	writeData(w, QueueStateResponse{
		Address:    key.String(),
		Pending:    h.state.Pending().Contains(key),
		Actionable: h.state.Actionable().Contains(key),
	})
}
