package api

import (
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListExecutions возвращает историю попыток с фильтрацией.
// GET /api/v1/executions?queue=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.executions == nil {
		historyUnavailable(w, "execution history is not configured")
		return
	}

	query := r.URL.Query()
	filter := repo.ExecutionFilter{
		Limit: defaultListLimit,
	}

	if queue := query.Get("queue"); queue != "" {
		if _, err := solana.PublicKeyFromBase58(queue); err != nil {
			badRequest(w, "invalid queue address")
			return
		}
		filter.Queue = queue
	}

	if status := query.Get("status"); status != "" {
		s := domain.ExecutionStatus(status)
		if !s.IsValid() {
			badRequest(w, "invalid status")
			return
		}
		filter.Status = s
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	execs, err := h.executions.List(r.Context(), filter)
	if writeStoreError(w, r, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = ExecutionFromDomain(e)
	}

	writeList(w, result, len(result))
}

// GetExecution возвращает запись истории по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	if h.executions == nil {
		historyUnavailable(w, "execution history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, "invalid execution id")
		return
	}

	e, err := h.executions.GetByID(r.Context(), id)
	if writeStoreError(w, r, err, "execution not found") {
		return
	}

	writeData(w, ExecutionFromDomain(*e))
}
