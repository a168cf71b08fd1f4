package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// requestLog снаружи: в лог попадает и 500 после паники
	wrap := chain(h.requestLog, h.recoverPanic)

	// State
	mux.Handle("GET /api/v1/state", wrap(http.HandlerFunc(h.GetState)))
	mux.Handle("GET /api/v1/queues/{address}", wrap(http.HandlerFunc(h.GetQueue)))

	// Executions
	mux.Handle("GET /api/v1/executions", wrap(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", wrap(http.HandlerFunc(h.GetExecution)))
}
