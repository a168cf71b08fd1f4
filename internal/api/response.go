package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/Cronos/internal/repo"
	"github.com/shaiso/Cronos/internal/telemetry"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

type listResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: v})
}

func writeList(w http.ResponseWriter, v any, total int) {
	writeJSON(w, http.StatusOK, listResponse{Data: v, Total: total})
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func historyUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeStoreError переводит ошибку истории попыток в ответ.
// Возвращает false, если err == nil.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, notFoundMsg)
	case errors.Is(err, repo.ErrUnavailable):
		telemetry.FromContext(r.Context()).Warn("execution history unavailable", "error", err)
		historyUnavailable(w, "execution history is temporarily unavailable")
	default:
		telemetry.FromContext(r.Context()).Error("execution history read failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
	return true
}
