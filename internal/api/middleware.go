package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/shaiso/Cronos/internal/telemetry"
)

// middleware — обёртка для http.Handler.
type middleware func(http.Handler) http.Handler

// chain применяет middleware слева направо: chain(m1, m2)(h) = m1(m2(h)).
func chain(mws ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// requestLog кладёт в контекст логгер запроса с маршрутом, очередью
// (из пути или ?queue=) и последним подтверждённым слотом. По завершении
// пишет одну запись и считает запрос в APIRequests.
func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := h.logger.With("method", r.Method, "route", r.Pattern)
		if queue := requestQueue(r); queue != "" {
			logger = telemetry.WithQueue(logger, queue)
		}
		if h.state != nil {
			if slot, ok := h.state.Clock().Confirmed(); ok {
				logger = telemetry.WithSlot(logger, slot)
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(telemetry.WithLogger(r.Context(), logger)))

		telemetry.APIRequests.WithLabelValues(r.Pattern, strconv.Itoa(rec.status)).Inc()
		logger.Info("http request",
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// recoverPanic отвечает 500 вместо обрыва соединения.
func (h *Handler) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				telemetry.FromContext(r.Context()).Error("panic recovered",
					"error", v,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func requestQueue(r *http.Request) string {
	if addr := r.PathValue("address"); addr != "" {
		return addr
	}
	return r.URL.Query().Get("queue")
}

// statusRecorder запоминает код ответа.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
