// Package telemetry обеспечивает наблюдаемость worker'а.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Логи пишутся в едином формате (LOG_FORMAT, LOG_LEVEL),
// метрики экспортируются на /metrics endpoint.
package telemetry
