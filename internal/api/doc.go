// Package api содержит HTTP API воркера (только чтение).
//
// Структура:
//   - handler.go           — Handler с DI (история, индексы, позиция в пуле)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — лог запроса с queue/slot, метрика, recovery
//   - response.go          — JSON-конверты и перевод ошибок истории в HTTP
//   - dto.go               — Data Transfer Objects
//   - state_handler.go     — /state и /queues/{address}
//   - execution_handler.go — /executions
//
// Состояние планировщика в API только отображается: изменить его можно
// лишь событиями леджера.
package api
