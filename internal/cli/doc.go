// Package cli реализует инструмент командной строки cronos.
//
// # Обзор
//
// CLI — клиентская утилита для просмотра состояния cronos-worker.
// Работает через HTTP API worker'а и не импортирует внутренние пакеты.
// Изменять состояние планировщика CLI не может: оно строится только
// из событий леджера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API worker'а. Разбирает обёртки ответов
// (data, data+total, error).
//
//	client := cli.NewClient("http://localhost:8082")
//	state, err := client.GetState(ctx)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, ошибки — в stderr:
// cronos execution list --json | jq .
//
// ## Commands
//
//   - state: индексы worker'а
//   - queue ADDRESS: положение одной очереди
//   - execution: list, show
package cli
