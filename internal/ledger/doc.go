// Package ledger — адаптер к RPC-узлу леджера.
//
// Client реализует всё, что worker'у нужно от леджера:
//   - чтение аккаунтов очереди, task, пула делегатов и sysvar Clock
//   - последний blockhash для подписи транзакций
//   - отправку подписанных транзакций (sink)
//
// Все вызовы проходят через общий rate.Limiter. Параллельные чтения часов
// схлопываются в один запрос (singleflight).
package ledger
