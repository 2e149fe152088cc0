// Package api содержит HTTP API для чтения job'ов.
//
// Структура:
//   - handler.go     — Handler с DI (хранилище job'ов, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (request id, logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - job_handler.go — обработчики для /jobs
//
// API только читает: job'ы создаёт и завершает worker.
// Аутентификация — забота внешнего шлюза.
package api
