// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog (JSON или tint)
//   - metrics.go — Prometheus метрики воркера и очереди
//
// Все процессы используют единый формат логирования,
// воркер экспортирует метрики на /metrics endpoint.
package telemetry
