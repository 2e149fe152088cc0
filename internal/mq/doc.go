// Package mq реализует очередь заданий Hookflow.
//
// Queue — общий контракт (queue.go): Enqueue, Subscribe, Close.
// Обработчик, вернувший ошибку, получает повторную доставку с
// экспоненциальной задержкой (RetryPolicy); после исчерпания попыток
// или при ErrPermanent сообщение уходит в DLQ.
//
// Реализации:
//   - RabbitQueue (rabbit.go) — connection.go, topology.go, publisher.go, consumer.go
//   - RedisQueue (redis.go) — списки pending/processing/dead и ZSET delayed
//
// RabbitMQ топология задания workflow.run:
//   - hookflow.workflows  — рабочий exchange, очередь workflow.run
//   - workflow.run.retry  — ожидание повтора (per-message TTL → hookflow.workflows)
//   - hookflow.dlq        — DLQ exchange, очередь dlq.workflow.run
//
// Номер доставки передаётся в заголовке x-attempt (RabbitMQ)
// или в конверте сообщения (Redis).
package mq
