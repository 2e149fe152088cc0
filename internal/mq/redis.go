package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisNamespace    = "hookflow"
	defaultRedisPollInterval = 500 * time.Millisecond
	defaultVisibilityTimeout = 30 * time.Second
	defaultPromoteBatch      = 100
)

// takeScript атомарно снимает сообщение с хвоста pending и выдаёт
// на него аренду в processing до ARGV[1] (ms).
var takeScript = redis.NewScript(`
local m = redis.call('RPOP', KEYS[1])
if not m then
	return false
end
redis.call('ZADD', KEYS[2], ARGV[1], m)
return m
`)

// moveDueScript атомарно переносит из ZSET KEYS[1] в список KEYS[2]
// до ARGV[2] элементов со score <= ARGV[1].
var moveDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// RedisQueue — Queue поверх списков Redis.
//
// Ключи задания jobName в пространстве ns:
//   - ns:jobName:pending    — список готовых сообщений (LPUSH / RPOP)
//   - ns:jobName:processing — ZSET сообщений в обработке, score = конец аренды (ms)
//   - ns:jobName:delayed    — ZSET отложенных повторов, score = время доставки (ms)
//   - ns:jobName:dead       — DLQ
//
// Пока обработчик работает, аренда продлевается. Сообщение с истёкшей
// арендой (процесс упал) возвращается в pending с тем же номером попытки.
type RedisQueue struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
	policy    RetryPolicy
	hooks     Hooks

	concurrency       int
	pollInterval      time.Duration
	visibilityTimeout time.Duration
}

// RedisConfig — конфигурация RedisQueue.
type RedisConfig struct {
	// Client — клиент Redis (обязательно).
	Client *redis.Client

	// Namespace — префикс ключей (default: hookflow).
	Namespace string

	Policy      RetryPolicy
	Hooks       Hooks
	Concurrency int

	// PollInterval — пауза при пустой очереди (default: 500ms).
	PollInterval time.Duration

	// VisibilityTimeout — срок аренды сообщения в processing (default: 30s).
	VisibilityTimeout time.Duration

	Logger *slog.Logger
}

// redisEnvelope — сообщение вместе со счётчиком доставок.
type redisEnvelope struct {
	Message Message `json:"message"`
	Attempt int     `json:"attempt"`
}

// NewRedisClient создаёт клиента по URL вида redis://host:port/db.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisQueue создаёт RedisQueue.
func NewRedisQueue(cfg RedisConfig) *RedisQueue {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultRedisNamespace
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultRedisPollInterval
	}

	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = defaultVisibilityTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisQueue{
		client:            cfg.Client,
		namespace:         namespace,
		logger:            logger,
		policy:            cfg.Policy,
		hooks:             cfg.Hooks,
		concurrency:       concurrency,
		pollInterval:      pollInterval,
		visibilityTimeout: visibility,
	}
}

// redisKeys — ключи одного задания.
type redisKeys struct {
	pending    string
	processing string
	delayed    string
	dead       string
}

func (q *RedisQueue) keys(jobName string) redisKeys {
	prefix := q.namespace + ":" + jobName + ":"
	return redisKeys{
		pending:    prefix + "pending",
		processing: prefix + "processing",
		delayed:    prefix + "delayed",
		dead:       prefix + "dead",
	}
}

// Enqueue помещает задание в pending.
func (q *RedisQueue) Enqueue(ctx context.Context, jobName string, data any) error {
	msg, err := NewMessage(jobName, data)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(redisEnvelope{Message: *msg, Attempt: 1})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := q.client.LPush(ctx, q.keys(jobName).pending, raw).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", jobName, err)
	}

	q.logger.Debug("enqueued message", "job", jobName, "message_id", msg.ID)
	return nil
}

// Subscribe обрабатывает задания до отмены ctx.
// Ждёт завершения сообщений, взятых в обработку.
func (q *RedisQueue) Subscribe(ctx context.Context, jobName string, handler Handler) error {
	keys := q.keys(jobName)

	// Сообщения, брошенные упавшим процессом
	if err := q.requeueExpired(ctx, keys); err != nil && ctx.Err() == nil {
		q.logger.Warn("failed to requeue expired messages", "queue", keys.processing, "error", err)
	}

	q.logger.Info("redis consumer started",
		"queue", keys.pending,
		"concurrency", q.concurrency,
	)

	var wg sync.WaitGroup
	for range q.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.loop(ctx, jobName, keys, handler)
		}()
	}
	wg.Wait()

	return ctx.Err()
}

// loop — цикл одного слота обработки.
func (q *RedisQueue) loop(ctx context.Context, jobName string, keys redisKeys, handler Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := q.promoteDue(ctx, keys); err != nil && ctx.Err() == nil {
			q.logger.Warn("failed to promote delayed messages", "queue", keys.delayed, "error", err)
		}
		if err := q.requeueExpired(ctx, keys); err != nil && ctx.Err() == nil {
			q.logger.Warn("failed to requeue expired messages", "queue", keys.processing, "error", err)
		}

		raw, err := q.take(ctx, keys)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				q.logger.Error("failed to take message", "queue", keys.pending, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.pollInterval):
			}
			continue
		}

		q.handle(ctx, jobName, keys, raw, handler)
	}
}

// take берёт сообщение из pending под аренду.
// Пустая очередь — redis.Nil.
func (q *RedisQueue) take(ctx context.Context, keys redisKeys) (string, error) {
	return takeScript.Run(ctx, q.client,
		[]string{keys.pending, keys.processing},
		q.leaseDeadline(),
	).Text()
}

func (q *RedisQueue) leaseDeadline() int64 {
	return time.Now().Add(q.visibilityTimeout).UnixMilli()
}

// promoteDue переносит наступившие отложенные сообщения в pending.
func (q *RedisQueue) promoteDue(ctx context.Context, keys redisKeys) error {
	_, err := q.moveDue(ctx, keys.delayed, keys.pending)
	return err
}

// requeueExpired возвращает в pending сообщения с истёкшей арендой.
func (q *RedisQueue) requeueExpired(ctx context.Context, keys redisKeys) error {
	n, err := q.moveDue(ctx, keys.processing, keys.pending)
	if err != nil {
		return err
	}
	if n > 0 {
		q.logger.Warn("requeued messages with expired lease", "queue", keys.pending, "count", n)
	}
	return nil
}

func (q *RedisQueue) moveDue(ctx context.Context, from, to string) (int64, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return moveDueScript.Run(ctx, q.client, []string{from, to}, now, defaultPromoteBatch).Int64()
}

// keepLease продлевает аренду raw, пока не закрыт done.
func (q *RedisQueue) keepLease(ctx context.Context, keys redisKeys, raw string, done <-chan struct{}) {
	ticker := time.NewTicker(q.visibilityTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// XX: не воскрешать сообщение, уже снятое с processing
			err := q.client.ZAddXX(ctx, keys.processing, redis.Z{
				Score:  float64(q.leaseDeadline()),
				Member: raw,
			}).Err()
			if err != nil {
				q.logger.Warn("failed to extend lease", "queue", keys.processing, "error", err)
			}
		}
	}
}

// handle обрабатывает одно сообщение из processing.
func (q *RedisQueue) handle(ctx context.Context, jobName string, keys redisKeys, raw string, handler Handler) {
	// Учёт после обработчика не должен прерываться отменой ctx
	bookCtx := context.WithoutCancel(ctx)

	var env redisEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		q.logger.Error("failed to unmarshal message",
			"queue", keys.pending,
			"error", err,
			"body", raw,
		)
		q.hooks.deadLetter(jobName, 1)
		q.moveToDead(bookCtx, keys, raw)
		return
	}
	if env.Attempt < 1 {
		env.Attempt = 1
	}

	delivery := &Delivery{Message: env.Message, Attempt: env.Attempt}

	q.logger.Debug("received message",
		"queue", keys.pending,
		"message_id", env.Message.ID,
		"attempt", env.Attempt,
	)

	done := make(chan struct{})
	go q.keepLease(bookCtx, keys, raw, done)
	err := handler(ctx, delivery)
	close(done)

	if err == nil {
		q.ack(bookCtx, keys, raw)
		return
	}

	q.logger.Error("handler failed",
		"queue", keys.pending,
		"message_id", env.Message.ID,
		"attempt", env.Attempt,
		"error", err,
	)

	if shouldDeadLetter(q.policy, env.Attempt, err) {
		q.logger.Warn("message dead-lettered",
			"queue", keys.pending,
			"message_id", env.Message.ID,
			"attempt", env.Attempt,
		)
		q.hooks.deadLetter(jobName, env.Attempt)
		q.moveToDead(bookCtx, keys, raw)
		return
	}

	q.scheduleRetry(bookCtx, jobName, keys, raw, env)
}

// ack удаляет сообщение из processing.
func (q *RedisQueue) ack(ctx context.Context, keys redisKeys, raw string) {
	if err := q.client.ZRem(ctx, keys.processing, raw).Err(); err != nil {
		q.logger.Error("failed to ack message", "queue", keys.processing, "error", err)
	}
}

// moveToDead переносит сообщение из processing в DLQ.
func (q *RedisQueue) moveToDead(ctx context.Context, keys redisKeys, raw string) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, keys.processing, raw)
		pipe.LPush(ctx, keys.dead, raw)
		return nil
	})
	if err != nil {
		q.logger.Error("failed to dead-letter message", "queue", keys.dead, "error", err)
	}
}

// scheduleRetry откладывает следующую доставку.
func (q *RedisQueue) scheduleRetry(ctx context.Context, jobName string, keys redisKeys, raw string, env redisEnvelope) {
	delay := q.policy.Backoff(env.Attempt)

	next := env
	next.Attempt = env.Attempt + 1
	nextRaw, err := json.Marshal(next)
	if err != nil {
		q.logger.Error("failed to marshal retry envelope", "error", err)
		q.moveToDead(ctx, keys, raw)
		return
	}

	due := float64(time.Now().Add(delay).UnixMilli())
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, keys.processing, raw)
		pipe.ZAdd(ctx, keys.delayed, redis.Z{Score: due, Member: string(nextRaw)})
		return nil
	})
	if err != nil {
		// Сообщение остаётся в processing до истечения аренды
		q.logger.Error("failed to schedule retry", "queue", keys.delayed, "error", err)
		return
	}

	q.hooks.retry(jobName, env.Attempt, delay)
}

// Close закрывает клиента.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
