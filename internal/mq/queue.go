package mq

import (
	"context"
	"errors"
	"time"
)

// Queue — очередь заданий.
//
// Обработчик, вернувший nil, подтверждает сообщение. Ошибка запускает
// политику повторов: сообщение доставляется снова с задержкой, а после
// исчерпания попыток уходит в DLQ.
type Queue interface {
	// Enqueue публикует data как задание jobName.
	Enqueue(ctx context.Context, jobName string, data any) error

	// Subscribe обрабатывает задания jobName до отмены ctx.
	Subscribe(ctx context.Context, jobName string, handler Handler) error

	// Close освобождает соединение.
	Close() error
}

// Handler — функция обработки сообщения.
// Возвращает error, если обработка не удалась.
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенное сообщение.
	Message Message

	// Attempt — номер доставки, начиная с 1.
	Attempt int
}

// ErrPermanent — обработчик сообщает, что повтор не поможет
// (например, payload не разбирается). Сообщение сразу уходит в DLQ.
var ErrPermanent = errors.New("permanent failure")

// ErrClosed — очередь закрыта.
var ErrClosed = errors.New("queue closed")

// Значения по умолчанию для RetryPolicy.
const (
	defaultBackoffInitial = time.Second
	defaultBackoffMax     = 30 * time.Second
)

// RetryPolicy — политика повторной доставки.
type RetryPolicy struct {
	// MaxAttempts — максимум доставок; 0 — без ограничения.
	MaxAttempts int

	// BackoffInitial — задержка перед второй доставкой (default: 1s).
	BackoffInitial time.Duration

	// BackoffMax — верхняя граница задержки (default: 30s).
	BackoffMax time.Duration
}

// Exhausted возвращает true, если после неудачной доставки attempt
// повторов больше не будет.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Backoff вычисляет задержку перед следующей доставкой после
// неудачной доставки attempt: initial * 2^(attempt-1), не больше max.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	initial := p.BackoffInitial
	if initial <= 0 {
		initial = defaultBackoffInitial
	}
	maxDelay := p.BackoffMax
	if maxDelay <= 0 {
		maxDelay = defaultBackoffMax
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}

	return min(delay, maxDelay)
}

// Hooks — необязательные уведомления о повторах и DLQ.
type Hooks struct {
	// OnRetry вызывается, когда сообщение запланировано к повторной доставке.
	OnRetry func(jobName string, attempt int, delay time.Duration)

	// OnDeadLetter вызывается, когда сообщение уходит в DLQ.
	OnDeadLetter func(jobName string, attempt int)
}

func (h Hooks) retry(jobName string, attempt int, delay time.Duration) {
	if h.OnRetry != nil {
		h.OnRetry(jobName, attempt, delay)
	}
}

func (h Hooks) deadLetter(jobName string, attempt int) {
	if h.OnDeadLetter != nil {
		h.OnDeadLetter(jobName, attempt)
	}
}

// shouldDeadLetter решает судьбу сообщения после ошибки обработчика.
func shouldDeadLetter(policy RetryPolicy, attempt int, err error) bool {
	return errors.Is(err, ErrPermanent) || policy.Exhausted(attempt)
}
