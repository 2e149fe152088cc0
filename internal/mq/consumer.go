package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer потребляет сообщения из очереди RabbitMQ.
//
// Сообщения подтверждаются вручную. При ошибке обработчика копия
// сообщения с увеличенным x-attempt публикуется в retry-очередь,
// оригинал подтверждается. Исчерпавшие попытки и некорректные
// сообщения отклоняются без requeue и попадают в DLQ.
type Consumer struct {
	conn      *Connection
	publisher *Publisher
	logger    *slog.Logger
	topology  Topology
	handler   Handler
	policy    RetryPolicy
	hooks     Hooks

	prefetch    int
	concurrency int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// JobName — имя задания (определяет очереди).
	JobName string

	// Handler — обработчик сообщений.
	Handler Handler

	// Policy — политика повторов.
	Policy RetryPolicy

	// Hooks — уведомления о повторах и DLQ.
	Hooks Hooks

	// Concurrency — количество одновременно обрабатываемых сообщений.
	// Задаёт и prefetch канала.
	Concurrency int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, publisher *Publisher, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Consumer{
		conn:        conn,
		publisher:   publisher,
		logger:      logger,
		topology:    TopologyFor(cfg.JobName),
		handler:     cfg.Handler,
		policy:      cfg.Policy,
		hooks:       cfg.Hooks,
		prefetch:    concurrency,
		concurrency: concurrency,
	}
}

// Start запускает потребление сообщений. Блокируется до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	// Запускаем основной цикл потребления
	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Получаем канал доставки
		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.topology.Queue, "error", err)
			// Ждём переподключения
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.topology.Queue)
				continue
			}
		}

		c.logger.Info("consumer started",
			"queue", c.topology.Queue,
			"concurrency", c.concurrency,
		)

		// Обрабатываем сообщения
		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.topology.Queue)
			// Канал закрыт, ждём переподключения
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	// Устанавливаем prefetch
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// Начинаем потребление
	deliveries, err := ch.Consume(
		c.topology.Queue, // queue
		"",               // consumer tag (auto-generated)
		false,            // auto-ack (мы ack вручную)
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries раздаёт сообщения concurrency обработчикам.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	var wg sync.WaitGroup
	errs := make(chan error, c.concurrency)

	for range c.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.deliveryLoop(ctx, deliveries)
		}()
	}

	wg.Wait()
	close(errs)
	return <-errs
}

func (c *Consumer) deliveryLoop(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	attempt := attemptFromHeaders(raw.Headers)

	// Парсим сообщение
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", c.topology.Queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Некорректное сообщение — отправляем в DLQ
		c.hooks.deadLetter(c.topology.JobName, attempt)
		_ = raw.Nack(false, false)
		return
	}

	delivery := &Delivery{Message: msg, Attempt: attempt}

	c.logger.Debug("received message",
		"queue", c.topology.Queue,
		"message_id", msg.ID,
		"attempt", attempt,
	)

	// Вызываем обработчик
	err := c.handler(ctx, delivery)
	if err == nil {
		_ = raw.Ack(false)
		return
	}

	c.logger.Error("handler failed",
		"queue", c.topology.Queue,
		"message_id", msg.ID,
		"attempt", attempt,
		"error", err,
	)

	if shouldDeadLetter(c.policy, attempt, err) {
		c.logger.Warn("message dead-lettered",
			"queue", c.topology.Queue,
			"message_id", msg.ID,
			"attempt", attempt,
		)
		c.hooks.deadLetter(c.topology.JobName, attempt)
		_ = raw.Nack(false, false)
		return
	}

	c.scheduleRetry(ctx, raw, &msg, attempt)
}

// scheduleRetry публикует копию сообщения в retry-очередь с задержкой.
func (c *Consumer) scheduleRetry(ctx context.Context, raw amqp.Delivery, msg *Message, attempt int) {
	delay := c.policy.Backoff(attempt)

	err := c.publisher.publish(ctx, publishing{
		exchange:   exchangeDefault,
		routingKey: c.topology.RetryQueue,
		attempt:    attempt + 1,
		expiration: delay,
	}, msg)
	if err != nil {
		// Не удалось отложить — возвращаем в очередь как есть
		c.logger.Warn("failed to schedule retry, requeueing",
			"queue", c.topology.Queue,
			"message_id", msg.ID,
			"error", err,
		)
		_ = raw.Nack(false, true)
		return
	}

	c.hooks.retry(c.topology.JobName, attempt, delay)
	_ = raw.Ack(false)
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// attemptFromHeaders читает x-attempt; отсутствует — первая доставка.
func attemptFromHeaders(headers amqp.Table) int {
	var attempt int
	switch v := headers[headerAttempt].(type) {
	case int32:
		attempt = int(v)
	case int64:
		attempt = int(v)
	case int:
		attempt = v
	case int16:
		attempt = int(v)
	case int8:
		attempt = int(v)
	}
	if attempt < 1 {
		return 1
	}
	return attempt
}
