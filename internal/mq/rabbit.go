package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// RabbitQueue — Queue поверх RabbitMQ.
type RabbitQueue struct {
	conn        *Connection
	publisher   *Publisher
	logger      *slog.Logger
	policy      RetryPolicy
	hooks       Hooks
	concurrency int

	mu       sync.Mutex
	declared map[string]bool
}

// RabbitConfig — конфигурация RabbitQueue.
type RabbitConfig struct {
	URL         string
	Policy      RetryPolicy
	Hooks       Hooks
	Concurrency int
	Logger      *slog.Logger
}

// NewRabbitQueue подключается к RabbitMQ.
func NewRabbitQueue(cfg RabbitConfig) (*RabbitQueue, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	url := cfg.URL
	if url == "" {
		url = DefaultURL()
	}

	conn, err := NewConnection(url, logger)
	if err != nil {
		return nil, err
	}

	return &RabbitQueue{
		conn:        conn,
		publisher:   NewPublisher(conn, logger),
		logger:      logger,
		policy:      cfg.Policy,
		hooks:       cfg.Hooks,
		concurrency: cfg.Concurrency,
		declared:    make(map[string]bool),
	}, nil
}

// ensureTopology объявляет топологию задания один раз за жизнь очереди.
func (q *RabbitQueue) ensureTopology(ctx context.Context, jobName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.declared[jobName] {
		return nil
	}
	if err := SetupTopology(ctx, q.conn, jobName); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}
	q.declared[jobName] = true
	q.logger.Debug("topology declared", "topology", TopologyInfo(jobName))
	return nil
}

// Enqueue публикует задание.
func (q *RabbitQueue) Enqueue(ctx context.Context, jobName string, data any) error {
	if err := q.ensureTopology(ctx, jobName); err != nil {
		return err
	}

	msg, err := NewMessage(jobName, data)
	if err != nil {
		return err
	}

	return q.publisher.Publish(ctx, ExchangeWork, jobName, msg)
}

// Subscribe потребляет задания до отмены ctx.
func (q *RabbitQueue) Subscribe(ctx context.Context, jobName string, handler Handler) error {
	if err := q.ensureTopology(ctx, jobName); err != nil {
		return err
	}

	consumer := NewConsumer(q.conn, q.publisher, q.logger, ConsumerConfig{
		JobName:     jobName,
		Handler:     handler,
		Policy:      q.policy,
		Hooks:       q.hooks,
		Concurrency: q.concurrency,
	})
	defer consumer.Stop()

	return consumer.Start(ctx)
}

// Close закрывает соединение.
func (q *RabbitQueue) Close() error {
	return q.conn.Close()
}
