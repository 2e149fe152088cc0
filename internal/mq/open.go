package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Hookflow/internal/config"
)

// Open создаёт Queue для бэкенда из конфигурации.
func Open(ctx context.Context, cfg config.QueueConfig, concurrency int, hooks Hooks, logger *slog.Logger) (Queue, error) {
	policy := RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	}

	switch cfg.Backend {
	case config.QueueBackendRabbitMQ:
		return NewRabbitQueue(RabbitConfig{
			URL:         cfg.RabbitMQURL,
			Policy:      policy,
			Hooks:       hooks,
			Concurrency: concurrency,
			Logger:      logger,
		})

	case config.QueueBackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisQueue(RedisConfig{
			Client:            client,
			Namespace:         cfg.RedisNamespace,
			Policy:            policy,
			Hooks:             hooks,
			Concurrency:       concurrency,
			VisibilityTimeout: cfg.RedisVisibility,
			Logger:            logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
