package cli

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Hookflow/internal/config"
	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/mq"
	"github.com/shaiso/Hookflow/internal/repo"
)

// JobReader — чтение job'ов для команд jobs.
type JobReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
}

// Enqueuer — публикация заданий для команды enqueue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobName string, data any) error
}

// Backend — внешние зависимости команд.
//
// Каждая команда открывает только то, что ей нужно.
type Backend interface {
	Jobs(ctx context.Context) (JobReader, error)
	Queue(ctx context.Context) (Enqueuer, error)
	MigrateUp() (uint, error)
	MigrateDown(steps int) (uint, error)
	Close() error
}

// ConfigBackend — Backend, открывающий Postgres и очередь по конфигурации.
type ConfigBackend struct {
	cfg    *config.Config
	logger *slog.Logger

	mu    sync.Mutex
	pool  *pgxpool.Pool
	queue mq.Queue
}

// NewConfigBackend создаёт Backend. Соединения открываются при первом обращении.
func NewConfigBackend(cfg *config.Config, logger *slog.Logger) *ConfigBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigBackend{cfg: cfg, logger: logger}
}

// Jobs открывает пул Postgres.
func (b *ConfigBackend) Jobs(ctx context.Context) (JobReader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool == nil {
		pool, err := repo.NewPool(ctx, b.cfg.DB)
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}
	return repo.NewJobRepo(b.pool), nil
}

// Queue подключается к очереди. Producer не потребляет, поэтому hooks пустые.
func (b *ConfigBackend) Queue(ctx context.Context) (Enqueuer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue == nil {
		queue, err := mq.Open(ctx, b.cfg.Queue, 1, mq.Hooks{}, b.logger)
		if err != nil {
			return nil, err
		}
		b.queue = queue
	}
	return b.queue, nil
}

// MigrateUp применяет миграции.
func (b *ConfigBackend) MigrateUp() (uint, error) {
	return repo.MigrateUp(b.cfg.DB.URL)
}

// MigrateDown откатывает миграции.
func (b *ConfigBackend) MigrateDown(steps int) (uint, error) {
	return repo.MigrateDown(b.cfg.DB.URL, steps)
}

// Close закрывает открытые соединения.
func (b *ConfigBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.queue != nil {
		errs = append(errs, b.queue.Close())
		b.queue = nil
	}
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	return errors.Join(errs...)
}
