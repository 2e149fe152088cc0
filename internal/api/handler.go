package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/repo"
)

// JobReader — чтение job'ов (реализуется repo.JobRepo).
type JobReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	jobs   JobReader
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Jobs   JobReader
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		jobs:   cfg.Jobs,
		logger: logger,
	}
}
