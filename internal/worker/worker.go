package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/mq"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

// JobStore — хранилище записей о выполнении.
//
// Worker пишет job ровно дважды за доставку: Create, затем Update.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
}

// Events — уведомления о завершении доставки.
// На каждую попытку доставки вызывается ровно одно из них.
// Если job не был создан (ошибка хранилища, некорректный payload),
// Failed получает несохранённый job с ID = 0.
type Events struct {
	Completed func(job *domain.Job)
	Failed    func(job *domain.Job, err error)
}

// Worker выполняет workflow из очереди.
//
// Worker — stateless компонент системы, который:
//   - Получает WorkflowRunRequest из очереди
//   - Создаёт job в статусе RUNNING
//   - Выполняет действия строго последовательно, в порядке массива
//   - Фиксирует результат каждого действия, ошибки действий не прерывают run
//   - Завершает job в SUCCESS, либо в FAILED с возвратом ошибки в очередь
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди.
type Worker struct {
	queue     mq.Queue
	jobs      JobStore
	executors *Executors

	// Пауза между действиями одного job
	actionDelay time.Duration

	metrics *telemetry.Metrics
	events  Events

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Queue — очередь заданий.
	Queue mq.Queue

	// Jobs — хранилище job'ов.
	Jobs JobStore

	// Executors — executor'ы действий (nil — ни один транспорт не настроен).
	Executors *Executors

	// ActionDelay — пауза между действиями; 0 — без паузы.
	ActionDelay time.Duration

	// Metrics — метрики (опционально).
	Metrics *telemetry.Metrics

	// Events — уведомления о завершении (опционально).
	Events Events

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executors := cfg.Executors
	if executors == nil {
		executors = &Executors{}
	}

	return &Worker{
		queue:       cfg.Queue,
		jobs:        cfg.Jobs,
		executors:   executors,
		actionDelay: max(cfg.ActionDelay, 0),
		metrics:     cfg.Metrics,
		events:      cfg.Events,
		logger:      logger,
	}
}

// Start подписывается на задания workflow.run.
// Не блокируется; потребление идёт до Stop или отмены ctx.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}
	if w.queue == nil {
		return fmt.Errorf("worker: queue is not configured")
	}
	if w.jobs == nil {
		return fmt.Errorf("worker: job store is not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"job", domain.JobNameRunWorkflow,
		"action_delay", w.actionDelay,
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		err := w.queue.Subscribe(ctx, domain.JobNameRunWorkflow, w.handleRunRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("queue subscription error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущей обработки.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
