package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/engine"
	"github.com/shaiso/Hookflow/internal/mq"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

// handleRunRequest обрабатывает сообщение workflow.run из очереди.
//
// Возврат ошибки означает, что доставка не удалась: очередь повторит
// её по своей политике. Ошибка разбора payload перманентная.
func (w *Worker) handleRunRequest(ctx context.Context, delivery *mq.Delivery) error {
	req, err := mq.ParsePayload[domain.WorkflowRunRequest](&delivery.Message)
	if err != nil {
		logger := w.logger.With("message_id", delivery.Message.ID, "attempt", delivery.Attempt)
		w.onFailed(logger, unsavedFailedJob(&domain.WorkflowRunRequest{}, err, delivery.Attempt), err, 0)
		return err
	}

	w.logger.Debug("received workflow.run event",
		"message_id", delivery.Message.ID,
		"workflow_id", req.WorkflowID,
		"attempt", delivery.Attempt,
	)

	_, err = w.Process(ctx, &req, delivery.Attempt)
	return err
}

// Process выполняет одну доставку запроса.
//
// Порядок:
//  1. Создаёт job в статусе RUNNING
//  2. Выполняет действия последовательно, собирая ActionResult
//  3. Переводит job в SUCCESS со всеми результатами
//
// Ошибки отдельных действий не прерывают run и не делают его FAILED.
// Ошибка уровня run (паника, отмена, сбой записи SUCCESS) переводит job
// в FAILED с attempts = attempt и возвращается вызывающему.
//
// Если job не удалось создать, возвращается (nil, err).
func (w *Worker) Process(ctx context.Context, req *domain.WorkflowRunRequest, attempt int) (*domain.Job, error) {
	started := time.Now()

	// 1. Создаём запись
	job := domain.NewJob(req)
	if err := w.jobs.Create(ctx, job); err != nil {
		err = fmt.Errorf("create job: %w", err)
		logger := telemetry.WithWorkflowID(w.logger, req.WorkflowID).With("attempt", attempt)
		w.onFailed(logger, unsavedFailedJob(req, err, attempt), err, time.Since(started))
		return nil, err
	}

	logger := telemetry.WithJobID(telemetry.WithWorkflowID(w.logger, req.WorkflowID), job.ID).
		With("attempt", attempt)

	logger.Info("job started", "actions", len(req.Actions))

	// 2. Выполняем действия
	results, runErr := w.runActions(ctx, logger, req)

	// Финальные записи делаются даже после отмены ctx
	storeCtx := context.WithoutCancel(ctx)

	// 3. SUCCESS
	if runErr == nil {
		job.MarkSucceeded(results)
		err := w.jobs.Update(storeCtx, job)
		if err == nil {
			w.onCompleted(logger, job, time.Since(started))
			return job, nil
		}
		runErr = fmt.Errorf("update job to success: %w", err)
	}

	// FAILED
	job.MarkFailed(runErr.Error(), attempt)
	if err := w.jobs.Update(storeCtx, job); err != nil {
		logger.Error("failed to mark job as failed", "error", err)
	}

	w.onFailed(logger, job, runErr, time.Since(started))
	return job, runErr
}

// runActions выполняет действия строго по порядку.
// Между действиями выдерживается actionDelay.
func (w *Worker) runActions(ctx context.Context, logger *slog.Logger, req *domain.WorkflowRunRequest) (results []domain.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action panicked", "panic", r)
			results = nil
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	results = make([]domain.ActionResult, 0, len(req.Actions))

	for i, spec := range req.Actions {
		if i > 0 && w.actionDelay > 0 {
			if err := sleep(ctx, w.actionDelay); err != nil {
				return nil, fmt.Errorf("run interrupted: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted: %w", err)
		}

		results = append(results, w.runAction(ctx, logger, i, spec, req.Payload))
	}

	return results, nil
}

// runAction выполняет одно действие и возвращает его результат.
// Ошибка действия фиксируется в результате, а не возвращается.
func (w *Worker) runAction(ctx context.Context, logger *slog.Logger, index int, spec domain.ActionSpec, payload map[string]any) domain.ActionResult {
	result := domain.ActionResult{Type: spec.Type}
	logger = logger.With("action_index", index, "action_type", spec.Type)

	action, resolved, err := engine.Bind(spec, payload)
	if err == nil {
		logger.Debug("executing action", "target", describeAction(action))

		var out *ExecutionResult
		out, err = w.executors.Execute(telemetry.WithLogger(ctx, logger), action, payload)
		if err == nil {
			result.OK = true
			out.apply(&result)
			w.metrics.ObserveAction(spec.Type, true)
			logger.Info("action completed")
			return result
		}
	}

	result.OK = false
	result.Error = err.Error()

	// Для неизвестного типа конфигурация не сохраняется
	var unknown *engine.UnknownActionError
	if !errors.As(err, &unknown) {
		result.Config = resolved
	}

	w.metrics.ObserveAction(spec.Type, false)
	logger.Warn("action failed", "error", err)
	return result
}

func (w *Worker) onCompleted(logger *slog.Logger, job *domain.Job, elapsed time.Duration) {
	logger.Info("job completed",
		"status", job.Status,
		"actions", len(job.Result.Actions),
		"failed_actions", job.Result.FailedActions(),
		"duration", elapsed,
	)
	w.metrics.ObserveJob(string(job.Status), elapsed)

	if w.events.Completed != nil {
		w.events.Completed(job)
	}
}

func (w *Worker) onFailed(logger *slog.Logger, job *domain.Job, err error, elapsed time.Duration) {
	logger.Error("job failed",
		"status", job.Status,
		"error", err,
		"duration", elapsed,
	)
	w.metrics.ObserveJob(string(job.Status), elapsed)

	if w.events.Failed != nil {
		w.events.Failed(job, err)
	}
}

// unsavedFailedJob — FAILED job, которого нет в хранилище (ID = 0).
// Передаётся в Events.Failed, когда запись не создавалась.
func unsavedFailedJob(req *domain.WorkflowRunRequest, err error, attempt int) *domain.Job {
	job := domain.NewJob(req)
	job.MarkFailed(err.Error(), attempt)
	return job
}

// sleep ждёт d или отмены ctx.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// describeAction — короткое описание действия для логов.
func describeAction(a engine.Action) string {
	switch v := a.(type) {
	case engine.Webhook:
		return fmt.Sprintf("%s %s", v.Method, v.URL)
	case engine.SlackMessage:
		return "slack webhook"
	case engine.SendEmail:
		return "email to " + v.To
	default:
		return string(a.Type())
	}
}
