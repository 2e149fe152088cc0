package worker

import (
	"context"
	"fmt"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/engine"
)

// ExecutionResult — итог успешно выполненного действия.
// Заполняются только поля, относящиеся к типу действия.
type ExecutionResult struct {
	// Message — текстовый итог (slackMessage).
	Message string

	// Info — детали письма (sendEmail).
	Info *domain.EmailInfo

	// Status — HTTP-код ответа (webhook).
	Status int

	// Data — тело ответа (webhook).
	Data any
}

// apply переносит поля результата в ActionResult.
func (r *ExecutionResult) apply(ar *domain.ActionResult) {
	if r == nil {
		return
	}
	ar.Message = r.Message
	ar.Info = r.Info
	ar.Status = r.Status
	ar.Data = r.Data
}

// Executors — набор executor'ов, по одному на тип действия.
//
// Создаётся один раз при старте процесса. Нулевой executor означает,
// что транспорт не настроен: такие действия завершаются ExecutionError.
type Executors struct {
	Email   *EmailExecutor
	Slack   *SlackExecutor
	Webhook *WebhookExecutor
}

// Execute выполняет типизированное действие.
//
// payload — исходные данные триггера (тело для webhook).
func (e *Executors) Execute(ctx context.Context, action engine.Action, payload map[string]any) (*ExecutionResult, error) {
	switch a := action.(type) {
	case engine.SendEmail:
		if e.Email == nil {
			return nil, notConfigured(a.Type())
		}
		return e.Email.Execute(ctx, a)

	case engine.SlackMessage:
		if e.Slack == nil {
			return nil, notConfigured(a.Type())
		}
		return e.Slack.Execute(ctx, a)

	case engine.Webhook:
		if e.Webhook == nil {
			return nil, notConfigured(a.Type())
		}
		return e.Webhook.Execute(ctx, a, payload)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAction, action)
	}
}

func notConfigured(t domain.ActionType) *ExecutionError {
	return newExecutionError(KindTransport, ErrTransportNotConfigured,
		"%s transport is not configured", t)
}
