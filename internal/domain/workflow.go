package domain

// ActionType — тип действия workflow.
//
// Набор закрыт: движок знает ровно три вида действий.
type ActionType string

const (
	// ActionTypeSendEmail — отправка письма через SMTP.
	ActionTypeSendEmail ActionType = "sendEmail"

	// ActionTypeSlackMessage — сообщение в Slack через incoming webhook.
	ActionTypeSlackMessage ActionType = "slackMessage"

	// ActionTypeWebhook — произвольный исходящий HTTP-запрос.
	ActionTypeWebhook ActionType = "webhook"
)

// IsKnown возвращает true для поддерживаемых типов действий.
func (t ActionType) IsKnown() bool {
	switch t {
	case ActionTypeSendEmail, ActionTypeSlackMessage, ActionTypeWebhook:
		return true
	default:
		return false
	}
}

// JobNameRunWorkflow — имя задания в очереди для запуска workflow.
const JobNameRunWorkflow = "workflow.run"

// ActionSpec — описание одного действия workflow.
//
// Config может содержать плейсхолдеры вида {{payload.user.email}},
// которые подставляются из payload триггера перед выполнением.
type ActionSpec struct {
	// Type — тип действия: "sendEmail", "slackMessage", "webhook".
	// Хранится как строка: из очереди может прийти неизвестный тип.
	Type ActionType `json:"type"`

	// Config — конфигурация действия (строки и JSON-скаляры).
	Config map[string]any `json:"config"`

	// OrderIndex — порядковый номер, сохранённый вместе с действием.
	// Порядок выполнения задаёт позиция в массиве, а не это поле.
	OrderIndex int `json:"orderIndex"`
}

// TriggeredBy — пользователь, запустивший workflow (если запрос был с JWT).
type TriggeredBy struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// WorkflowRunRequest — payload сообщения в очереди.
//
// Создаётся один раз на срабатывание триггера и не меняется после enqueue.
// При сбое может быть доставлено повторно.
type WorkflowRunRequest struct {
	// WorkflowID — ID workflow.
	WorkflowID int64 `json:"workflowId"`

	// Actions — действия в порядке выполнения.
	Actions []ActionSpec `json:"actions"`

	// TriggerID — ID сработавшего триггера (nil для ручного запуска).
	TriggerID *int64 `json:"triggerId"`

	// Payload — входные данные триггера (тело webhook-запроса).
	Payload map[string]any `json:"payload"`

	// TriggeredBy — автор запуска, nil при запуске по секрету workflow.
	TriggeredBy *TriggeredBy `json:"triggeredBy"`
}
