package domain

import (
	"encoding/json"
	"time"
)

// Job — запись о выполнении workflow (одна на каждую попытку доставки).
//
// Создаётся воркером в статусе RUNNING до выполнения первого действия
// и обновляется ровно один раз — в SUCCESS или FAILED.
// Движок job'ы не удаляет.
type Job struct {
	// ID — идентификатор, назначается хранилищем при создании.
	ID int64 `json:"id"`

	// WorkflowID — ID выполняемого workflow.
	WorkflowID int64 `json:"workflowId"`

	// TriggerID — ID триггера, nil для запуска без триггера.
	TriggerID *int64 `json:"triggerId"`

	// Status — текущий статус.
	Status JobStatus `json:"status"`

	// Payload — входные данные триггера (копия из WorkflowRunRequest).
	Payload map[string]any `json:"payload,omitempty"`

	// Attempts — номер попытки доставки на момент ошибки.
	// Остаётся 0, пока job не перешёл в FAILED.
	Attempts int `json:"attempts"`

	// Result — результаты действий, заполняется при SUCCESS.
	Result *JobResult `json:"result"`

	// LastError — сообщение ошибки уровня run при FAILED.
	LastError string `json:"lastError,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobResult — результат прохода по действиям workflow.
type JobResult struct {
	Actions []ActionResult `json:"actions"`
}

// ActionResult — результат одного действия.
//
// Записывается для каждого действия, включая упавшие.
type ActionResult struct {
	// Type — тип действия в том виде, в каком он пришёл в запросе.
	Type ActionType `json:"type"`

	// OK — действие выполнено без ошибки.
	OK bool `json:"ok"`

	// Error — сообщение об ошибке при OK=false.
	Error string `json:"error,omitempty"`

	// Message — текстовый итог (slackMessage).
	Message string `json:"message,omitempty"`

	// Info — детали отправленного письма (sendEmail).
	Info *EmailInfo `json:"info,omitempty"`

	// Status — HTTP-код ответа (webhook).
	Status int `json:"status,omitempty"`

	// Data — тело ответа: JSON или строка (webhook).
	// У успешного webhook присутствует всегда, даже пустое.
	Data any `json:"data,omitempty"`

	// Config — отрендеренная конфигурация, только при OK=false (для отладки).
	Config map[string]any `json:"config,omitempty"`
}

// MarshalJSON сериализует результат; у успешного webhook поле data
// не опускается.
func (r ActionResult) MarshalJSON() ([]byte, error) {
	type plain ActionResult
	if r.Type != ActionTypeWebhook || !r.OK {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Data any `json:"data"`
	}{plain: plain(r), Data: r.Data})
}

// EmailInfo — итог отправки письма.
type EmailInfo struct {
	To         string  `json:"to"`
	Subject    string  `json:"subject"`
	PreviewURL *string `json:"previewUrl"`
}

// NewJob создаёт job в статусе RUNNING для запроса из очереди.
func NewJob(req *WorkflowRunRequest) *Job {
	return &Job{
		WorkflowID: req.WorkflowID,
		TriggerID:  req.TriggerID,
		Status:     JobStatusRunning,
		Payload:    req.Payload,
		Attempts:   0,
	}
}

// MarkSucceeded переводит job в SUCCESS с результатами всех действий.
func (j *Job) MarkSucceeded(actions []ActionResult) {
	if actions == nil {
		actions = []ActionResult{}
	}
	j.Status = JobStatusSuccess
	j.Result = &JobResult{Actions: actions}
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed переводит job в FAILED.
// attempt — номер текущей попытки доставки (начиная с 1).
// Result сбрасывается: у FAILED job результатов действий нет.
func (j *Job) MarkFailed(err string, attempt int) {
	j.Status = JobStatusFailed
	j.Result = nil
	j.LastError = err
	j.Attempts = attempt
	j.UpdatedAt = time.Now()
}

// FailedActions возвращает количество действий с OK=false.
func (r *JobResult) FailedActions() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, a := range r.Actions {
		if !a.OK {
			n++
		}
	}
	return n
}
