package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Hookflow/internal/engine"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

const (
	defaultSlackTimeout = 10 * time.Second

	// slackSuccessMessage — ActionResult.Message при успешной отправке.
	slackSuccessMessage = "Slack message sent successfully"

	// maxResponseBody — сколько байт ответа читать.
	maxResponseBody = 1 << 20
)

// SlackExecutor — executor для действия slackMessage.
//
// Выполняет один POST {"text": ...} в incoming webhook.
// Конфигурация проверена при привязке, поэтому при некорректном
// URL или пустом тексте executor не вызывается.
type SlackExecutor struct {
	client *http.Client
}

// NewSlackExecutor создаёт SlackExecutor с таймаутом запроса (default: 10s).
func NewSlackExecutor(timeout time.Duration) *SlackExecutor {
	if timeout <= 0 {
		timeout = defaultSlackTimeout
	}
	return &SlackExecutor{client: &http.Client{Timeout: timeout}}
}

// Execute отправляет сообщение.
func (e *SlackExecutor) Execute(ctx context.Context, a engine.SlackMessage) (*ExecutionResult, error) {
	body, err := json.Marshal(map[string]string{"text": a.Text})
	if err != nil {
		return nil, newExecutionError(KindMalformedRequest, err, "Slack error: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, newExecutionError(KindMalformedRequest, err, "Slack error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, newExecutionError(KindNoResponse, err,
			"Failed to connect to Slack. Please check your webhook URL and internet connection.")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	telemetry.FromContext(ctx).Debug("slack response", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		execErr := newExecutionError(KindRemoteRejected, nil,
			"Slack API error: %s (Status: %d)", slackErrorDetail(resp.StatusCode, respBody), resp.StatusCode)
		execErr.Status = resp.StatusCode
		return nil, execErr
	}

	return &ExecutionResult{Message: slackSuccessMessage}, nil
}

// slackErrorDetail извлекает описание ошибки из ответа Slack.
//
// Порядок: поле "error" JSON-ответа, текст ответа, текст HTTP-статуса.
func slackErrorDetail(status int, body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text, 200)
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown error"
}
