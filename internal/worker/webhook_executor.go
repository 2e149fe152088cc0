package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Hookflow/internal/engine"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookExecutor — executor для действия webhook.
//
// Отправляет исходный payload триггера как JSON-тело запроса.
//
// Config (engine.Webhook):
//   - url: адрес запроса
//   - method: HTTP-метод. Default: POST
//   - headers: HTTP-заголовки. Default: Content-Type: application/json
//     (Content-Type добавляется к любому запросу с телом, если не задан)
//   - timeout: таймаут запроса; 0 — таймаут executor'а (default: 10s)
//
// Outputs:
//   - status (int): HTTP-код ответа
//   - data (any): тело ответа (JSON или строка)
type WebhookExecutor struct {
	client  *http.Client
	timeout time.Duration
}

// NewWebhookExecutor создаёт WebhookExecutor с таймаутом по умолчанию.
func NewWebhookExecutor(timeout time.Duration) *WebhookExecutor {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookExecutor{client: &http.Client{}, timeout: timeout}
}

// Execute выполняет HTTP-запрос.
func (e *WebhookExecutor) Execute(ctx context.Context, a engine.Webhook, payload map[string]any) (*ExecutionResult, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	// Таймаут
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Тело — исходный payload триггера без изменений
	var bodyReader io.Reader
	if payload != nil && a.Method != http.MethodGet && a.Method != http.MethodHead {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, newExecutionError(KindMalformedRequest, err, "Webhook error: marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	// Создаём запрос
	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, newExecutionError(KindMalformedRequest, err, "Webhook error: %v", err)
	}

	for key, val := range a.Headers {
		req.Header.Set(key, val)
	}
	// Тело всегда JSON, даже если заголовки заданы без Content-Type
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	// Выполняем запрос
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newExecutionError(KindNoResponse, err, "Webhook request timed out after %s", timeout)
		}
		return nil, newExecutionError(KindNoResponse, err, "Webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	// Читаем тело ответа
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, newExecutionError(KindNoResponse, err, "Webhook error: read response: %v", err)
	}

	telemetry.FromContext(ctx).Debug("webhook response",
		"status", resp.StatusCode,
		"bytes", len(respBody),
	)

	// HTTP >= 400 — ошибка действия
	if resp.StatusCode >= 400 {
		execErr := newExecutionError(KindRemoteRejected, nil,
			"Webhook request failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		execErr.Status = resp.StatusCode
		return nil, execErr
	}

	return &ExecutionResult{
		Status: resp.StatusCode,
		Data:   parseBody(respBody),
	}, nil
}

// parseBody парсит тело ответа: JSON, иначе строка.
func parseBody(body []byte) any {
	if len(body) == 0 {
		return ""
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	return parsed
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
