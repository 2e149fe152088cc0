package engine

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Hookflow/internal/domain"
)

// Значения по умолчанию для webhook.
const (
	DefaultWebhookMethod = "POST"
	contentTypeJSON      = "application/json"
)

// Action — типизированное действие после рендеринга конфигурации.
//
// Набор реализаций закрыт: SendEmail, SlackMessage, Webhook.
// Worker диспетчеризует через type switch по этим трём типам.
type Action interface {
	Type() domain.ActionType
	action()
}

// SendEmail — письмо через почтовый транспорт.
type SendEmail struct {
	To      string
	Subject string
	Text    string
	HTML    string // опционально
}

// SlackMessage — сообщение в Slack через incoming webhook.
type SlackMessage struct {
	WebhookURL string
	Text       string
}

// Webhook — исходящий HTTP-запрос.
type Webhook struct {
	URL     string
	Method  string
	Headers map[string]string

	// Timeout — таймаут запроса; 0 — значение по умолчанию executor'а.
	Timeout time.Duration
}

func (SendEmail) Type() domain.ActionType    { return domain.ActionTypeSendEmail }
func (SlackMessage) Type() domain.ActionType { return domain.ActionTypeSlackMessage }
func (Webhook) Type() domain.ActionType      { return domain.ActionTypeWebhook }

func (SendEmail) action()    {}
func (SlackMessage) action() {}
func (Webhook) action()      {}

// Bind рендерит конфигурацию действия и строит типизированное действие.
//
// Отрендеренная конфигурация возвращается всегда (даже при ошибке),
// чтобы её можно было сохранить в ActionResult для отладки.
//
// Ошибки:
//   - *UnknownActionError — тип не поддерживается
//   - *ValidationError — конфигурация некорректна
func Bind(spec domain.ActionSpec, payload map[string]any) (Action, map[string]any, error) {
	resolved := ResolveConfig(spec.Config, payload)

	var (
		action Action
		err    error
	)
	switch spec.Type {
	case domain.ActionTypeSendEmail:
		action, err = bindSendEmail(resolved, payload)
	case domain.ActionTypeSlackMessage:
		action, err = bindSlackMessage(resolved, payload)
	case domain.ActionTypeWebhook:
		action, err = bindWebhook(resolved)
	default:
		err = &UnknownActionError{Type: spec.Type}
	}
	if err != nil {
		return nil, resolved, err
	}
	return action, resolved, nil
}

// bindSendEmail строит SendEmail.
//
// Config:
//   - to (string): адрес получателя, по умолчанию payload.user.email
//   - subject (string): тема
//   - body | text (string): текст письма
//   - html (string): HTML-версия, опционально
func bindSendEmail(cfg, payload map[string]any) (SendEmail, error) {
	to := strings.TrimSpace(configString(cfg, "to"))
	if to == "" {
		if v, ok := Lookup(payload, "user.email"); ok {
			to = strings.TrimSpace(Stringify(v))
		}
	}
	if to == "" {
		return SendEmail{}, NewValidationError(domain.ActionTypeSendEmail, "to",
			"Email recipient is missing. Provide \"to\" in the action configuration or user.email in the payload.")
	}

	return SendEmail{
		To:      to,
		Subject: configString(cfg, "subject"),
		Text:    firstNonEmpty(cfg, "body", "text"),
		HTML:    configString(cfg, "html"),
	}, nil
}

// bindSlackMessage строит SlackMessage.
//
// Config:
//   - webhookUrl | webhook_url (string): URL incoming webhook (обязательно)
//   - text | message (string): текст; по умолчанию JSON всего payload
func bindSlackMessage(cfg, payload map[string]any) (SlackMessage, error) {
	webhookURL := firstNonEmpty(cfg, "webhookUrl", "webhook_url")
	if webhookURL == "" {
		return SlackMessage{}, NewValidationError(domain.ActionTypeSlackMessage, "webhookUrl",
			"Slack webhook URL is missing. Please provide a webhook URL in the action configuration.")
	}
	if !isHTTPURL(webhookURL) {
		return SlackMessage{}, NewValidationError(domain.ActionTypeSlackMessage, "webhookUrl",
			"Invalid webhook URL format. Must start with http:// or https://")
	}

	text := firstNonEmpty(cfg, "text", "message")
	if text == "" {
		b, err := json.Marshal(map[string]any{"payload": payload})
		if err == nil {
			text = string(b)
		}
	}
	if strings.TrimSpace(text) == "" {
		return SlackMessage{}, NewValidationError(domain.ActionTypeSlackMessage, "text",
			"Slack message text is empty. Please provide a message text.")
	}

	return SlackMessage{WebhookURL: webhookURL, Text: text}, nil
}

// bindWebhook строит Webhook.
//
// Config:
//   - url (string): адрес запроса (обязательно)
//   - method (string): HTTP-метод. Default: POST
//   - headers (object | JSON string): заголовки. Default: Content-Type: application/json
//   - timeout (number | numeric string): таймаут в миллисекундах
func bindWebhook(cfg map[string]any) (Webhook, error) {
	rawURL := strings.TrimSpace(configString(cfg, "url"))
	if rawURL == "" {
		return Webhook{}, NewValidationError(domain.ActionTypeWebhook, "url", "Webhook url is missing")
	}

	method := strings.ToUpper(strings.TrimSpace(configString(cfg, "method")))
	if method == "" {
		method = DefaultWebhookMethod
	}

	headers, err := parseHeaders(cfg["headers"])
	if err != nil {
		return Webhook{}, err
	}

	timeout, err := parseTimeoutMs(cfg["timeout"])
	if err != nil {
		return Webhook{}, err
	}

	return Webhook{
		URL:     rawURL,
		Method:  method,
		Headers: headers,
		Timeout: timeout,
	}, nil
}

// parseHeaders разбирает заголовки webhook.
func parseHeaders(raw any) (map[string]string, error) {
	var src map[string]any

	switch v := raw.(type) {
	case nil:
	case map[string]any:
		src = v
	case map[string]string:
		headers := make(map[string]string, len(v))
		for key, val := range v {
			headers[key] = val
		}
		return headersOrDefault(headers), nil
	case string:
		if strings.TrimSpace(v) == "" {
			break
		}
		if err := json.Unmarshal([]byte(v), &src); err != nil {
			return nil, NewValidationError(domain.ActionTypeWebhook, "headers",
				"Invalid webhook headers: expected a JSON object")
		}
	default:
		return nil, NewValidationError(domain.ActionTypeWebhook, "headers",
			"Invalid webhook headers: expected a JSON object")
	}

	headers := make(map[string]string, len(src))
	for key, val := range src {
		headers[key] = Stringify(val)
	}
	return headersOrDefault(headers), nil
}

func headersOrDefault(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return map[string]string{"Content-Type": contentTypeJSON}
	}
	return headers
}

// parseTimeoutMs разбирает таймаут в миллисекундах.
// Отсутствующее или нулевое значение — 0 (таймаут executor'а).
func parseTimeoutMs(raw any) (time.Duration, error) {
	var ms float64

	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		ms = v
	case int:
		ms = float64(v)
	case int64:
		ms = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalidTimeout()
		}
		ms = f
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, invalidTimeout()
		}
		ms = f
	default:
		return 0, invalidTimeout()
	}

	if ms < 0 {
		return 0, invalidTimeout()
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func invalidTimeout() error {
	return NewValidationError(domain.ActionTypeWebhook, "timeout",
		"Invalid webhook timeout: expected a non-negative number of milliseconds")
}

// isHTTPURL проверяет, что строка — абсолютный http/https URL.
func isHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// configString извлекает значение конфигурации как строку.
func configString(cfg map[string]any, key string) string {
	val, ok := cfg[key]
	if !ok {
		return ""
	}
	return Stringify(val)
}

// firstNonEmpty возвращает первое непустое строковое значение по списку ключей.
func firstNonEmpty(cfg map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := configString(cfg, key); s != "" {
			return s
		}
	}
	return ""
}
