package worker

import (
	"errors"
	"fmt"
)

// Ошибки воркера.
var (
	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrActionPanicked — паника при выполнении действия.
	ErrActionPanicked = errors.New("action panicked")

	// ErrTransportNotConfigured — для действия нет executor'а.
	ErrTransportNotConfigured = errors.New("transport not configured")

	// ErrUnsupportedAction — тип действия не обрабатывается диспетчером.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// ErrorKind — категория ошибки выполнения действия.
type ErrorKind string

const (
	// KindRemoteRejected — удалённая сторона ответила ошибкой.
	KindRemoteRejected ErrorKind = "remote_rejected"

	// KindNoResponse — ответа не было (соединение, таймаут).
	KindNoResponse ErrorKind = "no_response"

	// KindMalformedRequest — запрос не удалось построить.
	KindMalformedRequest ErrorKind = "malformed_request"

	// KindTransport — ошибка транспорта (SMTP, отсутствие executor'а).
	KindTransport ErrorKind = "transport"
)

// ExecutionError — ошибка выполнения действия.
//
// Message — человекочитаемый текст, который попадает в ActionResult.Error.
type ExecutionError struct {
	Kind    ErrorKind
	Message string

	// Status — HTTP-код ответа для KindRemoteRejected.
	Status int

	// Err — исходная ошибка, если есть.
	Err error
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return e.Message
}

// Unwrap возвращает исходную ошибку.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(kind ErrorKind, err error, format string, args ...any) *ExecutionError {
	return &ExecutionError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
