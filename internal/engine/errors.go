package engine

import (
	"errors"

	"github.com/shaiso/Hookflow/internal/domain"
)

// Ошибки привязки действий.
var (
	// ErrUnknownActionType — тип действия не входит в поддерживаемый набор.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrInvalidConfig — конфигурация действия не прошла проверку.
	ErrInvalidConfig = errors.New("invalid action config")
)

// UnknownActionError — действие неизвестного типа.
//
// Сообщение совпадает с тем, что пишется в ActionResult.Error.
type UnknownActionError struct {
	Type domain.ActionType
}

// Error реализует интерфейс error.
func (e *UnknownActionError) Error() string {
	return "Unknown action type: " + string(e.Type)
}

// Unwrap возвращает базовую ошибку.
func (e *UnknownActionError) Unwrap() error {
	return ErrUnknownActionType
}

// ValidationError — ошибка проверки конфигурации действия.
type ValidationError struct {
	Action  domain.ActionType // тип действия
	Field   string            // поле, вызвавшее ошибку
	Message string            // человекочитаемое описание
	Err     error             // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(action domain.ActionType, field, message string) *ValidationError {
	return &ValidationError{
		Action:  action,
		Field:   field,
		Message: message,
		Err:     ErrInvalidConfig,
	}
}
