package worker

import (
	"context"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/engine"
)

// EmailExecutor — executor для действия sendEmail.
//
// Отправляет одно письмо через Mailer. Повторов нет: доставкой
// занимается транспорт.
//
// Outputs:
//   - info.to, info.subject
//   - info.previewUrl — всегда null (SMTP не даёт ссылки на превью)
type EmailExecutor struct {
	mailer Mailer
}

// NewEmailExecutor создаёт EmailExecutor.
func NewEmailExecutor(mailer Mailer) *EmailExecutor {
	return &EmailExecutor{mailer: mailer}
}

// Execute отправляет письмо.
func (e *EmailExecutor) Execute(ctx context.Context, a engine.SendEmail) (*ExecutionResult, error) {
	err := e.mailer.Send(ctx, Email{
		To:      a.To,
		Subject: a.Subject,
		Text:    a.Text,
		HTML:    a.HTML,
	})
	if err != nil {
		return nil, newExecutionError(KindTransport, err, "Email error: %v", err)
	}

	return &ExecutionResult{
		Info: &domain.EmailInfo{
			To:      a.To,
			Subject: a.Subject,
		},
	}, nil
}
