package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/shaiso/Hookflow/internal/config"
)

// Email — исходящее письмо.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer — почтовый транспорт.
//
// Создаётся один раз при старте процесса и закрывается при остановке.
type Mailer interface {
	Send(ctx context.Context, email Email) error
	Close() error
}

const defaultSMTPTimeout = 15 * time.Second

// SMTPMailer — Mailer поверх SMTP (go-mail).
type SMTPMailer struct {
	client *mail.Client
	from   string

	// mail.Client держит одно SMTP-соединение
	mu sync.Mutex
}

// NewSMTPMailer создаёт SMTP-клиента. Соединение открывается при отправке.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(defaultSMTPTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send отправляет одно письмо.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg, err := buildMessage(m.from, email)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Close закрывает SMTP-соединение, если оно открыто.
func (m *SMTPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client.Close()
}

// buildMessage собирает MIME-сообщение.
func buildMessage(from string, email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()

	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}

	return msg, nil
}
