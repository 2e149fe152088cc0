package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Значения по умолчанию для повторов публикации.
const (
	defaultPublishRetries  = 3
	defaultPublishInterval = 500 * time.Millisecond
)

// Message — конверт сообщения в очереди.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — имя задания (например, "workflow.run").
	Type string `json:"type"`

	// Payload — полезная нагрузка.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт конверт для задания jobName.
func NewMessage(jobName string, data any) (*Message, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Message{
		ID:        uuid.New().String(),
		Type:      jobName,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	if len(msg.Payload) == 0 {
		return result, fmt.Errorf("%w: empty payload", ErrPermanent)
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal payload: %v", ErrPermanent, err)
	}

	return result, nil
}

// Publisher публикует сообщения в RabbitMQ.
//
// Неудачная публикация повторяется с постоянной задержкой:
// соединение может быть в процессе переподключения.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger

	retries  uint64
	interval time.Duration
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:     conn,
		logger:   logger,
		retries:  defaultPublishRetries,
		interval: defaultPublishInterval,
	}
}

// publishing — параметры одной публикации.
type publishing struct {
	exchange   Exchange
	routingKey string
	attempt    int
	expiration time.Duration
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey string, msg *Message) error {
	return p.publish(ctx, publishing{exchange: exchange, routingKey: routingKey, attempt: 1}, msg)
}

func (p *Publisher) publish(ctx context.Context, pub publishing, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	out := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    msg.ID,
		Type:         msg.Type,
		Timestamp:    msg.Timestamp,
		Headers:      amqp.Table{headerAttempt: int32(pub.attempt)},
		Body:         body,
	}
	if pub.expiration > 0 {
		out.Expiration = formatExpiration(pub.expiration)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), p.retries),
		ctx,
	)

	err = backoff.Retry(func() error {
		err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
			return ch.PublishWithContext(ctx, string(pub.exchange), pub.routingKey, false, false, out)
		})
		if errors.Is(err, ErrClosed) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", pub.exchange, pub.routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", pub.exchange,
		"routing_key", pub.routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
		"attempt", pub.attempt,
	)

	return nil
}

// formatExpiration переводит задержку в формат per-message TTL (миллисекунды).
func formatExpiration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("%d", ms)
}
