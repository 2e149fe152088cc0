package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Exchanges — имена обменников.
const (
	// ExchangeWork — рабочие задания, routing key = имя задания.
	ExchangeWork Exchange = "hookflow.workflows"

	// ExchangeDLQ — сообщения, исчерпавшие попытки.
	ExchangeDLQ Exchange = "hookflow.dlq"

	// exchangeDefault — default exchange, маршрутизирует по имени очереди.
	exchangeDefault Exchange = ""
)

// headerAttempt — заголовок с номером доставки.
const headerAttempt = "x-attempt"

// Topology — имена очередей одного задания.
type Topology struct {
	JobName string

	// Queue — рабочая очередь.
	Queue string

	// RetryQueue — очередь ожидания повтора. У неё нет потребителей:
	// сообщение лежит до истечения per-message TTL и возвращается
	// в ExchangeWork через dead-lettering.
	RetryQueue string

	// DeadQueue — DLQ.
	DeadQueue string
}

// TopologyFor возвращает имена очередей для задания.
func TopologyFor(jobName string) Topology {
	return Topology{
		JobName:    jobName,
		Queue:      jobName,
		RetryQueue: jobName + ".retry",
		DeadQueue:  "dlq." + jobName,
	}
}

// SetupTopology объявляет exchanges, очереди и привязки задания.
// Идемпотентна: повторное объявление с теми же аргументами не меняет состояние.
func SetupTopology(ctx context.Context, conn *Connection, jobName string) error {
	t := TopologyFor(jobName)

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch, t); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		return bindQueues(ch, t)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeWork, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel, t Topology) error {
	queues := []struct {
		name string
		args amqp.Table
	}{
		// Рабочая очередь: reject без requeue → DLQ
		{t.Queue, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": t.JobName,
		}},

		// Очередь ожидания: истёкший TTL → обратно в рабочую
		{t.RetryQueue, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeWork),
			"x-dead-letter-routing-key": t.JobName,
		}},

		// Сама DLQ, разбирается вручную
		{t.DeadQueue, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			q.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel, t Topology) error {
	bindings := []struct {
		queue    string
		exchange Exchange
	}{
		{t.Queue, ExchangeWork},
		{t.DeadQueue, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, t.JobName, string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(jobName string) string {
	t := TopologyFor(jobName)
	return fmt.Sprintf(`
  Hookflow RabbitMQ Topology:

    %[1]s (direct)
    └── %[3]s [routing: %[2]s]
            Consumer: hookflow-worker
            DLQ: %[5]s

    (default exchange)
    └── %[4]s [ttl per message]
            dead-letter → %[1]s

    %[6]s (direct)
    └── %[5]s [routing: %[2]s]
            Manual processing
`, ExchangeWork, t.JobName, t.Queue, t.RetryQueue, t.DeadQueue, ExchangeDLQ)
}
