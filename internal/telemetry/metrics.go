package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Hookflow/internal/domain"
)

const namespace = "hookflow"

// unknownActionLabel — метка для типов вне закрытого набора.
// Тип приходит из очереди, поэтому без ограничения число серий не ограничено.
const unknownActionLabel = "unknown"

// Metrics — метрики воркера и очереди.
type Metrics struct {
	JobsTotal         *prometheus.CounterVec
	ActionsTotal      *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	QueueRedeliveries prometheus.Counter
	QueueDeadLetters  prometheus.Counter
}

// NewMetrics регистрирует метрики в reg.
// nil — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Workflow jobs by terminal status.",
		}, []string{"status"}),

		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by type and outcome.",
		}, []string{"type", "ok"}),

		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from job creation to its terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),

		QueueRedeliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_redeliveries_total",
			Help:      "Messages scheduled for another delivery attempt.",
		}),

		QueueDeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dead_letters_total",
			Help:      "Messages moved to the dead-letter queue.",
		}),
	}
}

// ObserveJob учитывает завершённый job.
func (m *Metrics) ObserveJob(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.Observe(d.Seconds())
}

// ObserveAction учитывает выполненное действие.
func (m *Metrics) ObserveAction(actionType domain.ActionType, ok bool) {
	if m == nil {
		return
	}
	label := string(actionType)
	if !actionType.IsKnown() {
		label = unknownActionLabel
	}
	m.ActionsTotal.WithLabelValues(label, strconv.FormatBool(ok)).Inc()
}

// ObserveRedelivery учитывает повторную доставку.
func (m *Metrics) ObserveRedelivery() {
	if m == nil {
		return
	}
	m.QueueRedeliveries.Inc()
}

// ObserveDeadLetter учитывает сообщение, ушедшее в DLQ.
func (m *Metrics) ObserveDeadLetter() {
	if m == nil {
		return
	}
	m.QueueDeadLetters.Inc()
}
