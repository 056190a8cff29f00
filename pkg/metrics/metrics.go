// Package metrics содержит prometheus-метрики сервиса
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения label outcome для запусков джобов
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics набор метрик сервиса
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	JobEntities *prometheus.CounterVec

	NotificationsSent *prometheus.CounterVec
}

// New создает метрики и регистрирует их в глобальном реестре prometheus
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry создает метрики в указанном реестре (используется в тестах)
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Total number of failed database queries",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		DBConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_connections",
			Help:        "Database connection pool state",
			ConstLabels: constLabels,
		}, []string{"state"}),

		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "scheduler_job_runs_total",
			Help:        "Scheduler job runs by outcome",
			ConstLabels: constLabels,
		}, []string{"job", "outcome"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "scheduler_job_duration_seconds",
			Help:        "Scheduler job tick duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		JobEntities: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "scheduler_job_entities_total",
			Help:        "Entities processed by scheduler jobs by status",
			ConstLabels: constLabels,
		}, []string{"job", "status"}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "departure_notifications_total",
			Help:        "Departure notifications by channel and outcome",
			ConstLabels: constLabels,
		}, []string{"channel", "outcome"}),
	}
}

// ObserveHTTP записывает метрики HTTP запроса
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveQuery записывает метрики SQL запроса
func (m *Metrics) ObserveQuery(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveJob записывает итог запуска джоба
func (m *Metrics) ObserveJob(job, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}

// AddJobEntities увеличивает счётчик обработанных сущностей
func (m *Metrics) AddJobEntities(job, status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.JobEntities.WithLabelValues(job, status).Add(float64(n))
}

// ObserveNotification записывает результат отправки уведомления
func (m *Metrics) ObserveNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(channel, outcome).Inc()
}
