package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// Имена джобов
const (
	JobQueues    = "queues"
	JobAlerts    = "alerts"
	JobAnalytics = "analytics"
	JobPrune     = "prune"
)

// Intervals интервалы запуска джобов
type Intervals struct {
	Queues    time.Duration
	Alerts    time.Duration
	Analytics time.Duration
	Prune     time.Duration
}

// RegisterDefaultJobs регистрирует пересчёт очередей, уведомления, аналитику и очистку журнала
func (s *Scheduler) RegisterDefaultJobs(
	queue QueueService,
	alerts AlertService,
	performance PerformanceService,
	salons SalonRepository,
	intervals Intervals,
	salonBatchSize int,
	timeProvider TimeProvider,
) {
	s.Register(Job{Name: JobQueues, Interval: intervals.Queues, Run: QueuesJob(queue, salonBatchSize, timeProvider)})
	s.Register(Job{Name: JobAlerts, Interval: intervals.Alerts, Run: AlertsJob(alerts)})
	s.Register(Job{Name: JobAnalytics, Interval: intervals.Analytics, Run: AnalyticsJob(salons, performance, salonBatchSize, timeProvider)})
	s.Register(Job{Name: JobPrune, Interval: intervals.Prune, Run: PruneJob(performance)})
}

// QueuesJob пересчёт очередей всех активных мастеров на сегодня
func QueuesJob(queue QueueService, batchSize int, tp TimeProvider) RunFunc {
	return func(ctx context.Context) (*domain.BatchResult, error) {
		return queue.RecalculateAllQueues(ctx, domain.DateOnly(tp.Now()), batchSize)
	}
}

// AlertsJob пересчёт уведомлений, затем отправка
// Отправка выполняется даже если пересчёт не удался: в очереди могут быть ранее созданные уведомления
func AlertsJob(alerts AlertService) RunFunc {
	return func(ctx context.Context) (*domain.BatchResult, error) {
		result := domain.NewBatchResult(JobAlerts)

		recalculated, recalcErr := alerts.RecalculateAndUpdateAlerts(ctx)
		result.Merge(recalculated)

		dispatched, dispatchErr := alerts.ProcessPendingAlerts(ctx)
		result.Merge(dispatched)

		if err := errors.Join(recalcErr, dispatchErr); err != nil {
			return result, err
		}
		return result, nil
	}
}

// AnalyticsJob агрегаты по истории для всех активных салонов
// Салоны обходятся курсором по возрастанию id, премиум проверяется внутри RunSalonAnalytics
func AnalyticsJob(salons SalonRepository, performance PerformanceService, batchSize int, tp TimeProvider) RunFunc {
	return func(ctx context.Context) (*domain.BatchResult, error) {
		if batchSize <= 0 {
			return nil, fmt.Errorf("analytics job: batch size must be positive, got %d", batchSize)
		}
		date := domain.DateOnly(tp.Now())
		result := domain.NewBatchResult(JobAnalytics)

		var cursor int64
		for {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			page, err := salons.ListActiveAfter(ctx, cursor, batchSize)
			if err != nil {
				return result, fmt.Errorf("analytics job: list salons after id=%d: %w", cursor, err)
			}
			for _, salon := range page {
				result.Merge(performance.RunSalonAnalytics(ctx, salon.ID, date))
				result.Inc("salons")
				cursor = salon.ID
			}
			if len(page) < batchSize {
				return result, nil
			}
		}
	}
}

// PruneJob удаление записей журнала точности старше срока хранения
func PruneJob(performance PerformanceService) RunFunc {
	return func(ctx context.Context) (*domain.BatchResult, error) {
		result := domain.NewBatchResult(JobPrune)
		deleted, err := performance.PruneAccuracyLogs(ctx)
		if err != nil {
			return nil, err
		}
		result.Counters["deleted"] = int(deleted)
		return result, nil
	}
}
