package scheduler

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// QueueService пересчёт очередей мастеров
type QueueService interface {
	RecalculateAllQueues(ctx context.Context, date time.Time, batchSize int) (*domain.BatchResult, error)
}

// AlertService пересчёт и отправка уведомлений о выезде
type AlertService interface {
	RecalculateAndUpdateAlerts(ctx context.Context) (*domain.BatchResult, error)
	ProcessPendingAlerts(ctx context.Context) (*domain.BatchResult, error)
}

// PerformanceService агрегаты по истории и очистка журнала точности
type PerformanceService interface {
	RunSalonAnalytics(ctx context.Context, salonID int64, date time.Time) *domain.BatchResult
	PruneAccuracyLogs(ctx context.Context) (int64, error)
}

// SalonRepository интерфейс репозитория салонов
type SalonRepository interface {
	ListActiveAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Salon, error)
}

// Locker захватывает блокировку джоба без ожидания
type Locker interface {
	TryLock(ctx context.Context, name string) (release func(), ok bool, err error)
}

// Metrics метрики запусков джобов
type Metrics interface {
	ObserveJob(job, outcome string, d time.Duration)
	AddJobEntities(job, status string, n int)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider реальная реализация TimeProvider
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
