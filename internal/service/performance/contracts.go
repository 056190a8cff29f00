package performance

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// SubscriptionClient интерфейс клиента сервиса подписок
type SubscriptionClient interface {
	IsPremium(ctx context.Context, salonID int64) bool
}

// AnalyticsRepository интерфейс репозитория исторической аналитики
type AnalyticsRepository interface {
	GetServiceTiming(ctx context.Context, salonID, serviceID int64, dayOfWeek, hourBlock int) (*domain.ServiceTimingAnalytics, error)
	UpsertServiceTiming(ctx context.Context, a *domain.ServiceTimingAnalytics) error
	GetStaffPattern(ctx context.Context, staffID int64, serviceID *int64, dayOfWeek *int) (*domain.StaffPerformancePattern, error)
	UpsertStaffPattern(ctx context.Context, p *domain.StaffPerformancePattern) error
}

// CustomerRepository интерфейс репозитория привычек клиентов
type CustomerRepository interface {
	GetTimingPreference(ctx context.Context, customerID int64) (*domain.CustomerTimingPreference, error)
	UpsertTimingPreference(ctx context.Context, p *domain.CustomerTimingPreference) error
}

// JobRecordRepository интерфейс репозитория выполнения услуг
type JobRecordRepository interface {
	ListCompletedBySalonSince(ctx context.Context, salonID int64, since time.Time) ([]*domain.JobRecord, error)
	ListCompletedBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.JobRecord, error)
	ListCheckedInByCustomerSince(ctx context.Context, customerID int64, since time.Time) ([]*domain.JobRecord, error)
}

// AlertRepository интерфейс репозитория уведомлений о выезде
type AlertRepository interface {
	ListBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.DepartureAlert, error)
}

// AccuracyRepository интерфейс журнала точности прогнозов
type AccuracyRepository interface {
	Append(ctx context.Context, l *domain.PredictionAccuracyLog) error
	ExistsForBooking(ctx context.Context, bookingID int64, predictionType domain.PredictionType) (bool, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
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
