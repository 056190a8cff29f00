package departure

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// SalonRepository интерфейс репозитория салонов
type SalonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Salon, error)
}

// SettingsRepository интерфейс репозитория настроек уведомлений салона и клиента
type SettingsRepository interface {
	GetSalonSettingsOrDefault(ctx context.Context, salonID int64) (*domain.SalonDepartureSettings, error)
	GetCustomerPreferencesOrDefault(ctx context.Context, customerID int64) (*domain.CustomerDeparturePreferences, error)
}

// LocationRepository интерфейс репозитория сохранённых адресов клиента
type LocationRepository interface {
	ListLocations(ctx context.Context, customerID int64) ([]*domain.CustomerLocation, error)
}

// AlertRepository интерфейс репозитория уведомлений о выезде
type AlertRepository interface {
	GetByBookingAndDate(ctx context.Context, bookingID int64, date time.Time) (*domain.DepartureAlert, error)
	Create(ctx context.Context, a *domain.DepartureAlert) (*domain.DepartureAlert, error)
	Update(ctx context.Context, a *domain.DepartureAlert) error
}

// QueuePredictor прогноз начала записи по очереди мастера
type QueuePredictor interface {
	GetPredictedStartTime(ctx context.Context, bookingID int64) (*domain.QueuePrediction, error)
}

// PerformancePredictor уточнение прогноза по истории (премиум)
type PerformancePredictor interface {
	GetEnhancedPrediction(ctx context.Context, req domain.EnhancementRequest) (*domain.Enhancement, error)
	GetPersonalizedBuffer(ctx context.Context, customerID int64, defaultBuffer int) (*domain.BufferRecommendation, error)
}

// SubscriptionClient интерфейс клиента сервиса подписок
type SubscriptionClient interface {
	IsPremium(ctx context.Context, salonID int64) bool
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
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
