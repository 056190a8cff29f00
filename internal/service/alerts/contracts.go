package alerts

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// AlertRepository интерфейс репозитория уведомлений о выезде
type AlertRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.DepartureAlert, error)
	MarkSent(ctx context.Context, id int64, channel domain.NotificationChannel, messageID *string, sentAt time.Time) error
	Acknowledge(ctx context.Context, id int64, response domain.CustomerResponse, actualDeparture *types.TimeOfDay, at time.Time) error
	ListPendingForDate(ctx context.Context, date time.Time) ([]*domain.DepartureAlert, error)
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	ListAwaitingInWindow(ctx context.Context, date time.Time, from, to types.TimeOfDay) ([]*domain.Booking, error)
}

// SalonRepository интерфейс репозитория салонов
type SalonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Salon, error)
}

// StaffRepository интерфейс репозитория мастеров
type StaffRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Staff, error)
}

// SettingsRepository интерфейс репозитория настроек уведомлений
type SettingsRepository interface {
	GetSalonSettingsOrDefault(ctx context.Context, salonID int64) (*domain.SalonDepartureSettings, error)
	GetCustomerPreferencesOrDefault(ctx context.Context, customerID int64) (*domain.CustomerDeparturePreferences, error)
}

// NotificationRepository интерфейс репозитория in-app уведомлений
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// DepartureCalculator пересчёт и сохранение рекомендации по бронированию
type DepartureCalculator interface {
	CreateOrUpdateDepartureAlert(ctx context.Context, bookingID int64) (*domain.DepartureAlert, domain.AlertOutcome, error)
}

// Gateway шлюз push/SMS уведомлений
type Gateway interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (string, error)
}

// Publisher канал событий реального времени
type Publisher interface {
	Publish(ctx context.Context, customerID int64, event domain.RealtimeEvent) error
}

// Metrics метрики отправки уведомлений
type Metrics interface {
	ObserveNotification(channel, outcome string)
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
