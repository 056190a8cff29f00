package queue

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// StaffRepository интерфейс репозитория мастеров
type StaffRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Staff, error)
	ListActiveBySalon(ctx context.Context, salonID int64) ([]*domain.Staff, error)
}

// SalonRepository интерфейс репозитория салонов
type SalonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Salon, error)
	ListActiveAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Salon, error)
}

// BookingRepository интерфейс репозитория бронирований (только чтение)
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListAwaitingByStaffAndDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.Booking, error)
}

// JobRecordRepository интерфейс репозитория выполнения услуг
type JobRecordRepository interface {
	GetInProgressByStaff(ctx context.Context, staffID int64, date time.Time) (*domain.JobRecord, error)
	ListCompletedByStaffAndDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.JobRecord, error)
}

// QueueStatusRepository интерфейс репозитория статусов очереди
type QueueStatusRepository interface {
	Upsert(ctx context.Context, status *domain.StaffQueueStatus) error
	ListBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.StaffQueueStatus, error)
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
