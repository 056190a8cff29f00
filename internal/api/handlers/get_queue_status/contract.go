package get_queue_status

import (
	"context"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

type QueueService interface {
	GetSalonQueueStatus(ctx context.Context, salonID int64, date time.Time, live bool) (*domain.SalonQueueStatus, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
