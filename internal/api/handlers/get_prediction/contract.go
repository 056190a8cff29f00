package get_prediction

import (
	"context"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

type QueueService interface {
	GetPredictedStartTime(ctx context.Context, bookingID int64) (*domain.QueuePrediction, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
