package get_departure

import (
	"context"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

type DepartureService interface {
	GetDepartureForCustomer(ctx context.Context, bookingID, customerID int64) (*domain.DepartureRecommendation, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
