package acknowledge_alert

import (
	"context"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

type AlertService interface {
	AcknowledgeAlert(
		ctx context.Context,
		alertID, customerID int64,
		response domain.CustomerResponse,
		actualDeparture *types.TimeOfDay,
	) (*domain.DepartureAlert, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
