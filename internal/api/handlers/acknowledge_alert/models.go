package acknowledge_alert

import (
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// AcknowledgeRequest HTTP request model
type AcknowledgeRequest struct {
	Response            string  `json:"response"`
	ActualDepartureTime *string `json:"actualDepartureTime,omitempty"`
}

// ActualDeparture разбирает время выхода в формате HH:MM, nil если не передано
func (r *AcknowledgeRequest) ActualDeparture() (*types.TimeOfDay, error) {
	if r.ActualDepartureTime == nil || *r.ActualDepartureTime == "" {
		return nil, nil
	}
	t, err := types.ParseTimeOfDay(*r.ActualDepartureTime)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AcknowledgeResponse HTTP response model
type AcknowledgeResponse struct {
	AlertID             int64                    `json:"alertId"`
	BookingID           int64                    `json:"bookingId"`
	Acknowledged        bool                     `json:"acknowledged"`
	AcknowledgedAt      *time.Time               `json:"acknowledgedAt"`
	Response            *domain.CustomerResponse `json:"response"`
	ActualDepartureTime *types.TimeOfDay         `json:"actualDepartureTime"`
}

// FromDomain конвертирует уведомление в HTTP ответ
func FromDomain(a *domain.DepartureAlert) *AcknowledgeResponse {
	return &AcknowledgeResponse{
		AlertID:             a.ID,
		BookingID:           a.BookingID,
		Acknowledged:        a.CustomerAcknowledged,
		AcknowledgedAt:      a.AcknowledgedAt,
		Response:            a.CustomerResponse,
		ActualDepartureTime: a.ActualDepartureTime,
	}
}
