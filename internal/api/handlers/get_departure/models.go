package get_departure

import (
	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// DepartureResponse HTTP response model
type DepartureResponse struct {
	BookingID              int64                     `json:"bookingId"`
	Available              bool                      `json:"available"`
	SalonName              string                    `json:"salonName,omitempty"`
	StaffName              string                    `json:"staffName,omitempty"`
	OriginalBookingTime    *types.TimeOfDay          `json:"originalBookingTime"`
	PredictedStartTime     *types.TimeOfDay          `json:"predictedStartTime"`
	DelayMinutes           *int                      `json:"delayMinutes"`
	DelayReason            *domain.DelayReason       `json:"delayReason"`
	SuggestedDepartureTime *types.TimeOfDay          `json:"suggestedDepartureTime"`
	TravelMinutes          *int                      `json:"travelMinutes"`
	BufferMinutes          *int                      `json:"bufferMinutes"`
	Location               *domain.DepartureLocation `json:"departureLocation"`
	AlertType              *domain.AlertType         `json:"alertType"`
	Priority               *domain.AlertPriority     `json:"priority"`
	Confidence             *float64                  `json:"confidence"`
	Source                 *domain.PredictionSource  `json:"source"`
}

// FromDomain конвертирует рекомендацию в HTTP ответ
func FromDomain(bookingID int64, rec *domain.DepartureRecommendation) *DepartureResponse {
	if rec == nil {
		return &DepartureResponse{BookingID: bookingID}
	}
	return &DepartureResponse{
		BookingID:              bookingID,
		Available:              true,
		SalonName:              rec.SalonName,
		StaffName:              rec.StaffName,
		OriginalBookingTime:    &rec.OriginalBookingTime,
		PredictedStartTime:     &rec.PredictedStartTime,
		DelayMinutes:           &rec.DelayMinutes,
		DelayReason:            &rec.DelayReason,
		SuggestedDepartureTime: &rec.SuggestedDepartureTime,
		TravelMinutes:          &rec.TravelMinutes,
		BufferMinutes:          &rec.BufferMinutes,
		Location:               rec.Location,
		AlertType:              &rec.AlertType,
		Priority:               &rec.Priority,
		Confidence:             &rec.Confidence,
		Source:                 &rec.Source,
	}
}
