package get_prediction

import (
	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// PredictionResponse HTTP response model; при недоступном прогнозе заполнены только bookingId и available
type PredictionResponse struct {
	BookingID              int64              `json:"bookingId"`
	Available              bool               `json:"available"`
	OriginalTime           *types.TimeOfDay   `json:"originalTime"`
	PredictedStartTime     *types.TimeOfDay   `json:"predictedStartTime"`
	DelayMinutes           *int               `json:"delayMinutes"`
	CurrentJobDelayMinutes *int               `json:"currentJobDelayMinutes"`
	QueuePosition          *int               `json:"queuePosition"`
	Confidence             *float64           `json:"confidence"`
	StaffID                *int64             `json:"staffId"`
	StaffName              *string            `json:"staffName"`
	StaffStatus            *domain.StaffState `json:"staffStatus"`
	IsToday                bool               `json:"isToday"`
}

// FromDomain конвертирует прогноз в HTTP ответ
func FromDomain(bookingID int64, p *domain.QueuePrediction) *PredictionResponse {
	if p == nil {
		return &PredictionResponse{BookingID: bookingID}
	}
	resp := &PredictionResponse{
		BookingID:              bookingID,
		Available:              true,
		OriginalTime:           &p.OriginalTime,
		PredictedStartTime:     &p.PredictedStartTime,
		DelayMinutes:           &p.DelayMinutes,
		CurrentJobDelayMinutes: &p.CurrentJobDelayMinutes,
		QueuePosition:          &p.QueuePosition,
		Confidence:             &p.Confidence,
		StaffID:                p.StaffID,
		IsToday:                p.IsToday,
	}
	if p.StaffName != "" {
		resp.StaffName = &p.StaffName
	}
	if p.StaffState != "" {
		resp.StaffStatus = &p.StaffState
	}
	return resp
}
