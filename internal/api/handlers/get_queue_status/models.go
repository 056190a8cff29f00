package get_queue_status

import (
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// StaffStatusResponse состояние очереди одного мастера
type StaffStatusResponse struct {
	StaffID                int64             `json:"staffId"`
	StaffName              string            `json:"staffName"`
	Status                 domain.StaffState `json:"status"`
	CurrentBookingID       *int64            `json:"currentBookingId"`
	AppointmentsAhead      int               `json:"appointmentsAhead"`
	CurrentJobDelayMinutes int               `json:"currentJobDelayMinutes"`
	EstimatedDelayMinutes  int               `json:"estimatedDelayMinutes"`
	NextAvailableAt        *time.Time        `json:"nextAvailableAt"`
	AvgOverrunPercent      float64           `json:"avgOverrunPercent"`
}

// QueueStatusResponse HTTP response model
type QueueStatusResponse struct {
	SalonID             int64                 `json:"salonId"`
	Date                string                `json:"date"`
	Status              domain.SalonStatus    `json:"status"`
	AverageDelayMinutes float64               `json:"averageDelayMinutes"`
	MaxDelayMinutes     int                   `json:"maxDelayMinutes"`
	TotalQueued         int                   `json:"totalQueued"`
	Staff               []StaffStatusResponse `json:"staff"`
}

// FromDomain конвертирует состояние салона в HTTP ответ
func FromDomain(s *domain.SalonQueueStatus) *QueueStatusResponse {
	resp := &QueueStatusResponse{
		SalonID:             s.SalonID,
		Date:                s.Date.Format(domain.DateFormat),
		Status:              s.Status,
		AverageDelayMinutes: s.AverageDelayMinutes,
		MaxDelayMinutes:     s.MaxDelayMinutes,
		TotalQueued:         s.TotalQueued,
		Staff:               make([]StaffStatusResponse, 0, len(s.Staff)),
	}
	for _, st := range s.Staff {
		resp.Staff = append(resp.Staff, StaffStatusResponse{
			StaffID:                st.StaffID,
			StaffName:              st.StaffName,
			Status:                 st.Status,
			CurrentBookingID:       st.CurrentBookingID,
			AppointmentsAhead:      st.AppointmentsAhead,
			CurrentJobDelayMinutes: st.CurrentJobDelayMinutes,
			EstimatedDelayMinutes:  st.EstimatedDelayMinutes,
			NextAvailableAt:        st.NextAvailableAt,
			AvgOverrunPercent:      st.AvgOverrunPercent,
		})
	}
	return resp
}
