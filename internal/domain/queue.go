package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// StaffQueueStatus live queue state of one staff member on one date
// Superseded (upserted) per (staff, date) on every recalculation
type StaffQueueStatus struct {
	ID                     int64
	StaffID                int64
	SalonID                int64
	StaffName              string
	StatusDate             time.Time
	Status                 StaffState
	CurrentBookingID       *int64
	AppointmentsAhead      int
	CurrentJobDelayMinutes int // часть задержки от текущей услуги
	EstimatedDelayMinutes  int // полная задержка: текущая услуга + рост длительности очереди
	NextAvailableAt        *time.Time
	AvgOverrunPercent      float64
	UpdatedAt              time.Time
}

// SalonStatus overall salon punctuality classification
type SalonStatus string

const (
	SalonOnTime        SalonStatus = "on_time"
	SalonSlightDelay   SalonStatus = "slight_delay"
	SalonRunningBehind SalonStatus = "running_behind"
)

// SalonQueueStatus aggregated view over all active staff of a salon
type SalonQueueStatus struct {
	SalonID             int64
	Date                time.Time
	Staff               []*StaffQueueStatus
	AverageDelayMinutes float64
	MaxDelayMinutes     int
	TotalQueued         int
	Status              SalonStatus
}

// ClassifySalonStatus maps an average delay to a salon status
func ClassifySalonStatus(avgDelay float64, p Policy) SalonStatus {
	switch {
	case avgDelay >= float64(p.SalonRunningBehindMinutes):
		return SalonRunningBehind
	case avgDelay >= float64(p.SalonSlightDelayMinutes):
		return SalonSlightDelay
	default:
		return SalonOnTime
	}
}

// QueuePrediction base heuristic prediction for one booking
type QueuePrediction struct {
	BookingID              int64
	SalonID                int64
	StaffID                *int64
	StaffName              string
	StaffState             StaffState
	BookingDate            time.Time
	OriginalTime           types.TimeOfDay
	PredictedStartTime     types.TimeOfDay
	DelayMinutes           int
	CurrentJobDelayMinutes int
	QueuePosition          int
	DurationMinutes        int
	Confidence             float64
	IsToday                bool
}
