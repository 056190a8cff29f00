package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// ServiceTimingAnalytics aggregated timing of one service for a (day-of-week, hour) slot
// Upserted by (salon, service, day_of_week, hour_block)
type ServiceTimingAnalytics struct {
	ID                    int64
	SalonID               int64
	ServiceID             int64
	DayOfWeek             int // 0 = воскресенье
	HourBlock             int
	SampleCount           int
	AvgDurationMinutes    float64
	StdDevDurationMinutes float64
	MinDurationMinutes    int
	MaxDurationMinutes    int
	AvgOverrunMinutes     float64
	OverrunRate           float64
	ConfidenceScore       float64
	LastCalculatedAt      time.Time
}

// StaffPerformancePattern historical speed of a staff member (optionally per service)
// Upserted by (staff, service, day_of_week); nil service = all services
type StaffPerformancePattern struct {
	ID                   int64
	StaffID              int64
	SalonID              int64
	ServiceID            *int64
	DayOfWeek            *int
	SampleCount          int
	AvgDurationMinutes   float64
	SpeedFactor          float64
	ConsistencyScore     float64
	LateStartRate        float64
	AvgLateStartMinutes  float64
	MorningSpeedFactor   float64
	AfternoonSpeedFactor float64
	EveningSpeedFactor   float64
	LastCalculatedAt     time.Time
}

// TimeOfDayBucket part of the day used by speed factors
type TimeOfDayBucket string

const (
	BucketMorning   TimeOfDayBucket = "morning"
	BucketAfternoon TimeOfDayBucket = "afternoon"
	BucketEvening   TimeOfDayBucket = "evening"
)

// BucketFor returns morning (<12:00), afternoon (12:00-17:00) or evening (>=17:00)
func BucketFor(t types.TimeOfDay) TimeOfDayBucket {
	switch h := t.Hour(); {
	case h < 12:
		return BucketMorning
	case h < 17:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// SpeedFactorFor returns the time-of-day speed factor for the bucket; 1 if unknown
func (p *StaffPerformancePattern) SpeedFactorFor(bucket TimeOfDayBucket) float64 {
	var f float64
	switch bucket {
	case BucketMorning:
		f = p.MorningSpeedFactor
	case BucketAfternoon:
		f = p.AfternoonSpeedFactor
	case BucketEvening:
		f = p.EveningSpeedFactor
	}
	if f <= 0 {
		return 1
	}
	return f
}

// CustomerTimingPreference per-customer arrival habits
type CustomerTimingPreference struct {
	CustomerID               int64
	VisitCount               int
	AvgArrivalMinutesBefore  float64
	LateArrivalRate          float64
	AvgLateMinutes           float64
	RecommendedBufferMinutes int
	ConfidenceScore          float64
	UpdatedAt                time.Time
}

// BufferRecommendation result of the personalized buffer function
type BufferRecommendation struct {
	BufferMinutes int
	Confidence    float64
	Reason        string
}

// PredictionType what a prediction log entry refers to
type PredictionType string

const (
	PredictionStartTime PredictionType = "start_time"
)

// PredictionAccuracyLog append-only comparison of a prediction with the outcome
type PredictionAccuracyLog struct {
	ID                       int64
	BookingID                int64
	SalonID                  int64
	StaffID                  *int64
	PredictionType           PredictionType
	PredictedStartTime       types.TimeOfDay
	PredictedDelayMinutes    int
	PredictedDurationMinutes *int
	ActualStartTime          *types.TimeOfDay
	ActualDelayMinutes       *int
	ActualDurationMinutes    *int
	ErrorMinutes             *int
	Source                   PredictionSource
	FactorsUsed              CalculationSnapshot
	CreatedAt                time.Time
}
