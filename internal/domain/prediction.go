package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// PredictionSource which tier produced the effective estimate
type PredictionSource string

const (
	SourceQueue    PredictionSource = "queue"
	SourceEnhanced PredictionSource = "enhanced"
)

// EnhancementFactors inputs of the historical-pattern model, kept for the alert snapshot
type EnhancementFactors struct {
	SpeedFactor              float64 `json:"speed_factor"`
	TimeOfDayFactor          float64 `json:"time_of_day_factor"`
	DayOfWeekMultiplier      float64 `json:"day_of_week_multiplier"`
	HistoricalOverrunMinutes float64 `json:"historical_overrun_minutes"`
	QueuePositionFactor      float64 `json:"queue_position_factor"`
	ConsistencyScore         float64 `json:"consistency_score"`
	StaffSampleCount         int     `json:"staff_sample_count"`
	ServiceSampleCount       int     `json:"service_sample_count"`
}

// EnhancementRequest inputs of the historical-pattern model for one booking
type EnhancementRequest struct {
	SalonID                int64
	StaffID                *int64
	ServiceID              int64
	BookingDate            time.Time
	StartTime              types.TimeOfDay
	QueuePosition          int
	CurrentJobDelayMinutes int
	DurationMinutes        int
	PremiumChecked         bool // тариф салона уже проверен вызывающей стороной
}

// Enhancement optional refinement produced from historical performance patterns
type Enhancement struct {
	PredictedDelayMinutes    int
	PredictedDurationMinutes int
	Confidence               float64
	Factors                  EnhancementFactors
}

// Estimate effective delay after merging the base prediction with an optional enhancement
type Estimate struct {
	DelayMinutes    int
	DurationMinutes int
	Confidence      float64
	Source          PredictionSource
}

// MergePrediction picks the effective estimate.
// The enhancement overrides the base only when its confidence is above the floor
// and above the base prediction's own confidence.
func MergePrediction(base *QueuePrediction, enh *Enhancement, confidenceFloor float64) Estimate {
	est := Estimate{
		DelayMinutes:    base.DelayMinutes,
		DurationMinutes: base.DurationMinutes,
		Confidence:      base.Confidence,
		Source:          SourceQueue,
	}
	if enh == nil {
		return est
	}
	if enh.Confidence > confidenceFloor && enh.Confidence > base.Confidence {
		est.DelayMinutes = enh.PredictedDelayMinutes
		if enh.PredictedDurationMinutes > 0 {
			est.DurationMinutes = enh.PredictedDurationMinutes
		}
		est.Confidence = enh.Confidence
		est.Source = SourceEnhanced
	}
	if est.DelayMinutes < 0 {
		est.DelayMinutes = 0
	}
	return est
}

// ClampConfidence keeps a confidence value inside [0, 1]
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SampleConfidence saturating confidence from a sample count
func SampleConfidence(samples, saturation int) float64 {
	if saturation <= 0 || samples <= 0 {
		return 0
	}
	return ClampConfidence(float64(samples) / float64(saturation))
}
