package domain

import "time"

// Default settings values
const (
	DefaultMinDelayToNotifyMinutes = 15
	DefaultBufferMinutes           = 15
	DefaultFirstAlertMinutesBefore = 60
	DefaultTravelMinutes           = 20
)

// Queue estimator confidence tiers
const (
	ConfidenceFutureBooking = 0.5
	ConfidenceHigh          = 0.9
	ConfidenceMedium        = 0.7
	ConfidenceLow           = 0.5
	ConfidenceAnyStaff      = 0.6

	HighConfidenceMaxDelay   = 5
	MediumConfidenceMaxDelay = 15
)

// Travel estimation
const (
	MinTravelMinutes = 10
	MaxTravelMinutes = 120

	ShortTripKm        = 5.0
	MediumTripKm       = 15.0
	ShortTripSpeedKmh  = 20.0
	MediumTripSpeedKmh = 25.0
	LongTripSpeedKmh   = 30.0
)

// Performance predictor constants
const (
	StaffConfidenceWeight   = 0.6
	ServiceConfidenceWeight = 0.4
	QueuePositionInflation  = 0.02
	MinConsistencyScore     = 0.3

	AnalyticsWindowDays          = 30
	MinServiceTimingSamples      = 3
	MinStaffPatternSamples       = 5
	CustomerPreferenceSaturation = 10
	MinVisitsForPersonalBuffer   = 3
	DefaultBufferConfidence      = 0.3
	LateCustomerRate             = 0.3
	LateCustomerExtraMinutes     = 10
	MaxPersonalBufferMinutes     = 30
	EarlyArrivalMinutes          = 20
	MinPersonalBufferMinutes     = 10
	EarlyArrivalReductionMinutes = 5
	PunctualLateRate             = 0.1
	PunctualBufferMinutes        = 12
)

// DayOfWeekMultipliers duration multipliers by weekday: weekends and Friday run slower
var DayOfWeekMultipliers = map[time.Weekday]float64{
	time.Sunday:    1.10,
	time.Monday:    1.00,
	time.Tuesday:   0.95,
	time.Wednesday: 0.95,
	time.Thursday:  1.00,
	time.Friday:    1.05,
	time.Saturday:  1.15,
}

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// AwaitingStatuses bookings still waiting for service
var AwaitingStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
}

// Policy tunable thresholds of the engine
type Policy struct {
	SignificantChangeMinutes   int
	DelayHighMinutes           int
	DelayUrgentMinutes         int
	SalonSlightDelayMinutes    int
	SalonRunningBehindMinutes  int
	EnhancementConfidenceFloor float64
	SampleSaturation           int
	PendingAlertLateWindow     int
	RecalculationHorizon       int
	AccuracyRetentionDays      int
	DefaultTravelMinutes       int
	DefaultBufferMinutes       int
}

// DefaultPolicy reference policy values
func DefaultPolicy() Policy {
	return Policy{
		SignificantChangeMinutes:   5,
		DelayHighMinutes:           20,
		DelayUrgentMinutes:         40,
		SalonSlightDelayMinutes:    10,
		SalonRunningBehindMinutes:  20,
		EnhancementConfidenceFloor: 0.4,
		SampleSaturation:           50,
		PendingAlertLateWindow:     30,
		RecalculationHorizon:       180,
		AccuracyRetentionDays:      90,
		DefaultTravelMinutes:       DefaultTravelMinutes,
		DefaultBufferMinutes:       DefaultBufferMinutes,
	}
}
