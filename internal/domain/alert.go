package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// AlertType classification of a departure alert
type AlertType string

const (
	AlertInitialReminder  AlertType = "initial_reminder"
	AlertOnTime           AlertType = "on_time"
	AlertDelayUpdate      AlertType = "delay_update"
	AlertEarlierAvailable AlertType = "earlier_available"
	AlertStaffChange      AlertType = "staff_change"
)

// AlertPriority urgency of a departure alert
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityNormal AlertPriority = "normal"
	PriorityHigh   AlertPriority = "high"
	PriorityUrgent AlertPriority = "urgent"
)

// DelayReason tag explaining where the delay comes from
type DelayReason string

const (
	DelayNone              DelayReason = "none"
	DelayCurrentService    DelayReason = "current_service_overrun"
	DelayQueueBacklog      DelayReason = "queue_backlog"
	DelayHistoricalPattern DelayReason = "historical_pattern"
)

// CustomerResponse customer acknowledgment of an alert
type CustomerResponse string

const (
	ResponseAcknowledged CustomerResponse = "acknowledged"
	ResponseWillBeLate   CustomerResponse = "will_be_late"
	ResponseReschedule   CustomerResponse = "reschedule"
	ResponseCancel       CustomerResponse = "cancel"
)

// IsValid returns true for a known response
func (r CustomerResponse) IsValid() bool {
	switch r {
	case ResponseAcknowledged, ResponseWillBeLate, ResponseReschedule, ResponseCancel:
		return true
	}
	return false
}

// DepartureAlert persisted recommendation and notification state for one booking on one date
// Unique by (booking_id, booking_date)
type DepartureAlert struct {
	ID                     int64
	BookingID              int64
	CustomerID             int64
	SalonID                int64
	StaffID                *int64
	BookingDate            time.Time
	OriginalBookingTime    types.TimeOfDay
	PredictedStartTime     types.TimeOfDay
	DelayMinutes           int
	DelayReason            DelayReason
	SuggestedDepartureTime types.TimeOfDay
	EstimatedTravelMinutes int
	BufferMinutes          int
	DepartureLocation      *DepartureLocation
	AlertType              AlertType
	Priority               AlertPriority
	Snapshot               CalculationSnapshot

	NotificationSent      bool
	NotificationSentAt    *time.Time
	NotificationChannel   *NotificationChannel
	NotificationMessageID *string

	CustomerAcknowledged bool
	AcknowledgedAt       *time.Time
	CustomerResponse     *CustomerResponse
	ActualDepartureTime  *types.TimeOfDay

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Classification returns the alert type computed from the delay, before any forced re-notification type
func (a *DepartureAlert) Classification() AlertType {
	if a.Snapshot.Classification != "" {
		return a.Snapshot.Classification
	}
	return a.AlertType
}

// IsOwnedBy returns true if the alert belongs to the customer
func (a *DepartureAlert) IsOwnedBy(customerID int64) bool {
	return a.CustomerID == customerID
}

// DepartureLocation where the customer is expected to leave from
type DepartureLocation struct {
	Label     string   `json:"label"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// DepartureRecommendation output of the departure calculator for one booking
type DepartureRecommendation struct {
	BookingID              int64
	CustomerID             int64
	SalonID                int64
	SalonName              string
	StaffID                *int64
	StaffName              string
	StaffState             StaffState
	BookingDate            time.Time
	OriginalBookingTime    types.TimeOfDay
	PredictedStartTime     types.TimeOfDay
	DelayMinutes           int
	DelayReason            DelayReason
	SuggestedDepartureTime types.TimeOfDay
	TravelMinutes          int
	BufferMinutes          int
	Location               *DepartureLocation
	AlertType              AlertType
	Priority               AlertPriority
	Confidence             float64
	Source                 PredictionSource
	Snapshot               CalculationSnapshot
}

// CalculationSnapshot structured copy of the inputs used for a recommendation
type CalculationSnapshot struct {
	QueueDelayMinutes      int                 `json:"queue_delay_minutes"`
	QueueConfidence        float64             `json:"queue_confidence"`
	QueuePosition          int                 `json:"queue_position"`
	StaffState             StaffState          `json:"staff_state,omitempty"`
	CurrentJobDelayMinutes int                 `json:"current_job_delay_minutes"`
	DurationMinutes        int                 `json:"duration_minutes"`
	Enhancement            *EnhancementFactors `json:"enhancement,omitempty"`
	EnhancedDelayMinutes   *int                `json:"enhanced_delay_minutes,omitempty"`
	EnhancedConfidence     *float64            `json:"enhanced_confidence,omitempty"`
	Source                 PredictionSource    `json:"source"`
	DistanceKm             *float64            `json:"distance_km,omitempty"`
	TravelMinutes          int                 `json:"travel_minutes"`
	TravelEstimated        bool                `json:"travel_estimated"`
	BufferMinutes          int                 `json:"buffer_minutes"`
	BufferSource           string              `json:"buffer_source"`
	MinDelayToNotify       int                 `json:"min_delay_to_notify"`
	Classification         AlertType           `json:"classification,omitempty"`
	CalculatedAt           time.Time           `json:"calculated_at"`
}

// Value реализует driver.Valuer (JSONB передаётся строкой)
func (s CalculationSnapshot) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan реализует sql.Scanner (JSONB)
func (s *CalculationSnapshot) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = CalculationSnapshot{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("domain: unsupported snapshot type %T", src)
	}
	if len(raw) == 0 {
		*s = CalculationSnapshot{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Value реализует driver.Valuer (JSONB), nil location пишется как NULL
func (l *DepartureLocation) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan реализует sql.Scanner (JSONB)
func (l *DepartureLocation) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("domain: unsupported departure location type")
	}
}

// ClassifyDelay maps the predicted delay to an alert type and priority.
// Delays below the salon's notify threshold are reported as on-time with low priority.
func ClassifyDelay(delayMinutes, minDelayToNotify int, p Policy) (AlertType, AlertPriority) {
	switch {
	case delayMinutes <= 0:
		return AlertOnTime, PriorityNormal
	case delayMinutes < minDelayToNotify:
		return AlertOnTime, PriorityLow
	case delayMinutes < p.DelayHighMinutes:
		return AlertDelayUpdate, PriorityNormal
	case delayMinutes < p.DelayUrgentMinutes:
		return AlertDelayUpdate, PriorityHigh
	default:
		return AlertDelayUpdate, PriorityUrgent
	}
}

// IsSignificantChange is the only gate that allows a stored alert to be overwritten
func IsSignificantChange(stored *DepartureAlert, rec *DepartureRecommendation, thresholdMinutes int) bool {
	diff := rec.DelayMinutes - stored.DelayMinutes
	if diff < 0 {
		diff = -diff
	}
	return diff >= thresholdMinutes || rec.AlertType != stored.Classification()
}

// AlertOutcome result of a create-or-update call
type AlertOutcome string

const (
	OutcomeCreated   AlertOutcome = "created"
	OutcomeUpdated   AlertOutcome = "updated"
	OutcomeUnchanged AlertOutcome = "unchanged"
	OutcomeSkipped   AlertOutcome = "skipped"
)
