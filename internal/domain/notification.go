package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// NotificationType in-app notification category
const NotificationTypeDeparture = "departure_alert"

// Notification in-app notification record shown in the customer's inbox
type Notification struct {
	ID         string
	CustomerID int64
	Type       string
	Title      string
	Message    string
	BookingID  *int64
	AlertID    *int64
	Channel    NotificationChannel
	ExternalID *string
	CreatedAt  time.Time
}

// RealtimeEvent payload pushed to the customer's live channel
type RealtimeEvent struct {
	Type                   string          `json:"type"`
	BookingID              int64           `json:"bookingId"`
	PredictedStartTime     types.TimeOfDay `json:"predictedStartTime"`
	DelayMinutes           int             `json:"delayMinutes"`
	SuggestedDepartureTime types.TimeOfDay `json:"suggestedDepartureTime"`
	StaffName              *string         `json:"staffName,omitempty"`
	StaffStatus            *StaffState     `json:"staffStatus,omitempty"`
	AlertType              AlertType       `json:"alertType"`
	Priority               AlertPriority   `json:"priority"`
}

// RealtimeEventDepartureUpdate type of the departure status event
const RealtimeEventDepartureUpdate = "departure_update"

// OutboundMessage message handed to the push/SMS gateway
type OutboundMessage struct {
	Channel   NotificationChannel
	Recipient string
	Title     string
	Body      string
	BookingID int64
	AlertID   int64
}
