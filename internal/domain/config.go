package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// SalonDepartureSettings departure-alert configuration of a salon
type SalonDepartureSettings struct {
	SalonID                 int64
	Enabled                 bool
	MinDelayToNotifyMinutes int
	DefaultBufferMinutes    int
	FirstAlertMinutesBefore int // окно, в котором отправляется первое уведомление до выезда
	UpdatedAt               time.Time
}

// DefaultSalonDepartureSettings settings applied when a salon has no row
func DefaultSalonDepartureSettings(salonID int64) *SalonDepartureSettings {
	return &SalonDepartureSettings{
		SalonID:                 salonID,
		Enabled:                 true,
		MinDelayToNotifyMinutes: DefaultMinDelayToNotifyMinutes,
		DefaultBufferMinutes:    DefaultBufferMinutes,
		FirstAlertMinutesBefore: DefaultFirstAlertMinutesBefore,
	}
}

// NotificationChannel outbound channel preferred by the customer
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelPush  NotificationChannel = "push"
	ChannelSMS   NotificationChannel = "sms"
)

// IsExternal returns true for channels delivered through the gateway
func (c NotificationChannel) IsExternal() bool {
	return c == ChannelPush || c == ChannelSMS
}

// CustomerDeparturePreferences customer opt-in and delivery preferences
type CustomerDeparturePreferences struct {
	CustomerID             int64
	Enabled                bool
	PreferredBufferMinutes *int
	PreferredChannel       NotificationChannel
	PreferredLocationLabel *string
	QuietHoursStart        *types.TimeOfDay
	QuietHoursEnd          *types.TimeOfDay
	PushToken              *string
	Phone                  *string
}

// DefaultCustomerDeparturePreferences preferences applied when a customer has no row
func DefaultCustomerDeparturePreferences(customerID int64) *CustomerDeparturePreferences {
	return &CustomerDeparturePreferences{
		CustomerID:       customerID,
		Enabled:          true,
		PreferredChannel: ChannelPush,
	}
}

// InQuietHours returns true if t falls into the customer's quiet hours
func (p *CustomerDeparturePreferences) InQuietHours(t types.TimeOfDay) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	return t.Between(*p.QuietHoursStart, *p.QuietHoursEnd)
}

// Recipient returns the gateway address for the channel
func (p *CustomerDeparturePreferences) Recipient(channel NotificationChannel) (string, bool) {
	switch channel {
	case ChannelPush:
		if p.PushToken != nil && *p.PushToken != "" {
			return *p.PushToken, true
		}
	case ChannelSMS:
		if p.Phone != nil && *p.Phone != "" {
			return *p.Phone, true
		}
	}
	return "", false
}

// CustomerLocation saved customer location
type CustomerLocation struct {
	ID         int64
	CustomerID int64
	Label      string
	Latitude   *float64
	Longitude  *float64
	IsDefault  bool
}

// HasCoordinates returns true if the location has coordinates
func (l *CustomerLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ToDepartureLocation converts the saved location to the alert representation
func (l *CustomerLocation) ToDepartureLocation() *DepartureLocation {
	return &DepartureLocation{Label: l.Label, Latitude: l.Latitude, Longitude: l.Longitude}
}
