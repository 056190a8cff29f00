package domain

import (
	"time"

	"github.com/m04kA/SMC-QueueService/pkg/types"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending             BookingStatus = "pending"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusInProgress          BookingStatus = "in_progress"
	StatusCompleted           BookingStatus = "completed"
	StatusCancelledByCustomer BookingStatus = "cancelled_by_customer"
	StatusCancelledBySalon    BookingStatus = "cancelled_by_salon"
	StatusNoShow              BookingStatus = "no_show"
)

// Booking represents a salon appointment (read-only, owned by the booking layer)
type Booking struct {
	ID              int64
	CustomerID      int64
	SalonID         int64
	StaffID         *int64 // nil = любой свободный мастер
	ServiceID       int64
	BookingDate     time.Time
	StartTime       types.TimeOfDay
	DurationMinutes int
	Status          BookingStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAwaitingService returns true if the booking is still waiting in the queue
func (b *Booking) IsAwaitingService() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// HasStaff returns true if a staff member is assigned to the booking
func (b *Booking) HasStaff() bool {
	return b.StaffID != nil
}

// StaffState current state of a staff member
type StaffState string

const (
	StaffAvailable StaffState = "available"
	StaffBusy      StaffState = "busy"
	StaffBreak     StaffState = "break"
	StaffOffline   StaffState = "offline"
)

// Staff represents a salon staff member
type Staff struct {
	ID           int64
	SalonID      int64
	Name         string
	IsActive     bool
	CurrentState StaffState // состояние из каталога (available/break/offline), busy вычисляется по текущей услуге
}

// Salon represents a salon
type Salon struct {
	ID        int64
	Name      string
	IsActive  bool
	Latitude  *float64
	Longitude *float64
}

// HasCoordinates returns true if the salon location is known
func (s *Salon) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// JobStatus status of a service execution record
type JobStatus string

const (
	JobWaiting    JobStatus = "waiting"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
)

// JobRecord is one execution of a booked service: check-in, start and completion
type JobRecord struct {
	ID                       int64
	BookingID                int64
	SalonID                  int64
	StaffID                  int64
	ServiceID                int64
	CustomerID               int64
	BookingDate              time.Time
	ScheduledStart           types.TimeOfDay
	Status                   JobStatus
	CheckedInAt              *time.Time
	StartedAt                *time.Time
	CompletedAt              *time.Time
	EstimatedDurationMinutes *int
	ActualDurationMinutes    *int
}

// HasDurations returns true if both estimated and actual durations are known
func (j *JobRecord) HasDurations() bool {
	return j.EstimatedDurationMinutes != nil && *j.EstimatedDurationMinutes > 0 &&
		j.ActualDurationMinutes != nil
}

// OverrunRatio returns (actual - estimated) / estimated
func (j *JobRecord) OverrunRatio() float64 {
	if !j.HasDurations() {
		return 0
	}
	est := float64(*j.EstimatedDurationMinutes)
	return (float64(*j.ActualDurationMinutes) - est) / est
}

// SpeedRatio returns actual / estimated
func (j *JobRecord) SpeedRatio() float64 {
	if !j.HasDurations() {
		return 1
	}
	return float64(*j.ActualDurationMinutes) / float64(*j.EstimatedDurationMinutes)
}

// LateStartMinutes returns how many minutes after the scheduled time the service started
func (j *JobRecord) LateStartMinutes() (int, bool) {
	if j.StartedAt == nil {
		return 0, false
	}
	return j.ScheduledStart.MinutesUntil(types.NewTimeOfDay(*j.StartedAt)), true
}

// ArrivalMinutesBefore returns how many minutes before the appointment the customer checked in
// Negative value means the customer was late
func (j *JobRecord) ArrivalMinutesBefore() (int, bool) {
	if j.CheckedInAt == nil {
		return 0, false
	}
	return types.NewTimeOfDay(*j.CheckedInAt).MinutesUntil(j.ScheduledStart), true
}

// SameDay returns true if two dates refer to the same calendar day
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateOnly truncates t to midnight in its location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
