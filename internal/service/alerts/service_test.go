package alerts

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	alertRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/alert"
	bookingRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/booking"
	salonRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/salon"
	staffRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/staff"
	"github.com/m04kA/SMC-QueueService/internal/service/departure"
	"github.com/m04kA/SMC-QueueService/pkg/ptr"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

var (
	today = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	now   = time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)
)

// memAlerts хранилище уведомлений для сервиса уведомлений и калькулятора выезда
type memAlerts struct {
	byID    map[int64]*domain.DepartureAlert
	nextID  int64
	updates int
}

func newMemAlerts() *memAlerts {
	return &memAlerts{byID: map[int64]*domain.DepartureAlert{}}
}

func (m *memAlerts) put(a *domain.DepartureAlert) *domain.DepartureAlert {
	if a.ID == 0 {
		m.nextID++
		a.ID = m.nextID
	}
	cp := *a
	m.byID[a.ID] = &cp
	return a
}

func (m *memAlerts) GetByID(_ context.Context, id int64) (*domain.DepartureAlert, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, alertRepo.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAlerts) GetByBookingAndDate(_ context.Context, bookingID int64, date time.Time) (*domain.DepartureAlert, error) {
	for _, a := range m.byID {
		if a.BookingID == bookingID && domain.SameDay(a.BookingDate, date) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, alertRepo.ErrAlertNotFound
}

func (m *memAlerts) Create(_ context.Context, a *domain.DepartureAlert) (*domain.DepartureAlert, error) {
	return m.put(a), nil
}

func (m *memAlerts) Update(_ context.Context, a *domain.DepartureAlert) error {
	m.updates++
	m.put(a)
	return nil
}

func (m *memAlerts) MarkSent(_ context.Context, id int64, channel domain.NotificationChannel, messageID *string, sentAt time.Time) error {
	a, ok := m.byID[id]
	if !ok || a.NotificationSent {
		return alertRepo.ErrAlreadySent
	}
	a.NotificationSent = true
	a.NotificationSentAt = &sentAt
	a.NotificationChannel = &channel
	a.NotificationMessageID = messageID
	return nil
}

func (m *memAlerts) Acknowledge(_ context.Context, id int64, response domain.CustomerResponse, actual *types.TimeOfDay, at time.Time) error {
	a, ok := m.byID[id]
	if !ok {
		return alertRepo.ErrAlertNotFound
	}
	a.CustomerAcknowledged = true
	a.AcknowledgedAt = &at
	a.CustomerResponse = &response
	a.ActualDepartureTime = actual
	return nil
}

func (m *memAlerts) ListPendingForDate(_ context.Context, date time.Time) ([]*domain.DepartureAlert, error) {
	out := make([]*domain.DepartureAlert, 0)
	for _, a := range m.byID {
		if domain.SameDay(a.BookingDate, date) && !a.NotificationSent && !a.CustomerAcknowledged {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBookings struct {
	bookings []*domain.Booking
}

func (m *memBookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, bookingRepo.ErrBookingNotFound
}

func (m *memBookings) ListAwaitingInWindow(_ context.Context, date time.Time, from, to types.TimeOfDay) ([]*domain.Booking, error) {
	out := make([]*domain.Booking, 0)
	for _, b := range m.bookings {
		if domain.SameDay(b.BookingDate, date) && b.IsAwaitingService() &&
			!b.StartTime.IsBefore(from) && !b.StartTime.IsAfter(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memSalons struct{}

func (memSalons) GetByID(_ context.Context, id int64) (*domain.Salon, error) {
	if id != 100 {
		return nil, salonRepo.ErrSalonNotFound
	}
	return &domain.Salon{ID: 100, Name: "Barber", IsActive: true}, nil
}

type memStaff struct{}

func (memStaff) GetByID(_ context.Context, id int64) (*domain.Staff, error) {
	if id != 3 {
		return nil, staffRepo.ErrStaffNotFound
	}
	return &domain.Staff{ID: 3, SalonID: 100, Name: "Anna", IsActive: true}, nil
}

type memSettings struct {
	prefs *domain.CustomerDeparturePreferences
}

func (m *memSettings) GetSalonSettingsOrDefault(_ context.Context, salonID int64) (*domain.SalonDepartureSettings, error) {
	return domain.DefaultSalonDepartureSettings(salonID), nil
}

func (m *memSettings) GetCustomerPreferencesOrDefault(_ context.Context, customerID int64) (*domain.CustomerDeparturePreferences, error) {
	if m.prefs != nil {
		return m.prefs, nil
	}
	return domain.DefaultCustomerDeparturePreferences(customerID), nil
}

type memLocations struct{}

func (memLocations) ListLocations(context.Context, int64) ([]*domain.CustomerLocation, error) {
	return nil, nil
}

type memNotifications struct {
	created []*domain.Notification
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.created = append(m.created, n)
	return nil
}

type gatewayMock struct{ mock.Mock }

func (m *gatewayMock) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	events map[int64][]domain.RealtimeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, customerID int64, event domain.RealtimeEvent) error {
	if p.events == nil {
		p.events = map[int64][]domain.RealtimeEvent{}
	}
	p.events[customerID] = append(p.events[customerID], event)
	return nil
}

type recordingMetrics struct {
	observed []string
}

func (m *recordingMetrics) ObserveNotification(channel, outcome string) {
	m.observed = append(m.observed, channel+":"+outcome)
}

// queueByBooking прогноз очереди с задержкой, заданной для каждой брони
type queueByBooking struct {
	delays map[int64]int
}

func (q *queueByBooking) GetPredictedStartTime(_ context.Context, bookingID int64) (*domain.QueuePrediction, error) {
	delay, ok := q.delays[bookingID]
	if !ok {
		return nil, nil
	}
	return &domain.QueuePrediction{
		BookingID: bookingID, SalonID: 100, StaffID: ptr.Ptr(int64(3)), StaffName: "Anna",
		DelayMinutes: delay, Confidence: domain.ConfidenceMedium, IsToday: true,
	}, nil
}

type noPerformance struct{}

func (noPerformance) GetEnhancedPrediction(context.Context, domain.EnhancementRequest) (*domain.Enhancement, error) {
	return nil, nil
}

func (noPerformance) GetPersonalizedBuffer(_ context.Context, _ int64, def int) (*domain.BufferRecommendation, error) {
	return &domain.BufferRecommendation{BufferMinutes: def}, nil
}

type basicTier struct{}

func (basicTier) IsPremium(context.Context, int64) bool { return false }

type passThroughTx struct{}

func (passThroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
func (passThroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
func (passThroughTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	alerts        *memAlerts
	bookings      *memBookings
	settings      *memSettings
	notifications *memNotifications
	gateway       *gatewayMock
	publisher     *recordingPublisher
	metrics       *recordingMetrics
	queue         *queueByBooking
	svc           *Service
}

func newFixture() *fixture {
	f := &fixture{
		alerts:        newMemAlerts(),
		bookings:      &memBookings{},
		settings:      &memSettings{},
		notifications: &memNotifications{},
		gateway:       &gatewayMock{},
		publisher:     &recordingPublisher{},
		metrics:       &recordingMetrics{},
		queue:         &queueByBooking{delays: map[int64]int{}},
	}
	calc := departure.NewService(f.bookings, memSalons{}, f.settings, memLocations{}, f.alerts, f.queue,
		noPerformance{}, basicTier{}, passThroughTx{}, domain.DefaultPolicy(), nopLogger{})
	f.svc = NewService(f.alerts, f.bookings, memSalons{}, memStaff{}, f.settings, f.notifications, calc,
		f.gateway, f.publisher, f.metrics, domain.DefaultPolicy(), nopLogger{})
	f.svc.timeProvider = fixedTime{t: now}
	return f
}

func (f *fixture) addAlert(departureAt string) *domain.DepartureAlert {
	return f.alerts.put(&domain.DepartureAlert{
		BookingID:              int64(len(f.alerts.byID) + 1),
		CustomerID:             7,
		SalonID:                100,
		StaffID:                ptr.Ptr(int64(3)),
		BookingDate:            today,
		OriginalBookingTime:    types.ParseTimeOfDayOrZero("14:00"),
		PredictedStartTime:     types.ParseTimeOfDayOrZero("14:25"),
		DelayMinutes:           25,
		SuggestedDepartureTime: types.ParseTimeOfDayOrZero(departureAt),
		AlertType:              domain.AlertDelayUpdate,
		Priority:               domain.PriorityHigh,
		Snapshot:               domain.CalculationSnapshot{StaffState: domain.StaffBusy},
	})
}

func (f *fixture) addBooking(id int64, start string, delay int) {
	f.bookings.bookings = append(f.bookings.bookings, &domain.Booking{
		ID: id, CustomerID: 7, SalonID: 100, StaffID: ptr.Ptr(int64(3)), ServiceID: 5, BookingDate: today,
		StartTime: types.ParseTimeOfDayOrZero(start), DurationMinutes: 30, Status: domain.StatusConfirmed,
	})
	f.queue.delays[id] = delay
}

func pushPrefs() *domain.CustomerDeparturePreferences {
	prefs := domain.DefaultCustomerDeparturePreferences(7)
	prefs.PushToken = ptr.Ptr("device-token")
	return prefs
}

func TestRender(t *testing.T) {
	alert := &domain.DepartureAlert{
		AlertType:              domain.AlertDelayUpdate,
		OriginalBookingTime:    types.ParseTimeOfDayOrZero("14:00"),
		PredictedStartTime:     types.ParseTimeOfDayOrZero("14:25"),
		SuggestedDepartureTime: types.ParseTimeOfDayOrZero("13:50"),
		DelayMinutes:           25,
	}

	title, body := render(alert, templateData{SalonName: "Barber"})
	assert.Equal(t, "Running 25 min behind", title)
	assert.Equal(t, "Barber is running about 25 min behind. Your 14:00 appointment is now expected at 14:25. Leave by 13:50.", body)

	alert.AlertType = domain.AlertStaffChange
	title, _ = render(alert, templateData{SalonName: "Barber"})
	assert.Equal(t, "Your appointment is with your specialist", title)

	alert.AlertType = domain.AlertInitialReminder
	_, body = render(alert, templateData{SalonName: "Barber", MinutesUntil: -5})
	assert.Contains(t, body, "Leave in 0 min")

	alert.AlertType = "unknown"
	title, _ = render(alert, templateData{})
	assert.Equal(t, "Right on schedule", title)
}

func TestRenderCoversEveryAlertType(t *testing.T) {
	for _, at := range []domain.AlertType{
		domain.AlertInitialReminder, domain.AlertOnTime, domain.AlertDelayUpdate,
		domain.AlertEarlierAvailable, domain.AlertStaffChange,
	} {
		_, ok := templates[at]
		assert.True(t, ok, "no template for %s", at)
	}
}

func TestSendDepartureNotification_Push(t *testing.T) {
	f := newFixture()
	f.settings.prefs = pushPrefs()
	alert := f.addAlert("13:35")
	f.gateway.On("Send", mock.Anything, mock.MatchedBy(func(m domain.OutboundMessage) bool {
		return m.Channel == domain.ChannelPush && m.Recipient == "device-token" && m.AlertID == alert.ID
	})).Return("msg-1", nil).Once()

	require.NoError(t, f.svc.SendDepartureNotification(context.Background(), alert.ID))

	stored := f.alerts.byID[alert.ID]
	assert.True(t, stored.NotificationSent)
	require.NotNil(t, stored.NotificationChannel)
	assert.Equal(t, domain.ChannelPush, *stored.NotificationChannel)
	assert.Equal(t, "msg-1", *stored.NotificationMessageID)

	require.Len(t, f.notifications.created, 1)
	n := f.notifications.created[0]
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, domain.NotificationTypeDeparture, n.Type)
	assert.Equal(t, domain.ChannelPush, n.Channel)
	assert.Contains(t, n.Message, "Barber")

	require.Len(t, f.publisher.events[7], 1)
	ev := f.publisher.events[7][0]
	assert.Equal(t, domain.RealtimeEventDepartureUpdate, ev.Type)
	assert.Equal(t, 25, ev.DelayMinutes)
	require.NotNil(t, ev.StaffName)
	assert.Equal(t, "Anna", *ev.StaffName)
	require.NotNil(t, ev.StaffStatus)
	assert.Equal(t, domain.StaffBusy, *ev.StaffStatus)

	assert.Contains(t, f.metrics.observed, "push:sent")
	f.gateway.AssertExpectations(t)
}

func TestSendDepartureNotification_AlreadySent(t *testing.T) {
	f := newFixture()
	alert := f.addAlert("13:35")
	f.alerts.byID[alert.ID].NotificationSent = true

	require.NoError(t, f.svc.SendDepartureNotification(context.Background(), alert.ID))

	assert.Empty(t, f.notifications.created)
	f.gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendDepartureNotification_GatewayFailureStillRecords(t *testing.T) {
	f := newFixture()
	f.settings.prefs = pushPrefs()
	alert := f.addAlert("13:35")
	f.gateway.On("Send", mock.Anything, mock.Anything).Return("", errors.New("gateway down"))

	require.NoError(t, f.svc.SendDepartureNotification(context.Background(), alert.ID))

	stored := f.alerts.byID[alert.ID]
	assert.True(t, stored.NotificationSent)
	assert.Equal(t, domain.ChannelInApp, *stored.NotificationChannel)
	assert.Nil(t, stored.NotificationMessageID)
	require.Len(t, f.notifications.created, 1)
	assert.Len(t, f.publisher.events[7], 1)
	assert.Contains(t, f.metrics.observed, "push:failed")
}

func TestSendDepartureNotification_QuietHours(t *testing.T) {
	f := newFixture()
	prefs := pushPrefs()
	prefs.QuietHoursStart = ptr.Ptr(types.ParseTimeOfDayOrZero("12:00"))
	prefs.QuietHoursEnd = ptr.Ptr(types.ParseTimeOfDayOrZero("14:00"))
	f.settings.prefs = prefs
	alert := f.addAlert("13:35")

	require.NoError(t, f.svc.SendDepartureNotification(context.Background(), alert.ID))

	f.gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, domain.ChannelInApp, *f.alerts.byID[alert.ID].NotificationChannel)
	assert.Contains(t, f.metrics.observed, "push:suppressed")
}

func TestSendDepartureNotification_NotFound(t *testing.T) {
	f := newFixture()
	err := f.svc.SendDepartureNotification(context.Background(), 404)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestProcessPendingAlerts_LeadWindow(t *testing.T) {
	f := newFixture()
	inWindow := f.addAlert("13:30") // через 30 минут
	tooEarly := f.addAlert("14:30") // через 90 минут, окно 60
	slightlyLate := f.addAlert("12:45")
	tooLate := f.addAlert("12:20") // 40 минут назад
	sent := f.addAlert("13:10")
	f.alerts.byID[sent.ID].NotificationSent = true

	result, err := f.svc.ProcessPendingAlerts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count(domain.EntityOK))
	assert.Equal(t, 2, result.Count(domain.EntitySkipped))
	assert.Equal(t, 2, result.Counters["sent"])

	assert.True(t, f.alerts.byID[inWindow.ID].NotificationSent)
	assert.True(t, f.alerts.byID[slightlyLate.ID].NotificationSent)
	assert.False(t, f.alerts.byID[tooEarly.ID].NotificationSent)
	assert.False(t, f.alerts.byID[tooLate.ID].NotificationSent)
	assert.Len(t, f.notifications.created, 2)
}

func TestRecalculateAndUpdateAlerts_StableTicks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addBooking(1, "14:00", 18)
	f.addBooking(2, "15:30", 0)
	f.addBooking(3, "16:30", 5) // за горизонтом 13:00-16:00

	first, err := f.svc.RecalculateAndUpdateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Counters[string(domain.OutcomeCreated)])
	assert.Len(t, f.alerts.byID, 2)

	second, err := f.svc.RecalculateAndUpdateAlerts(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Counters[string(domain.OutcomeUpdated)])
	assert.Zero(t, second.Counters[string(domain.OutcomeCreated)])
	assert.Equal(t, 2, second.Counters[string(domain.OutcomeUnchanged)])
	assert.Zero(t, f.alerts.updates)

	// новая бронь попала в горизонт, существующие не изменились
	f.addBooking(4, "15:45", 0)
	third, err := f.svc.RecalculateAndUpdateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Counters[string(domain.OutcomeCreated)])
	assert.Zero(t, third.Counters[string(domain.OutcomeUpdated)])

	f.queue.delays[1] = 26
	fourth, err := f.svc.RecalculateAndUpdateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fourth.Counters[string(domain.OutcomeUpdated)])
	assert.Equal(t, 1, f.alerts.updates)
}

func TestRecalculateAndUpdateAlerts_SkipsUnpredictable(t *testing.T) {
	f := newFixture()
	f.addBooking(1, "14:00", 0)
	delete(f.queue.delays, 1)

	result, err := f.svc.RecalculateAndUpdateAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(domain.EntitySkipped))
	assert.Empty(t, f.alerts.byID)
}

func TestRecalculateAndUpdateAlerts_HorizonStopsAtMidnight(t *testing.T) {
	f := newFixture()
	f.svc.timeProvider = fixedTime{t: time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC)}
	f.addBooking(1, "23:50", 0)
	f.addBooking(2, "00:30", 0)

	result, err := f.svc.RecalculateAndUpdateAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, int64(1), result.Results[0].ID)
}

func TestAcknowledgeAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid response", func(t *testing.T) {
		f := newFixture()
		alert := f.addAlert("13:30")
		_, err := f.svc.AcknowledgeAlert(ctx, alert.ID, 7, "maybe", nil)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AcknowledgeAlert(ctx, 404, 7, domain.ResponseAcknowledged, nil)
		assert.ErrorIs(t, err, ErrAlertNotFound)
	})

	t.Run("other customer", func(t *testing.T) {
		f := newFixture()
		alert := f.addAlert("13:30")
		_, err := f.svc.AcknowledgeAlert(ctx, alert.ID, 8, domain.ResponseAcknowledged, nil)
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.False(t, f.alerts.byID[alert.ID].CustomerAcknowledged)
	})

	t.Run("acknowledged", func(t *testing.T) {
		f := newFixture()
		alert := f.addAlert("13:30")
		left := types.ParseTimeOfDayOrZero("13:40")

		got, err := f.svc.AcknowledgeAlert(ctx, alert.ID, 7, domain.ResponseWillBeLate, &left)
		require.NoError(t, err)
		assert.True(t, got.CustomerAcknowledged)
		assert.Equal(t, domain.ResponseWillBeLate, *got.CustomerResponse)

		stored := f.alerts.byID[alert.ID]
		assert.True(t, stored.CustomerAcknowledged)
		assert.Equal(t, "13:40", stored.ActualDepartureTime.String())
		assert.Equal(t, now, *stored.AcknowledgedAt)

		pending, err := f.alerts.ListPendingForDate(ctx, today)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
