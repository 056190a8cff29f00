package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	alertRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/alert"
	salonRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/salon"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

const (
	defaultSalonName = "the salon"
	lastMinuteOfDay  = 24*60 - 1
)

// Исход отправки для метрик
const (
	notifySent       = "sent"
	notifyFailed     = "failed"
	notifySuppressed = "suppressed"
)

// Service отправляет уведомления о выезде и обрабатывает ответы клиентов
type Service struct {
	alertRepo        AlertRepository
	bookingRepo      BookingRepository
	salonRepo        SalonRepository
	staffRepo        StaffRepository
	settingsRepo     SettingsRepository
	notificationRepo NotificationRepository
	departure        DepartureCalculator
	gateway          Gateway
	publisher        Publisher
	metrics          Metrics
	policy           domain.Policy
	timeProvider     TimeProvider
	logger           Logger
}

// NewService создает новый экземпляр сервиса уведомлений
func NewService(
	alertRepo AlertRepository,
	bookingRepo BookingRepository,
	salonRepo SalonRepository,
	staffRepo StaffRepository,
	settingsRepo SettingsRepository,
	notificationRepo NotificationRepository,
	departure DepartureCalculator,
	gateway Gateway,
	publisher Publisher,
	metrics Metrics,
	policy domain.Policy,
	logger Logger,
) *Service {
	return &Service{
		alertRepo:        alertRepo,
		bookingRepo:      bookingRepo,
		salonRepo:        salonRepo,
		staffRepo:        staffRepo,
		settingsRepo:     settingsRepo,
		notificationRepo: notificationRepo,
		departure:        departure,
		gateway:          gateway,
		publisher:        publisher,
		metrics:          metrics,
		policy:           policy,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// SendDepartureNotification отправляет уведомление по идентификатору
// Повторный вызов для уже отправленного уведомления ничего не делает
func (s *Service) SendDepartureNotification(ctx context.Context, alertID int64) error {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, alertRepo.ErrAlertNotFound) {
			return ErrAlertNotFound
		}
		s.logger.Error("SendDepartureNotification: failed to get alert id=%d: %v", alertID, err)
		return fmt.Errorf("%w: SendDepartureNotification - alert repository error: %v", ErrInternal, err)
	}
	return s.dispatch(ctx, alert)
}

func (s *Service) dispatch(ctx context.Context, alert *domain.DepartureAlert) error {
	if alert.NotificationSent {
		s.logger.Info("SendDepartureNotification: alert id=%d already sent", alert.ID)
		return nil
	}

	now := s.timeProvider.Now()
	// событие уходит клиенту при любом исходе доставки
	defer s.publish(ctx, alert)

	prefs, err := s.settingsRepo.GetCustomerPreferencesOrDefault(ctx, alert.CustomerID)
	if err != nil {
		s.logger.Error("SendDepartureNotification: failed to get preferences for customer=%d: %v", alert.CustomerID, err)
		return fmt.Errorf("%w: SendDepartureNotification - customer preferences error: %v", ErrInternal, err)
	}

	nowTOD := types.NewTimeOfDay(now)
	title, body := render(alert, templateData{
		SalonName:    s.salonName(ctx, alert.SalonID),
		StaffName:    s.staffName(ctx, alert.StaffID),
		MinutesUntil: nowTOD.MinutesUntil(alert.SuggestedDepartureTime),
	})

	channel := domain.ChannelInApp
	var messageID *string
	if prefs.PreferredChannel.IsExternal() {
		channel, messageID = s.sendExternal(ctx, alert, prefs, nowTOD, title, body)
	}

	bookingID, alertID := alert.BookingID, alert.ID
	notification := &domain.Notification{
		ID:         uuid.NewString(),
		CustomerID: alert.CustomerID,
		Type:       domain.NotificationTypeDeparture,
		Title:      title,
		Message:    body,
		BookingID:  &bookingID,
		AlertID:    &alertID,
		Channel:    channel,
		ExternalID: messageID,
		CreatedAt:  now,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.Error("SendDepartureNotification: failed to save in-app notification for alert=%d: %v", alert.ID, err)
		return fmt.Errorf("%w: SendDepartureNotification - notification repository error: %v", ErrInternal, err)
	}
	s.metrics.ObserveNotification(string(domain.ChannelInApp), notifySent)

	if err := s.alertRepo.MarkSent(ctx, alert.ID, channel, messageID, now); err != nil {
		if errors.Is(err, alertRepo.ErrAlreadySent) {
			s.logger.Info("SendDepartureNotification: alert id=%d marked sent concurrently", alert.ID)
			return nil
		}
		s.logger.Error("SendDepartureNotification: failed to mark alert id=%d sent: %v", alert.ID, err)
		return fmt.Errorf("%w: SendDepartureNotification - mark sent error: %v", ErrInternal, err)
	}

	alert.NotificationSent = true
	alert.NotificationSentAt = &now
	alert.NotificationChannel = &channel
	alert.NotificationMessageID = messageID

	s.logger.Info("SendDepartureNotification: alert id=%d booking=%d sent via %s type=%s",
		alert.ID, alert.BookingID, channel, alert.AlertType)
	return nil
}

// sendExternal отправляет push/SMS через шлюз
// Возвращает канал, через который уведомление реально ушло
func (s *Service) sendExternal(
	ctx context.Context,
	alert *domain.DepartureAlert,
	prefs *domain.CustomerDeparturePreferences,
	now types.TimeOfDay,
	title, body string,
) (domain.NotificationChannel, *string) {
	channel := prefs.PreferredChannel

	if prefs.InQuietHours(now) {
		s.logger.Info("SendDepartureNotification: quiet hours for customer=%d, %s suppressed", alert.CustomerID, channel)
		s.metrics.ObserveNotification(string(channel), notifySuppressed)
		return domain.ChannelInApp, nil
	}

	recipient, ok := prefs.Recipient(channel)
	if !ok {
		s.logger.Warn("SendDepartureNotification: no %s recipient for customer=%d", channel, alert.CustomerID)
		s.metrics.ObserveNotification(string(channel), notifySuppressed)
		return domain.ChannelInApp, nil
	}

	id, err := s.gateway.Send(ctx, domain.OutboundMessage{
		Channel:   channel,
		Recipient: recipient,
		Title:     title,
		Body:      body,
		BookingID: alert.BookingID,
		AlertID:   alert.ID,
	})
	if err != nil {
		// доставка best-effort, запись уведомления всё равно сохраняется
		s.logger.Error("SendDepartureNotification: gateway send failed for alert=%d channel=%s: %v", alert.ID, channel, err)
		s.metrics.ObserveNotification(string(channel), notifyFailed)
		return domain.ChannelInApp, nil
	}

	s.metrics.ObserveNotification(string(channel), notifySent)
	return channel, &id
}

func (s *Service) publish(ctx context.Context, alert *domain.DepartureAlert) {
	event := domain.RealtimeEvent{
		Type:                   domain.RealtimeEventDepartureUpdate,
		BookingID:              alert.BookingID,
		PredictedStartTime:     alert.PredictedStartTime,
		DelayMinutes:           alert.DelayMinutes,
		SuggestedDepartureTime: alert.SuggestedDepartureTime,
		AlertType:              alert.AlertType,
		Priority:               alert.Priority,
	}
	if alert.StaffID != nil {
		if name := s.staffName(ctx, alert.StaffID); name != "" {
			event.StaffName = &name
		}
	}
	if state := alert.Snapshot.StaffState; state != "" {
		event.StaffStatus = &state
	}

	if err := s.publisher.Publish(ctx, alert.CustomerID, event); err != nil {
		s.logger.Warn("SendDepartureNotification: realtime publish failed for customer=%d: %v", alert.CustomerID, err)
	}
}

func (s *Service) salonName(ctx context.Context, salonID int64) string {
	salon, err := s.salonRepo.GetByID(ctx, salonID)
	if err != nil {
		if !errors.Is(err, salonRepo.ErrSalonNotFound) {
			s.logger.Warn("SendDepartureNotification: failed to get salon=%d: %v", salonID, err)
		}
		return defaultSalonName
	}
	return salon.Name
}

func (s *Service) staffName(ctx context.Context, staffID *int64) string {
	if staffID == nil {
		return ""
	}
	staff, err := s.staffRepo.GetByID(ctx, *staffID)
	if err != nil {
		return ""
	}
	return staff.Name
}

// ProcessPendingAlerts отправляет неотправленные уведомления на сегодня,
// если до выезда осталось не больше окна первого уведомления и выезд прошёл не более 30 минут назад
func (s *Service) ProcessPendingAlerts(ctx context.Context) (*domain.BatchResult, error) {
	now := s.timeProvider.Now()
	result := domain.NewBatchResult("process_pending_alerts")

	pending, err := s.alertRepo.ListPendingForDate(ctx, domain.DateOnly(now))
	if err != nil {
		s.logger.Error("ProcessPendingAlerts: failed to list pending alerts: %v", err)
		return nil, fmt.Errorf("%w: ProcessPendingAlerts - alert repository error: %v", ErrInternal, err)
	}

	nowTOD := types.NewTimeOfDay(now)
	settingsBySalon := make(map[int64]*domain.SalonDepartureSettings)
	for _, alert := range pending {
		settings, ok := settingsBySalon[alert.SalonID]
		if !ok {
			settings, err = s.settingsRepo.GetSalonSettingsOrDefault(ctx, alert.SalonID)
			if err != nil {
				s.logger.Error("ProcessPendingAlerts: failed to get settings for salon=%d: %v", alert.SalonID, err)
				result.Fail("alert", alert.ID, err)
				continue
			}
			settingsBySalon[alert.SalonID] = settings
		}

		if !settings.Enabled {
			result.Skip("alert", alert.ID, "alerts disabled by salon")
			continue
		}

		minutesUntil := nowTOD.MinutesUntil(alert.SuggestedDepartureTime)
		if minutesUntil > settings.FirstAlertMinutesBefore {
			result.Skip("alert", alert.ID, "outside lead window")
			continue
		}
		if minutesUntil < -s.policy.PendingAlertLateWindow {
			result.Skip("alert", alert.ID, "departure time passed")
			continue
		}

		if err := s.dispatch(ctx, alert); err != nil {
			result.Fail("alert", alert.ID, err)
			continue
		}
		result.OK("alert", alert.ID, "")
		result.Inc("sent")
	}

	s.logger.Info("ProcessPendingAlerts: %s", result.Summary())
	return result, nil
}

// RecalculateAndUpdateAlerts пересчитывает рекомендации по ожидающим бронированиям сегодня
// в горизонте пересчёта от текущего времени (не дальше конца суток)
func (s *Service) RecalculateAndUpdateAlerts(ctx context.Context) (*domain.BatchResult, error) {
	now := s.timeProvider.Now()
	result := domain.NewBatchResult("recalculate_alerts")

	from := types.NewTimeOfDay(now)
	toMinutes := from.Minutes() + s.policy.RecalculationHorizon
	if toMinutes > lastMinuteOfDay {
		toMinutes = lastMinuteOfDay
	}
	to := types.NewTimeOfDayFromMinutes(toMinutes)

	bookings, err := s.bookingRepo.ListAwaitingInWindow(ctx, domain.DateOnly(now), from, to)
	if err != nil {
		s.logger.Error("RecalculateAndUpdateAlerts: failed to list bookings %s-%s: %v", from, to, err)
		return nil, fmt.Errorf("%w: RecalculateAndUpdateAlerts - booking repository error: %v", ErrInternal, err)
	}

	for _, b := range bookings {
		_, outcome, err := s.departure.CreateOrUpdateDepartureAlert(ctx, b.ID)
		if err != nil {
			result.Fail("booking", b.ID, err)
			continue
		}
		if outcome == domain.OutcomeSkipped {
			result.Skip("booking", b.ID, "prediction unavailable")
			continue
		}
		result.OK("booking", b.ID, string(outcome))
		result.Inc(string(outcome))
	}

	s.logger.Info("RecalculateAndUpdateAlerts: window=%s-%s %s", from, to, result.Summary())
	return result, nil
}

// AcknowledgeAlert сохраняет ответ клиента на уведомление
func (s *Service) AcknowledgeAlert(
	ctx context.Context,
	alertID, customerID int64,
	response domain.CustomerResponse,
	actualDeparture *types.TimeOfDay,
) (*domain.DepartureAlert, error) {
	if !response.IsValid() {
		return nil, ErrInvalidResponse
	}

	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, alertRepo.ErrAlertNotFound) {
			return nil, ErrAlertNotFound
		}
		s.logger.Error("AcknowledgeAlert: failed to get alert id=%d: %v", alertID, err)
		return nil, fmt.Errorf("%w: AcknowledgeAlert - alert repository error: %v", ErrInternal, err)
	}
	if !alert.IsOwnedBy(customerID) {
		s.logger.Warn("AcknowledgeAlert: customer=%d attempted to acknowledge alert id=%d", customerID, alertID)
		return nil, ErrAccessDenied
	}

	now := s.timeProvider.Now()
	if err := s.alertRepo.Acknowledge(ctx, alertID, response, actualDeparture, now); err != nil {
		if errors.Is(err, alertRepo.ErrAlertNotFound) {
			return nil, ErrAlertNotFound
		}
		s.logger.Error("AcknowledgeAlert: failed to acknowledge alert id=%d: %v", alertID, err)
		return nil, fmt.Errorf("%w: AcknowledgeAlert - alert repository error: %v", ErrInternal, err)
	}

	alert.CustomerAcknowledged = true
	alert.AcknowledgedAt = &now
	alert.CustomerResponse = &response
	alert.ActualDepartureTime = actualDeparture

	s.logger.Info("AcknowledgeAlert: alert id=%d acknowledged by customer=%d response=%s", alertID, customerID, response)
	return alert, nil
}
