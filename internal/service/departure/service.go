package departure

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	alertRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/alert"
	bookingRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/booking"
	salonRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/salon"
)

const (
	bufferSalonDefault = "salon_default"
	bufferPersonalized = "personalized"
	bufferCustomerPref = "customer_preference"
)

// Service рассчитывает время выезда клиента и ведёт запись уведомления по бронированию
type Service struct {
	bookingRepo  BookingRepository
	salonRepo    SalonRepository
	settingsRepo SettingsRepository
	locationRepo LocationRepository
	alertRepo    AlertRepository
	queue        QueuePredictor
	performance  PerformancePredictor
	subscription SubscriptionClient
	txManager    TransactionManager
	policy       domain.Policy
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса расчёта выезда
func NewService(
	bookingRepo BookingRepository,
	salonRepo SalonRepository,
	settingsRepo SettingsRepository,
	locationRepo LocationRepository,
	alertRepo AlertRepository,
	queue QueuePredictor,
	performance PerformancePredictor,
	subscription SubscriptionClient,
	txManager TransactionManager,
	policy domain.Policy,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepo,
		salonRepo:    salonRepo,
		settingsRepo: settingsRepo,
		locationRepo: locationRepo,
		alertRepo:    alertRepo,
		queue:        queue,
		performance:  performance,
		subscription: subscription,
		txManager:    txManager,
		policy:       policy,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// CalculateDepartureTime рассчитывает рекомендацию по выезду для бронирования
// Возвращает nil, nil если уведомления выключены салоном или клиентом либо прогноз недоступен
func (s *Service) CalculateDepartureTime(ctx context.Context, bookingID int64) (*domain.DepartureRecommendation, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("CalculateDepartureTime: booking id=%d not found", bookingID)
			return nil, nil
		}
		s.logger.Error("CalculateDepartureTime: booking repository error for id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: CalculateDepartureTime - booking repository error: %v", ErrInternal, err)
	}
	return s.calculate(ctx, booking)
}

// GetDepartureForCustomer рассчитывает рекомендацию, предварительно проверив что бронирование принадлежит клиенту
// Без бронирования возвращает ErrBookingNotFound, для чужого бронирования ErrAccessDenied
func (s *Service) GetDepartureForCustomer(ctx context.Context, bookingID, customerID int64) (*domain.DepartureRecommendation, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("GetDepartureForCustomer: booking repository error for id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: GetDepartureForCustomer - booking repository error: %v", ErrInternal, err)
	}
	if booking.CustomerID != customerID {
		return nil, ErrAccessDenied
	}
	return s.calculate(ctx, booking)
}

func (s *Service) calculate(ctx context.Context, booking *domain.Booking) (*domain.DepartureRecommendation, error) {
	bookingID := booking.ID

	settings, err := s.settingsRepo.GetSalonSettingsOrDefault(ctx, booking.SalonID)
	if err != nil {
		s.logger.Error("CalculateDepartureTime: settings repository error for salon=%d: %v", booking.SalonID, err)
		return nil, fmt.Errorf("%w: CalculateDepartureTime - salon settings error: %v", ErrInternal, err)
	}
	if !settings.Enabled {
		s.logger.Info("CalculateDepartureTime: departure alerts disabled by salon=%d", booking.SalonID)
		return nil, nil
	}

	prefs, err := s.settingsRepo.GetCustomerPreferencesOrDefault(ctx, booking.CustomerID)
	if err != nil {
		s.logger.Error("CalculateDepartureTime: settings repository error for customer=%d: %v", booking.CustomerID, err)
		return nil, fmt.Errorf("%w: CalculateDepartureTime - customer preferences error: %v", ErrInternal, err)
	}
	if !prefs.Enabled {
		s.logger.Info("CalculateDepartureTime: customer=%d opted out of departure alerts", booking.CustomerID)
		return nil, nil
	}

	pred, err := s.queue.GetPredictedStartTime(ctx, bookingID)
	if err != nil {
		s.logger.Error("CalculateDepartureTime: queue prediction failed for booking=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: CalculateDepartureTime - queue prediction error: %v", ErrInternal, err)
	}
	if pred == nil {
		s.logger.Info("CalculateDepartureTime: prediction unavailable for booking=%d", bookingID)
		return nil, nil
	}

	salon, err := s.salonRepo.GetByID(ctx, booking.SalonID)
	if err != nil {
		if errors.Is(err, salonRepo.ErrSalonNotFound) {
			s.logger.Warn("CalculateDepartureTime: salon=%d not found", booking.SalonID)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: CalculateDepartureTime - salon repository error: %v", ErrInternal, err)
	}

	locations, err := s.locationRepo.ListLocations(ctx, booking.CustomerID)
	if err != nil {
		// без адреса используется время в пути по умолчанию
		s.logger.Warn("CalculateDepartureTime: failed to load locations for customer=%d: %v", booking.CustomerID, err)
		locations = nil
	}
	location := resolveLocation(prefs, locations)
	travel := EstimateTravel(location, salon, s.policy.DefaultTravelMinutes)

	premium := s.subscription.IsPremium(ctx, booking.SalonID)
	var enh *domain.Enhancement
	if premium {
		enh, err = s.performance.GetEnhancedPrediction(ctx, domain.EnhancementRequest{
			SalonID:                booking.SalonID,
			StaffID:                pred.StaffID,
			ServiceID:              booking.ServiceID,
			BookingDate:            booking.BookingDate,
			StartTime:              booking.StartTime,
			QueuePosition:          pred.QueuePosition,
			CurrentJobDelayMinutes: pred.CurrentJobDelayMinutes,
			DurationMinutes:        booking.DurationMinutes,
			PremiumChecked:         true,
		})
		if err != nil {
			s.logger.Warn("CalculateDepartureTime: enhanced prediction failed for booking=%d: %v", bookingID, err)
			enh = nil
		}
	}
	est := domain.MergePrediction(pred, enh, s.policy.EnhancementConfidenceFloor)

	buffer, bufferSource := s.effectiveBuffer(ctx, booking.CustomerID, settings, prefs, premium)

	predictedStart := booking.StartTime.AddMinutes(est.DelayMinutes)
	suggested := predictedStart.SubMinutes(travel.Minutes + buffer)
	alertType, priority := domain.ClassifyDelay(est.DelayMinutes, settings.MinDelayToNotifyMinutes, s.policy)

	rec := &domain.DepartureRecommendation{
		BookingID:              booking.ID,
		CustomerID:             booking.CustomerID,
		SalonID:                booking.SalonID,
		SalonName:              salon.Name,
		StaffID:                pred.StaffID,
		StaffName:              pred.StaffName,
		StaffState:             pred.StaffState,
		BookingDate:            domain.DateOnly(booking.BookingDate),
		OriginalBookingTime:    booking.StartTime,
		PredictedStartTime:     predictedStart,
		DelayMinutes:           est.DelayMinutes,
		DelayReason:            delayReason(pred, est),
		SuggestedDepartureTime: suggested,
		TravelMinutes:          travel.Minutes,
		BufferMinutes:          buffer,
		Location:               location,
		AlertType:              alertType,
		Priority:               priority,
		Confidence:             est.Confidence,
		Source:                 est.Source,
		Snapshot: domain.CalculationSnapshot{
			QueueDelayMinutes:      pred.DelayMinutes,
			QueueConfidence:        pred.Confidence,
			QueuePosition:          pred.QueuePosition,
			StaffState:             pred.StaffState,
			CurrentJobDelayMinutes: pred.CurrentJobDelayMinutes,
			DurationMinutes:        est.DurationMinutes,
			Source:                 est.Source,
			DistanceKm:             travel.DistanceKm,
			TravelMinutes:          travel.Minutes,
			TravelEstimated:        travel.Estimated,
			BufferMinutes:          buffer,
			BufferSource:           bufferSource,
			MinDelayToNotify:       settings.MinDelayToNotifyMinutes,
			Classification:         alertType,
			CalculatedAt:           s.timeProvider.Now(),
		},
	}
	if enh != nil {
		factors := enh.Factors
		delay := enh.PredictedDelayMinutes
		confidence := enh.Confidence
		rec.Snapshot.Enhancement = &factors
		rec.Snapshot.EnhancedDelayMinutes = &delay
		rec.Snapshot.EnhancedConfidence = &confidence
	}

	s.logger.Info("CalculateDepartureTime: booking=%d predicted=%s delay=%d travel=%d buffer=%d leave=%s type=%s",
		bookingID, predictedStart, est.DelayMinutes, travel.Minutes, buffer, suggested, alertType)
	return rec, nil
}

// CreateOrUpdateDepartureAlert сохраняет рекомендацию по бронированию
// Запись перезаписывается только при значимом изменении, отправленное уведомление сбрасывается для повторной отправки
func (s *Service) CreateOrUpdateDepartureAlert(ctx context.Context, bookingID int64) (*domain.DepartureAlert, domain.AlertOutcome, error) {
	rec, err := s.CalculateDepartureTime(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, domain.OutcomeSkipped, nil
	}

	var alert *domain.DepartureAlert
	var outcome domain.AlertOutcome
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		existing, err := s.alertRepo.GetByBookingAndDate(ctx, rec.BookingID, rec.BookingDate)
		if errors.Is(err, alertRepo.ErrAlertNotFound) {
			created, err := s.alertRepo.Create(ctx, newAlert(rec))
			if err != nil {
				return err
			}
			alert, outcome = created, domain.OutcomeCreated
			return nil
		}
		if err != nil {
			return err
		}

		if !domain.IsSignificantChange(existing, rec, s.policy.SignificantChangeMinutes) {
			alert, outcome = existing, domain.OutcomeUnchanged
			return nil
		}

		wasSent := existing.NotificationSent
		applyRecommendation(existing, rec)
		if wasSent {
			existing.AlertType = domain.AlertDelayUpdate
			existing.NotificationSent = false
		}
		if err := s.alertRepo.Update(ctx, existing); err != nil {
			return err
		}
		alert, outcome = existing, domain.OutcomeUpdated
		return nil
	})
	if err != nil {
		if errors.Is(err, alertRepo.ErrAlertExists) {
			// запись создана параллельно, следующий пересчёт сравнит её с рекомендацией
			s.logger.Warn("CreateOrUpdateDepartureAlert: alert for booking=%d created concurrently", bookingID)
			return nil, domain.OutcomeUnchanged, nil
		}
		s.logger.Error("CreateOrUpdateDepartureAlert: failed to save alert for booking=%d: %v", bookingID, err)
		return nil, "", fmt.Errorf("%w: CreateOrUpdateDepartureAlert - alert repository error: %v", ErrInternal, err)
	}

	s.logger.Info("CreateOrUpdateDepartureAlert: booking=%d outcome=%s delay=%d type=%s sent=%t",
		bookingID, outcome, alert.DelayMinutes, alert.AlertType, alert.NotificationSent)
	return alert, outcome, nil
}

// effectiveBuffer запас = max(запас салона, персональный для премиум или выбранный клиентом)
func (s *Service) effectiveBuffer(
	ctx context.Context,
	customerID int64,
	settings *domain.SalonDepartureSettings,
	prefs *domain.CustomerDeparturePreferences,
	premium bool,
) (int, string) {
	buffer, source := settings.DefaultBufferMinutes, bufferSalonDefault

	candidate, candidateSource := 0, ""
	if premium {
		rec, err := s.performance.GetPersonalizedBuffer(ctx, customerID, settings.DefaultBufferMinutes)
		if err != nil {
			s.logger.Warn("CalculateDepartureTime: personalized buffer failed for customer=%d: %v", customerID, err)
		} else if rec != nil {
			candidate, candidateSource = rec.BufferMinutes, bufferPersonalized
		}
	}
	if candidateSource == "" && prefs.PreferredBufferMinutes != nil {
		candidate, candidateSource = *prefs.PreferredBufferMinutes, bufferCustomerPref
	}

	if candidate > buffer {
		return candidate, candidateSource
	}
	return buffer, source
}

func delayReason(pred *domain.QueuePrediction, est domain.Estimate) domain.DelayReason {
	switch {
	case est.DelayMinutes <= 0:
		return domain.DelayNone
	case est.Source == domain.SourceEnhanced:
		return domain.DelayHistoricalPattern
	case pred.QueuePosition == 0 || pred.CurrentJobDelayMinutes*2 >= est.DelayMinutes:
		return domain.DelayCurrentService
	default:
		return domain.DelayQueueBacklog
	}
}

func newAlert(rec *domain.DepartureRecommendation) *domain.DepartureAlert {
	a := &domain.DepartureAlert{
		BookingID:           rec.BookingID,
		CustomerID:          rec.CustomerID,
		SalonID:             rec.SalonID,
		BookingDate:         rec.BookingDate,
		OriginalBookingTime: rec.OriginalBookingTime,
	}
	applyRecommendation(a, rec)
	return a
}

func applyRecommendation(a *domain.DepartureAlert, rec *domain.DepartureRecommendation) {
	a.StaffID = rec.StaffID
	a.PredictedStartTime = rec.PredictedStartTime
	a.DelayMinutes = rec.DelayMinutes
	a.DelayReason = rec.DelayReason
	a.SuggestedDepartureTime = rec.SuggestedDepartureTime
	a.EstimatedTravelMinutes = rec.TravelMinutes
	a.BufferMinutes = rec.BufferMinutes
	a.DepartureLocation = rec.Location
	a.AlertType = rec.AlertType
	a.Priority = rec.Priority
	a.Snapshot = rec.Snapshot
}
