package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	analyticsRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/analytics"
	customerRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/customer"
)

// Service уточняет прогнозы по историческим данным для премиум-салонов
type Service struct {
	subscription  SubscriptionClient
	analyticsRepo AnalyticsRepository
	customerRepo  CustomerRepository
	jobRepo       JobRecordRepository
	alertRepo     AlertRepository
	accuracyRepo  AccuracyRepository
	policy        domain.Policy
	timeProvider  TimeProvider
	logger        Logger
}

// NewService создает новый экземпляр сервиса исторических прогнозов
func NewService(
	subscription SubscriptionClient,
	analyticsRepo AnalyticsRepository,
	customerRepo CustomerRepository,
	jobRepo JobRecordRepository,
	alertRepo AlertRepository,
	accuracyRepo AccuracyRepository,
	policy domain.Policy,
	logger Logger,
) *Service {
	return &Service{
		subscription:  subscription,
		analyticsRepo: analyticsRepo,
		customerRepo:  customerRepo,
		jobRepo:       jobRepo,
		alertRepo:     alertRepo,
		accuracyRepo:  accuracyRepo,
		policy:        policy,
		timeProvider:  &RealTimeProvider{},
		logger:        logger,
	}
}

// GetEnhancedPrediction строит уточнённый прогноз задержки и длительности
// Возвращает nil, nil если салон не премиум или нет паттерна мастера либо статистики услуги
// При req.PremiumChecked тариф повторно не запрашивается
func (s *Service) GetEnhancedPrediction(ctx context.Context, req domain.EnhancementRequest) (*domain.Enhancement, error) {
	if req.StaffID == nil {
		return nil, nil
	}
	if !req.PremiumChecked && !s.subscription.IsPremium(ctx, req.SalonID) {
		return nil, nil
	}

	pattern, err := s.staffPattern(ctx, *req.StaffID, req.ServiceID)
	if err != nil || pattern == nil {
		return nil, err
	}

	dayOfWeek := int(req.BookingDate.Weekday())
	timing, err := s.analyticsRepo.GetServiceTiming(ctx, req.SalonID, req.ServiceID, dayOfWeek, req.StartTime.Hour())
	if err != nil {
		if errors.Is(err, analyticsRepo.ErrServiceTimingNotFound) {
			s.logger.Info("GetEnhancedPrediction: no service timing for salon=%d service=%d dow=%d hour=%d",
				req.SalonID, req.ServiceID, dayOfWeek, req.StartTime.Hour())
			return nil, nil
		}
		s.logger.Error("GetEnhancedPrediction: analytics repository error for salon=%d: %v", req.SalonID, err)
		return nil, fmt.Errorf("%w: GetEnhancedPrediction - service timing error: %v", ErrInternal, err)
	}

	enh := s.enhance(req, pattern, timing)
	s.logger.Info("GetEnhancedPrediction: staff=%d service=%d delay=%d duration=%d confidence=%.2f",
		*req.StaffID, req.ServiceID, enh.PredictedDelayMinutes, enh.PredictedDurationMinutes, enh.Confidence)
	return enh, nil
}

// enhance смешивает скорость мастера, время суток, день недели и перерасход услуги с учётом позиции в очереди
func (s *Service) enhance(req domain.EnhancementRequest, pattern *domain.StaffPerformancePattern, timing *domain.ServiceTimingAnalytics) *domain.Enhancement {
	speed := pattern.SpeedFactor
	if speed <= 0 {
		speed = 1
	}
	timeOfDay := pattern.SpeedFactorFor(domain.BucketFor(req.StartTime))
	dayOfWeek, ok := domain.DayOfWeekMultipliers[req.BookingDate.Weekday()]
	if !ok {
		dayOfWeek = 1
	}
	position := req.QueuePosition
	if position < 0 {
		position = 0
	}
	positionFactor := 1 + domain.QueuePositionInflation*float64(position)
	consistency := math.Max(pattern.ConsistencyScore, domain.MinConsistencyScore)
	historicalOverrun := math.Max(0, timing.AvgOverrunMinutes)

	overrunPerJob := historicalOverrun * speed * timeOfDay * dayOfWeek
	delay := float64(req.CurrentJobDelayMinutes) + overrunPerJob*float64(position)*positionFactor/consistency

	baseDuration := float64(req.DurationMinutes)
	if baseDuration <= 0 {
		baseDuration = timing.AvgDurationMinutes
	}
	duration := baseDuration * speed * timeOfDay * dayOfWeek

	confidence := domain.StaffConfidenceWeight*domain.SampleConfidence(pattern.SampleCount, s.policy.SampleSaturation) +
		domain.ServiceConfidenceWeight*domain.SampleConfidence(timing.SampleCount, s.policy.SampleSaturation)

	return &domain.Enhancement{
		PredictedDelayMinutes:    int(math.Round(math.Max(0, delay))),
		PredictedDurationMinutes: int(math.Round(duration)),
		Confidence:               domain.ClampConfidence(confidence),
		Factors: domain.EnhancementFactors{
			SpeedFactor:              speed,
			TimeOfDayFactor:          timeOfDay,
			DayOfWeekMultiplier:      dayOfWeek,
			HistoricalOverrunMinutes: historicalOverrun,
			QueuePositionFactor:      positionFactor,
			ConsistencyScore:         consistency,
			StaffSampleCount:         pattern.SampleCount,
			ServiceSampleCount:       timing.SampleCount,
		},
	}
}

// staffPattern ищет паттерн мастера по услуге, затем общий паттерн по всем услугам
func (s *Service) staffPattern(ctx context.Context, staffID, serviceID int64) (*domain.StaffPerformancePattern, error) {
	for _, svc := range []*int64{&serviceID, nil} {
		pattern, err := s.analyticsRepo.GetStaffPattern(ctx, staffID, svc, nil)
		if err == nil {
			return pattern, nil
		}
		if !errors.Is(err, analyticsRepo.ErrStaffPatternNotFound) {
			s.logger.Error("GetEnhancedPrediction: analytics repository error for staff=%d: %v", staffID, err)
			return nil, fmt.Errorf("%w: GetEnhancedPrediction - staff pattern error: %v", ErrInternal, err)
		}
	}
	s.logger.Info("GetEnhancedPrediction: no performance pattern for staff=%d", staffID)
	return nil, nil
}

// GetPersonalizedBuffer рекомендует запас времени по привычкам клиента
func (s *Service) GetPersonalizedBuffer(ctx context.Context, customerID int64, defaultBuffer int) (*domain.BufferRecommendation, error) {
	pref, err := s.customerRepo.GetTimingPreference(ctx, customerID)
	if err != nil {
		if !errors.Is(err, customerRepo.ErrTimingPreferenceNotFound) {
			s.logger.Error("GetPersonalizedBuffer: customer repository error for customer=%d: %v", customerID, err)
			return nil, fmt.Errorf("%w: GetPersonalizedBuffer - repository error: %v", ErrInternal, err)
		}
		pref = nil
	}

	rec := RecommendBuffer(pref, defaultBuffer)
	s.logger.Info("GetPersonalizedBuffer: customer=%d buffer=%d reason=%s", customerID, rec.BufferMinutes, rec.Reason)
	return &rec, nil
}

// RecommendBuffer правила персонального запаса:
// мало визитов - запас по умолчанию, часто опаздывает - опоздание плюс 10 минут,
// приходит сильно заранее - на 5 минут меньше обычного запаса прихода
func RecommendBuffer(pref *domain.CustomerTimingPreference, defaultBuffer int) domain.BufferRecommendation {
	if pref == nil || pref.VisitCount < domain.MinVisitsForPersonalBuffer {
		return domain.BufferRecommendation{
			BufferMinutes: defaultBuffer,
			Confidence:    domain.DefaultBufferConfidence,
			Reason:        "insufficient_history",
		}
	}

	rec := domain.BufferRecommendation{BufferMinutes: defaultBuffer, Confidence: pref.ConfidenceScore, Reason: "typical"}
	switch {
	case pref.LateArrivalRate > domain.LateCustomerRate:
		buffer := int(math.Round(pref.AvgLateMinutes)) + domain.LateCustomerExtraMinutes
		if buffer < defaultBuffer {
			buffer = defaultBuffer
		}
		if buffer > domain.MaxPersonalBufferMinutes {
			buffer = domain.MaxPersonalBufferMinutes
		}
		rec.BufferMinutes = buffer
		rec.Reason = "frequently_late"
	case pref.AvgArrivalMinutesBefore > domain.EarlyArrivalMinutes:
		buffer := int(math.Round(pref.AvgArrivalMinutesBefore)) - domain.EarlyArrivalReductionMinutes
		if buffer < domain.MinPersonalBufferMinutes {
			buffer = domain.MinPersonalBufferMinutes
		}
		rec.BufferMinutes = buffer
		rec.Reason = "arrives_early"
	case pref.LateArrivalRate < domain.PunctualLateRate:
		rec.BufferMinutes = domain.PunctualBufferMinutes
		rec.Reason = "punctual"
	}
	return rec
}

// RunSalonAnalytics ночной пересчёт всей аналитики салона
// Непремиум салоны пропускаются целиком
func (s *Service) RunSalonAnalytics(ctx context.Context, salonID int64, date time.Time) *domain.BatchResult {
	result := domain.NewBatchResult("analytics")
	if !s.subscription.IsPremium(ctx, salonID) {
		result.Skip("salon", salonID, "not premium")
		return result
	}

	jobs, err := s.jobRepo.ListCompletedBySalonSince(ctx, salonID, s.windowStart())
	if err != nil {
		s.logger.Error("RunSalonAnalytics: job repository error for salon=%d: %v", salonID, err)
		result.Fail("salon", salonID, err)
		return result
	}

	s.updateServiceTiming(ctx, salonID, jobs, result)
	s.updateStaffPatterns(ctx, jobs, result)
	s.updateCustomerPreferences(ctx, jobs, result)
	// запуск может прийти уже после полуночи, поэтому сверяется и предыдущий день
	for _, day := range []time.Time{date.AddDate(0, 0, -1), date} {
		s.recordOutcomes(ctx, salonID, day, result)
	}

	s.logger.Info("RunSalonAnalytics: salon=%d %s", salonID, result.Summary())
	return result
}

// UpdateServiceTimingAnalytics пересчитывает статистику длительности услуг салона за 30 дней
func (s *Service) UpdateServiceTimingAnalytics(ctx context.Context, salonID int64) (*domain.BatchResult, error) {
	result := domain.NewBatchResult("service_timing")
	jobs, ok, err := s.premiumWindow(ctx, salonID, result)
	if !ok {
		return result, err
	}
	s.updateServiceTiming(ctx, salonID, jobs, result)
	return result, nil
}

// UpdateStaffPerformancePatterns пересчитывает паттерны мастеров салона за 30 дней
func (s *Service) UpdateStaffPerformancePatterns(ctx context.Context, salonID int64) (*domain.BatchResult, error) {
	result := domain.NewBatchResult("staff_patterns")
	jobs, ok, err := s.premiumWindow(ctx, salonID, result)
	if !ok {
		return result, err
	}
	s.updateStaffPatterns(ctx, jobs, result)
	return result, nil
}

// UpdateCustomerTimingPreferences пересчитывает привычки клиентов, посещавших салон за 30 дней
func (s *Service) UpdateCustomerTimingPreferences(ctx context.Context, salonID int64) (*domain.BatchResult, error) {
	result := domain.NewBatchResult("customer_preferences")
	jobs, ok, err := s.premiumWindow(ctx, salonID, result)
	if !ok {
		return result, err
	}
	s.updateCustomerPreferences(ctx, jobs, result)
	return result, nil
}

// RecordPredictionOutcomes дописывает в журнал точности фактическое начало услуг, по которым были уведомления
func (s *Service) RecordPredictionOutcomes(ctx context.Context, salonID int64, date time.Time) *domain.BatchResult {
	result := domain.NewBatchResult("prediction_outcomes")
	s.recordOutcomes(ctx, salonID, date, result)
	return result
}

// PruneAccuracyLogs удаляет записи журнала точности старше срока хранения
func (s *Service) PruneAccuracyLogs(ctx context.Context) (int64, error) {
	before := s.timeProvider.Now().AddDate(0, 0, -s.policy.AccuracyRetentionDays)
	deleted, err := s.accuracyRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("PruneAccuracyLogs: repository error: %v", err)
		return 0, fmt.Errorf("%w: PruneAccuracyLogs - repository error: %v", ErrInternal, err)
	}
	s.logger.Info("PruneAccuracyLogs: deleted=%d before=%s", deleted, before.Format(domain.DateFormat))
	return deleted, nil
}

func (s *Service) windowStart() time.Time {
	return domain.DateOnly(s.timeProvider.Now()).AddDate(0, 0, -domain.AnalyticsWindowDays)
}

func (s *Service) premiumWindow(ctx context.Context, salonID int64, result *domain.BatchResult) ([]*domain.JobRecord, bool, error) {
	if !s.subscription.IsPremium(ctx, salonID) {
		result.Skip("salon", salonID, "not premium")
		return nil, false, nil
	}
	jobs, err := s.jobRepo.ListCompletedBySalonSince(ctx, salonID, s.windowStart())
	if err != nil {
		s.logger.Error("premiumWindow: job repository error for salon=%d: %v", salonID, err)
		return nil, false, fmt.Errorf("%w: job repository error: %v", ErrInternal, err)
	}
	return jobs, true, nil
}
