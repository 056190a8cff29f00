package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/booking"
	jobRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/jobrecord"
	salonRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/salon"
	staffRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/staff"
)

// Service оценивает очередь мастеров и прогнозирует начало записи
type Service struct {
	staffRepo    StaffRepository
	salonRepo    SalonRepository
	bookingRepo  BookingRepository
	jobRepo      JobRecordRepository
	statusRepo   QueueStatusRepository
	policy       domain.Policy
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса очереди
func NewService(
	staffRepo StaffRepository,
	salonRepo SalonRepository,
	bookingRepo BookingRepository,
	jobRepo JobRecordRepository,
	statusRepo QueueStatusRepository,
	policy domain.Policy,
	logger Logger,
) *Service {
	return &Service{
		staffRepo:    staffRepo,
		salonRepo:    salonRepo,
		bookingRepo:  bookingRepo,
		jobRepo:      jobRepo,
		statusRepo:   statusRepo,
		policy:       policy,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// staffQueue промежуточный расчёт очереди одного мастера
type staffQueue struct {
	status    *domain.StaffQueueStatus
	queued    []*domain.Booking
	overrun   float64 // средний перерасход, не меньше нуля
	remaining float64 // минут до окончания текущей услуги
}

// CalculateStaffQueueStatus рассчитывает состояние очереди мастера на дату без сохранения
// Возвращает nil, nil если мастер не найден
func (s *Service) CalculateStaffQueueStatus(ctx context.Context, staffID int64, date time.Time) (*domain.StaffQueueStatus, error) {
	s.logger.Info("CalculateStaffQueueStatus: staff=%d date=%s", staffID, date.Format(domain.DateFormat))

	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, staffRepo.ErrStaffNotFound) {
			s.logger.Warn("CalculateStaffQueueStatus: staff=%d not found", staffID)
			return nil, nil
		}
		s.logger.Error("CalculateStaffQueueStatus: staff repository error for staff=%d: %v", staffID, err)
		return nil, fmt.Errorf("%w: CalculateStaffQueueStatus - staff repository error: %v", ErrInternal, err)
	}

	q, err := s.buildStaffQueue(ctx, staff, date)
	if err != nil {
		return nil, err
	}
	return q.status, nil
}

// UpdateStaffQueueStatus пересчитывает и сохраняет состояние очереди мастера (upsert по мастеру и дате)
func (s *Service) UpdateStaffQueueStatus(ctx context.Context, staffID int64, date time.Time) (*domain.StaffQueueStatus, error) {
	status, err := s.CalculateStaffQueueStatus(ctx, staffID, date)
	if err != nil || status == nil {
		return status, err
	}

	if err := s.statusRepo.Upsert(ctx, status); err != nil {
		s.logger.Error("UpdateStaffQueueStatus: failed to save status for staff=%d: %v", staffID, err)
		return nil, fmt.Errorf("%w: UpdateStaffQueueStatus - status repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdateStaffQueueStatus: staff=%d status=%s ahead=%d delay=%d",
		staffID, status.Status, status.AppointmentsAhead, status.EstimatedDelayMinutes)
	return status, nil
}

// GetSalonQueueStatus возвращает сводное состояние очереди салона
// При live=false читаются сохранённые статусы, если их нет - выполняется живой расчёт
func (s *Service) GetSalonQueueStatus(ctx context.Context, salonID int64, date time.Time, live bool) (*domain.SalonQueueStatus, error) {
	s.logger.Info("GetSalonQueueStatus: salon=%d date=%s live=%t", salonID, date.Format(domain.DateFormat), live)

	if _, err := s.salonRepo.GetByID(ctx, salonID); err != nil {
		if errors.Is(err, salonRepo.ErrSalonNotFound) {
			s.logger.Warn("GetSalonQueueStatus: salon=%d not found", salonID)
			return nil, nil
		}
		s.logger.Error("GetSalonQueueStatus: salon repository error for salon=%d: %v", salonID, err)
		return nil, fmt.Errorf("%w: GetSalonQueueStatus - salon repository error: %v", ErrInternal, err)
	}

	var statuses []*domain.StaffQueueStatus
	if !live {
		persisted, err := s.statusRepo.ListBySalonAndDate(ctx, salonID, domain.DateOnly(date))
		if err != nil {
			s.logger.Error("GetSalonQueueStatus: status repository error for salon=%d: %v", salonID, err)
			return nil, fmt.Errorf("%w: GetSalonQueueStatus - status repository error: %v", ErrInternal, err)
		}
		statuses = persisted
	}

	if len(statuses) == 0 {
		staffList, err := s.staffRepo.ListActiveBySalon(ctx, salonID)
		if err != nil {
			s.logger.Error("GetSalonQueueStatus: staff repository error for salon=%d: %v", salonID, err)
			return nil, fmt.Errorf("%w: GetSalonQueueStatus - staff repository error: %v", ErrInternal, err)
		}
		for _, staff := range staffList {
			q, err := s.buildStaffQueue(ctx, staff, date)
			if err != nil {
				s.logger.Warn("GetSalonQueueStatus: skipping staff=%d: %v", staff.ID, err)
				continue
			}
			statuses = append(statuses, q.status)
		}
	}

	return s.aggregate(salonID, date, statuses), nil
}

// GetPredictedStartTime прогнозирует фактическое время начала записи
// Возвращает nil, nil если прогноз недоступен (нет записи, мастера или салона)
func (s *Service) GetPredictedStartTime(ctx context.Context, bookingID int64) (*domain.QueuePrediction, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("GetPredictedStartTime: booking id=%d not found", bookingID)
			return nil, nil
		}
		s.logger.Error("GetPredictedStartTime: booking repository error for id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: GetPredictedStartTime - booking repository error: %v", ErrInternal, err)
	}

	pred := &domain.QueuePrediction{
		BookingID:          booking.ID,
		SalonID:            booking.SalonID,
		StaffID:            booking.StaffID,
		BookingDate:        domain.DateOnly(booking.BookingDate),
		OriginalTime:       booking.StartTime,
		PredictedStartTime: booking.StartTime,
		DurationMinutes:    booking.DurationMinutes,
	}

	if !domain.SameDay(booking.BookingDate, s.timeProvider.Now()) {
		// Очередь на другой день неизвестна, время записи не меняется
		pred.Confidence = domain.ConfidenceFutureBooking
		if booking.HasStaff() {
			staff, err := s.getStaff(ctx, *booking.StaffID)
			if err != nil || staff == nil {
				return nil, err
			}
			pred.StaffName = staff.Name
			pred.StaffState = staff.CurrentState
		}
		return pred, nil
	}

	pred.IsToday = true
	if booking.HasStaff() {
		return s.predictForStaff(ctx, booking, pred)
	}
	return s.predictForAnyStaff(ctx, booking, pred)
}

// RecalculateAllQueues пересчитывает очереди всех активных мастеров всех активных салонов
// Салоны читаются страницами по batchSize с курсором по идентификатору
func (s *Service) RecalculateAllQueues(ctx context.Context, date time.Time, batchSize int) (*domain.BatchResult, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", ErrInvalidInput)
	}

	start := s.timeProvider.Now()
	result := domain.NewBatchResult("queues")
	var cursor int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		salons, err := s.salonRepo.ListActiveAfter(ctx, cursor, batchSize)
		if err != nil {
			s.logger.Error("RecalculateAllQueues: salon repository error after salon=%d: %v", cursor, err)
			return result, fmt.Errorf("%w: RecalculateAllQueues - salon repository error: %v", ErrInternal, err)
		}

		for _, salon := range salons {
			s.recalculateSalon(ctx, salon, date, result)
		}

		if len(salons) < batchSize {
			break
		}
		cursor = salons[len(salons)-1].ID
	}

	result.Duration = s.timeProvider.Now().Sub(start)
	s.logger.Info("RecalculateAllQueues: %s", result.Summary())
	return result, nil
}

func (s *Service) recalculateSalon(ctx context.Context, salon *domain.Salon, date time.Time, result *domain.BatchResult) {
	staffList, err := s.staffRepo.ListActiveBySalon(ctx, salon.ID)
	if err != nil {
		s.logger.Error("RecalculateAllQueues: failed to list staff for salon=%d: %v", salon.ID, err)
		result.Fail("salon", salon.ID, err)
		return
	}
	result.Inc("salons")

	for _, staff := range staffList {
		q, err := s.buildStaffQueue(ctx, staff, date)
		if err != nil {
			s.logger.Error("RecalculateAllQueues: failed to calculate staff=%d: %v", staff.ID, err)
			result.Fail("staff", staff.ID, err)
			continue
		}
		if err := s.statusRepo.Upsert(ctx, q.status); err != nil {
			s.logger.Error("RecalculateAllQueues: failed to save staff=%d: %v", staff.ID, err)
			result.Fail("staff", staff.ID, err)
			continue
		}
		result.OK("staff", staff.ID, string(q.status.Status))
	}
}

func (s *Service) predictForStaff(ctx context.Context, booking *domain.Booking, pred *domain.QueuePrediction) (*domain.QueuePrediction, error) {
	staff, err := s.getStaff(ctx, *booking.StaffID)
	if err != nil || staff == nil {
		return nil, err
	}

	q, err := s.buildStaffQueue(ctx, staff, booking.BookingDate)
	if err != nil {
		return nil, err
	}

	minutes, ahead := q.delayBefore(booking)
	pred.StaffName = staff.Name
	pred.StaffState = q.status.Status
	pred.DelayMinutes = minutes
	pred.CurrentJobDelayMinutes = q.status.CurrentJobDelayMinutes
	pred.QueuePosition = ahead
	pred.PredictedStartTime = booking.StartTime.AddMinutes(minutes)
	pred.Confidence = confidenceForDelay(minutes)

	s.logger.Info("GetPredictedStartTime: booking=%d staff=%d ahead=%d delay=%d confidence=%.2f",
		booking.ID, staff.ID, ahead, minutes, pred.Confidence)
	return pred, nil
}

func (s *Service) predictForAnyStaff(ctx context.Context, booking *domain.Booking, pred *domain.QueuePrediction) (*domain.QueuePrediction, error) {
	if _, err := s.salonRepo.GetByID(ctx, booking.SalonID); err != nil {
		if errors.Is(err, salonRepo.ErrSalonNotFound) {
			s.logger.Warn("GetPredictedStartTime: salon=%d of booking=%d not found", booking.SalonID, booking.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: GetPredictedStartTime - salon repository error: %v", ErrInternal, err)
	}

	staffList, err := s.staffRepo.ListActiveBySalon(ctx, booking.SalonID)
	if err != nil {
		s.logger.Error("GetPredictedStartTime: staff repository error for salon=%d: %v", booking.SalonID, err)
		return nil, fmt.Errorf("%w: GetPredictedStartTime - staff repository error: %v", ErrInternal, err)
	}
	if len(staffList) == 0 {
		s.logger.Warn("GetPredictedStartTime: salon=%d has no active staff", booking.SalonID)
		return nil, nil
	}

	// Выбирается мастер с наименьшей задержкой именно для времени этой записи
	var (
		best        *staffQueue
		bestMinutes int
		bestAhead   int
		lastErr     error
	)
	for _, staff := range staffList {
		q, err := s.buildStaffQueue(ctx, staff, booking.BookingDate)
		if err != nil {
			s.logger.Warn("GetPredictedStartTime: skipping staff=%d: %v", staff.ID, err)
			lastErr = err
			continue
		}
		minutes, ahead := q.delayBefore(booking)
		if best == nil || minutes < bestMinutes {
			best, bestMinutes, bestAhead = q, minutes, ahead
		}
	}
	if best == nil {
		return nil, lastErr
	}

	staffID := best.status.StaffID
	pred.StaffID = &staffID
	pred.StaffName = best.status.StaffName
	pred.StaffState = best.status.Status
	pred.DelayMinutes = bestMinutes
	pred.CurrentJobDelayMinutes = best.status.CurrentJobDelayMinutes
	pred.QueuePosition = bestAhead
	pred.PredictedStartTime = booking.StartTime.AddMinutes(bestMinutes)
	pred.Confidence = domain.ConfidenceAnyStaff

	s.logger.Info("GetPredictedStartTime: booking=%d without staff, best staff=%d ahead=%d delay=%d",
		booking.ID, staffID, bestAhead, bestMinutes)
	return pred, nil
}

// delayBefore задержка записи и число записей впереди: остаток текущей услуги
// плюс перерасход только по записям, назначенным строго раньше
func (q *staffQueue) delayBefore(booking *domain.Booking) (int, int) {
	delay := q.remaining
	ahead := 0
	for _, b := range q.queued {
		if b.ID == booking.ID || !b.StartTime.IsBefore(booking.StartTime) {
			continue
		}
		ahead++
		delay += inflation(b.DurationMinutes, q.overrun)
	}
	return roundMinutes(delay), ahead
}

func (s *Service) getStaff(ctx context.Context, staffID int64) (*domain.Staff, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, staffRepo.ErrStaffNotFound) {
			s.logger.Warn("GetPredictedStartTime: staff=%d not found", staffID)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: GetPredictedStartTime - staff repository error: %v", ErrInternal, err)
	}
	return staff, nil
}

// buildStaffQueue собирает текущую услугу, ожидающие записи и перерасход мастера за день
func (s *Service) buildStaffQueue(ctx context.Context, staff *domain.Staff, date time.Time) (*staffQueue, error) {
	now := s.timeProvider.Now()
	date = domain.DateOnly(date)

	queued, err := s.bookingRepo.ListAwaitingByStaffAndDate(ctx, staff.ID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: buildStaffQueue - booking repository error: %v", ErrInternal, err)
	}

	completed, err := s.jobRepo.ListCompletedByStaffAndDate(ctx, staff.ID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: buildStaffQueue - job repository error: %v", ErrInternal, err)
	}
	avgOverrun := rollingOverrun(completed)

	status := &domain.StaffQueueStatus{
		StaffID:           staff.ID,
		SalonID:           staff.SalonID,
		StaffName:         staff.Name,
		StatusDate:        date,
		Status:            staff.CurrentState,
		AppointmentsAhead: len(queued),
		AvgOverrunPercent: math.Round(avgOverrun*10000) / 100,
		UpdatedAt:         now,
	}
	q := &staffQueue{
		status:  status,
		queued:  queued,
		overrun: math.Max(0, avgOverrun),
	}

	if domain.SameDay(date, now) {
		job, err := s.jobRepo.GetInProgressByStaff(ctx, staff.ID, date)
		switch {
		case err == nil:
			bookingID := job.BookingID
			status.Status = domain.StaffBusy
			status.CurrentBookingID = &bookingID
			q.remaining = remainingMinutes(job, q.overrun, now)
			next := now.Add(time.Duration(q.remaining * float64(time.Minute)))
			status.NextAvailableAt = &next
		case errors.Is(err, jobRepo.ErrJobNotFound):
			if status.Status == domain.StaffBusy || status.Status == "" {
				status.Status = domain.StaffAvailable
			}
			if status.Status == domain.StaffAvailable {
				next := now
				status.NextAvailableAt = &next
			}
		default:
			return nil, fmt.Errorf("%w: buildStaffQueue - job repository error: %v", ErrInternal, err)
		}
	} else if status.Status == "" || status.Status == domain.StaffBusy {
		status.Status = domain.StaffAvailable
	}

	delay := q.remaining
	for _, b := range queued {
		delay += inflation(b.DurationMinutes, q.overrun)
	}
	status.CurrentJobDelayMinutes = roundMinutes(q.remaining)
	status.EstimatedDelayMinutes = roundMinutes(delay)

	return q, nil
}

func (s *Service) aggregate(salonID int64, date time.Time, statuses []*domain.StaffQueueStatus) *domain.SalonQueueStatus {
	view := &domain.SalonQueueStatus{
		SalonID: salonID,
		Date:    domain.DateOnly(date),
		Staff:   statuses,
	}
	if view.Staff == nil {
		view.Staff = make([]*domain.StaffQueueStatus, 0)
	}

	total := 0
	for _, st := range statuses {
		total += st.EstimatedDelayMinutes
		view.TotalQueued += st.AppointmentsAhead
		if st.EstimatedDelayMinutes > view.MaxDelayMinutes {
			view.MaxDelayMinutes = st.EstimatedDelayMinutes
		}
	}
	if len(statuses) > 0 {
		view.AverageDelayMinutes = math.Round(float64(total)/float64(len(statuses))*10) / 10
	}
	view.Status = domain.ClassifySalonStatus(view.AverageDelayMinutes, s.policy)
	return view
}

// rollingOverrun средний (actual-estimated)/estimated по услугам с известными длительностями
func rollingOverrun(completed []*domain.JobRecord) float64 {
	sum := 0.0
	n := 0
	for _, job := range completed {
		if !job.HasDurations() {
			continue
		}
		sum += job.OverrunRatio()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// remainingMinutes оставшееся время текущей услуги с учётом перерасхода
func remainingMinutes(job *domain.JobRecord, overrun float64, now time.Time) float64 {
	if job.EstimatedDurationMinutes == nil || job.StartedAt == nil {
		return 0
	}
	adjusted := float64(*job.EstimatedDurationMinutes) * (1 + overrun)
	elapsed := now.Sub(*job.StartedAt).Minutes()
	return math.Max(0, adjusted-elapsed)
}

func inflation(durationMinutes int, overrun float64) float64 {
	return float64(durationMinutes) * overrun
}

func roundMinutes(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

func confidenceForDelay(delayMinutes int) float64 {
	switch {
	case delayMinutes <= domain.HighConfidenceMaxDelay:
		return domain.ConfidenceHigh
	case delayMinutes <= domain.MediumConfidenceMaxDelay:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
