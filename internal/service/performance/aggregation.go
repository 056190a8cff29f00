package performance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

type timingKey struct {
	serviceID int64
	dayOfWeek int
	hour      int
}

// updateServiceTiming группирует услуги по (услуга, день недели, час), группы меньше 3 замеров пропускаются
func (s *Service) updateServiceTiming(ctx context.Context, salonID int64, jobs []*domain.JobRecord, result *domain.BatchResult) {
	groups := make(map[timingKey][]*domain.JobRecord)
	keys := make([]timingKey, 0)
	for _, job := range jobs {
		if !job.HasDurations() {
			continue
		}
		key := timingKey{serviceID: job.ServiceID, dayOfWeek: int(job.BookingDate.Weekday()), hour: job.ScheduledStart.Hour()}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], job)
	}

	now := s.timeProvider.Now()
	for _, key := range keys {
		group := groups[key]
		if len(group) < domain.MinServiceTimingSamples {
			result.Skip("service_timing", key.serviceID, "not enough samples")
			continue
		}

		durations := make([]float64, 0, len(group))
		actual := make([]int, 0, len(group))
		overruns := make([]float64, 0, len(group))
		overrunCount := 0
		for _, job := range group {
			d := *job.ActualDurationMinutes
			durations = append(durations, float64(d))
			actual = append(actual, d)
			over := d - *job.EstimatedDurationMinutes
			overruns = append(overruns, float64(over))
			if over > 0 {
				overrunCount++
			}
		}
		lo, hi := minMax(actual)

		analytics := &domain.ServiceTimingAnalytics{
			SalonID:               salonID,
			ServiceID:             key.serviceID,
			DayOfWeek:             key.dayOfWeek,
			HourBlock:             key.hour,
			SampleCount:           len(group),
			AvgDurationMinutes:    round3(mean(durations)),
			StdDevDurationMinutes: round3(stddev(durations)),
			MinDurationMinutes:    lo,
			MaxDurationMinutes:    hi,
			AvgOverrunMinutes:     round3(mean(overruns)),
			OverrunRate:           round3(fraction(overrunCount, len(group))),
			ConfidenceScore:       domain.SampleConfidence(len(group), s.policy.SampleSaturation),
			LastCalculatedAt:      now,
		}
		if err := s.analyticsRepo.UpsertServiceTiming(ctx, analytics); err != nil {
			s.logger.Error("updateServiceTiming: failed to save salon=%d service=%d dow=%d hour=%d: %v",
				salonID, key.serviceID, key.dayOfWeek, key.hour, err)
			result.Fail("service_timing", key.serviceID, err)
			continue
		}
		result.OK("service_timing", key.serviceID, "")
		result.Inc("service_timing_upserted")
	}
}

type patternKey struct {
	staffID   int64
	serviceID int64
	all       bool
}

// updateStaffPatterns группирует услуги по (мастер, услуга) и (мастер, все услуги), группы меньше 5 замеров пропускаются
func (s *Service) updateStaffPatterns(ctx context.Context, jobs []*domain.JobRecord, result *domain.BatchResult) {
	groups := make(map[patternKey][]*domain.JobRecord)
	keys := make([]patternKey, 0)
	add := func(key patternKey, job *domain.JobRecord) {
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], job)
	}
	for _, job := range jobs {
		if !job.HasDurations() {
			continue
		}
		add(patternKey{staffID: job.StaffID, serviceID: job.ServiceID}, job)
		add(patternKey{staffID: job.StaffID, all: true}, job)
	}

	now := s.timeProvider.Now()
	for _, key := range keys {
		group := groups[key]
		if len(group) < domain.MinStaffPatternSamples {
			result.Skip("staff_pattern", key.staffID, "not enough samples")
			continue
		}

		pattern := buildStaffPattern(group)
		pattern.StaffID = key.staffID
		pattern.SalonID = group[0].SalonID
		if !key.all {
			serviceID := key.serviceID
			pattern.ServiceID = &serviceID
		}
		pattern.LastCalculatedAt = now

		if err := s.analyticsRepo.UpsertStaffPattern(ctx, pattern); err != nil {
			s.logger.Error("updateStaffPatterns: failed to save staff=%d service=%d: %v", key.staffID, key.serviceID, err)
			result.Fail("staff_pattern", key.staffID, err)
			continue
		}
		result.OK("staff_pattern", key.staffID, "")
		result.Inc("staff_patterns_upserted")
	}
}

// buildStaffPattern считает скорость, стабильность, опоздания и факторы времени суток
func buildStaffPattern(group []*domain.JobRecord) *domain.StaffPerformancePattern {
	ratios := make([]float64, 0, len(group))
	durations := make([]float64, 0, len(group))
	buckets := make(map[domain.TimeOfDayBucket][]float64)
	started, late := 0, 0
	lateMinutes := make([]float64, 0)

	for _, job := range group {
		ratio := job.SpeedRatio()
		ratios = append(ratios, ratio)
		durations = append(durations, float64(*job.ActualDurationMinutes))
		bucket := domain.BucketFor(job.ScheduledStart)
		buckets[bucket] = append(buckets[bucket], ratio)

		if minutes, ok := job.LateStartMinutes(); ok {
			started++
			if minutes > 0 {
				late++
				lateMinutes = append(lateMinutes, float64(minutes))
			}
		}
	}

	speed := mean(ratios)
	consistency := 0.0
	if speed > 0 {
		consistency = domain.ClampConfidence(1 - variance(ratios)/(speed*speed))
	}

	// факторы времени суток относительны общей скорости, без замеров = 1
	relative := func(bucket domain.TimeOfDayBucket) float64 {
		values := buckets[bucket]
		if len(values) == 0 || speed <= 0 {
			return 1
		}
		return round3(mean(values) / speed)
	}

	return &domain.StaffPerformancePattern{
		SampleCount:          len(group),
		AvgDurationMinutes:   round3(mean(durations)),
		SpeedFactor:          round3(speed),
		ConsistencyScore:     round3(consistency),
		LateStartRate:        round3(fraction(late, started)),
		AvgLateStartMinutes:  round3(mean(lateMinutes)),
		MorningSpeedFactor:   relative(domain.BucketMorning),
		AfternoonSpeedFactor: relative(domain.BucketAfternoon),
		EveningSpeedFactor:   relative(domain.BucketEvening),
	}
}

// updateCustomerPreferences пересчитывает привычки клиентов, встречавшихся среди услуг салона
func (s *Service) updateCustomerPreferences(ctx context.Context, jobs []*domain.JobRecord, result *domain.BatchResult) {
	seen := make(map[int64]struct{})
	customers := make([]int64, 0)
	for _, job := range jobs {
		if _, ok := seen[job.CustomerID]; ok {
			continue
		}
		seen[job.CustomerID] = struct{}{}
		customers = append(customers, job.CustomerID)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i] < customers[j] })

	since := s.windowStart()
	for _, customerID := range customers {
		visits, err := s.jobRepo.ListCheckedInByCustomerSince(ctx, customerID, since)
		if err != nil {
			s.logger.Error("updateCustomerPreferences: job repository error for customer=%d: %v", customerID, err)
			result.Fail("customer", customerID, err)
			continue
		}

		pref := buildTimingPreference(customerID, visits, s.policy.DefaultBufferMinutes)
		if pref == nil {
			result.Skip("customer", customerID, "no check-ins")
			continue
		}
		pref.UpdatedAt = s.timeProvider.Now()

		if err := s.customerRepo.UpsertTimingPreference(ctx, pref); err != nil {
			s.logger.Error("updateCustomerPreferences: failed to save customer=%d: %v", customerID, err)
			result.Fail("customer", customerID, err)
			continue
		}
		result.OK("customer", customerID, "")
		result.Inc("customer_preferences_upserted")
	}
}

// buildTimingPreference считает привычки клиента по отметкам прихода
func buildTimingPreference(customerID int64, visits []*domain.JobRecord, defaultBuffer int) *domain.CustomerTimingPreference {
	arrivals := make([]float64, 0, len(visits))
	lateness := make([]float64, 0)
	for _, visit := range visits {
		before, ok := visit.ArrivalMinutesBefore()
		if !ok {
			continue
		}
		arrivals = append(arrivals, float64(before))
		if before < 0 {
			lateness = append(lateness, float64(-before))
		}
	}
	if len(arrivals) == 0 {
		return nil
	}

	pref := &domain.CustomerTimingPreference{
		CustomerID:              customerID,
		VisitCount:              len(arrivals),
		AvgArrivalMinutesBefore: round3(mean(arrivals)),
		LateArrivalRate:         round3(fraction(len(lateness), len(arrivals))),
		AvgLateMinutes:          round3(mean(lateness)),
		ConfidenceScore:         domain.SampleConfidence(len(arrivals), domain.CustomerPreferenceSaturation),
	}
	pref.RecommendedBufferMinutes = RecommendBuffer(pref, defaultBuffer).BufferMinutes
	return pref
}

// recordOutcomes сравнивает прогноз уведомления с фактическим началом услуги
func (s *Service) recordOutcomes(ctx context.Context, salonID int64, date time.Time, result *domain.BatchResult) {
	date = domain.DateOnly(date)
	alerts, err := s.alertRepo.ListBySalonAndDate(ctx, salonID, date)
	if err != nil {
		s.logger.Error("recordOutcomes: alert repository error for salon=%d: %v", salonID, err)
		result.Fail("salon", salonID, err)
		return
	}
	if len(alerts) == 0 {
		return
	}

	jobs, err := s.jobRepo.ListCompletedBySalonAndDate(ctx, salonID, date)
	if err != nil {
		s.logger.Error("recordOutcomes: job repository error for salon=%d: %v", salonID, err)
		result.Fail("salon", salonID, err)
		return
	}
	byBooking := make(map[int64]*domain.JobRecord, len(jobs))
	for _, job := range jobs {
		byBooking[job.BookingID] = job
	}

	for _, alert := range alerts {
		job, ok := byBooking[alert.BookingID]
		if !ok || job.StartedAt == nil {
			continue
		}

		exists, err := s.accuracyRepo.ExistsForBooking(ctx, alert.BookingID, domain.PredictionStartTime)
		if err != nil {
			result.Fail("accuracy", alert.BookingID, err)
			continue
		}
		if exists {
			result.Skip("accuracy", alert.BookingID, "already recorded")
			continue
		}

		entry := outcomeLog(alert, job)
		if err := s.accuracyRepo.Append(ctx, entry); err != nil {
			s.logger.Error("recordOutcomes: failed to append booking=%d: %v", alert.BookingID, err)
			result.Fail("accuracy", alert.BookingID, err)
			continue
		}
		result.OK("accuracy", alert.BookingID, "")
		result.Inc("outcomes_recorded")
	}
}

func outcomeLog(alert *domain.DepartureAlert, job *domain.JobRecord) *domain.PredictionAccuracyLog {
	actualStart := types.NewTimeOfDay(*job.StartedAt)
	actualDelay := alert.OriginalBookingTime.MinutesUntil(actualStart)
	if actualDelay < 0 {
		actualDelay = 0
	}
	errMinutes := int(math.Abs(float64(alert.PredictedStartTime.MinutesUntil(actualStart))))

	entry := &domain.PredictionAccuracyLog{
		BookingID:             alert.BookingID,
		SalonID:               alert.SalonID,
		StaffID:               alert.StaffID,
		PredictionType:        domain.PredictionStartTime,
		PredictedStartTime:    alert.PredictedStartTime,
		PredictedDelayMinutes: alert.DelayMinutes,
		ActualStartTime:       &actualStart,
		ActualDelayMinutes:    &actualDelay,
		ActualDurationMinutes: job.ActualDurationMinutes,
		ErrorMinutes:          &errMinutes,
		Source:                alert.Snapshot.Source,
		FactorsUsed:           alert.Snapshot,
	}
	if entry.Source == "" {
		entry.Source = domain.SourceQueue
	}
	if alert.Snapshot.DurationMinutes > 0 {
		duration := alert.Snapshot.DurationMinutes
		entry.PredictedDurationMinutes = &duration
	}
	return entry
}
