package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	analyticsRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/analytics"
	customerRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/customer"
	"github.com/m04kA/SMC-QueueService/pkg/ptr"
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type subscriptionMock struct{ mock.Mock }

func (m *subscriptionMock) IsPremium(ctx context.Context, salonID int64) bool {
	return m.Called(ctx, salonID).Bool(0)
}

type fakeAnalyticsRepo struct {
	timings  map[timingKey]*domain.ServiceTimingAnalytics
	patterns map[patternKey]*domain.StaffPerformancePattern
	failGet  error

	upsertedTimings  []*domain.ServiceTimingAnalytics
	upsertedPatterns []*domain.StaffPerformancePattern
}

func (f *fakeAnalyticsRepo) GetServiceTiming(_ context.Context, _, serviceID int64, dayOfWeek, hourBlock int) (*domain.ServiceTimingAnalytics, error) {
	if t, ok := f.timings[timingKey{serviceID: serviceID, dayOfWeek: dayOfWeek, hour: hourBlock}]; ok {
		return t, nil
	}
	return nil, analyticsRepo.ErrServiceTimingNotFound
}

func (f *fakeAnalyticsRepo) UpsertServiceTiming(_ context.Context, a *domain.ServiceTimingAnalytics) error {
	f.upsertedTimings = append(f.upsertedTimings, a)
	return nil
}

func (f *fakeAnalyticsRepo) GetStaffPattern(_ context.Context, staffID int64, serviceID *int64, _ *int) (*domain.StaffPerformancePattern, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	key := patternKey{staffID: staffID, all: serviceID == nil}
	if serviceID != nil {
		key.serviceID = *serviceID
	}
	if p, ok := f.patterns[key]; ok {
		return p, nil
	}
	return nil, analyticsRepo.ErrStaffPatternNotFound
}

func (f *fakeAnalyticsRepo) UpsertStaffPattern(_ context.Context, p *domain.StaffPerformancePattern) error {
	f.upsertedPatterns = append(f.upsertedPatterns, p)
	return nil
}

type fakeCustomerRepo struct {
	prefs    map[int64]*domain.CustomerTimingPreference
	upserted []*domain.CustomerTimingPreference
}

func (f *fakeCustomerRepo) GetTimingPreference(_ context.Context, customerID int64) (*domain.CustomerTimingPreference, error) {
	if p, ok := f.prefs[customerID]; ok {
		return p, nil
	}
	return nil, customerRepo.ErrTimingPreferenceNotFound
}

func (f *fakeCustomerRepo) UpsertTimingPreference(_ context.Context, p *domain.CustomerTimingPreference) error {
	f.upserted = append(f.upserted, p)
	return nil
}

type fakeJobRepo struct {
	window    []*domain.JobRecord
	sinceArgs []time.Time
	byDate    []*domain.JobRecord
	visits    map[int64][]*domain.JobRecord
}

func (f *fakeJobRepo) ListCompletedBySalonSince(_ context.Context, _ int64, since time.Time) ([]*domain.JobRecord, error) {
	f.sinceArgs = append(f.sinceArgs, since)
	return f.window, nil
}

func (f *fakeJobRepo) ListCompletedBySalonAndDate(context.Context, int64, time.Time) ([]*domain.JobRecord, error) {
	return f.byDate, nil
}

func (f *fakeJobRepo) ListCheckedInByCustomerSince(_ context.Context, customerID int64, _ time.Time) ([]*domain.JobRecord, error) {
	return f.visits[customerID], nil
}

type fakeAlertRepo struct {
	alerts []*domain.DepartureAlert
}

func (f *fakeAlertRepo) ListBySalonAndDate(context.Context, int64, time.Time) ([]*domain.DepartureAlert, error) {
	return f.alerts, nil
}

type fakeAccuracyRepo struct {
	existing map[int64]bool
	appended []*domain.PredictionAccuracyLog
	before   time.Time
}

func (f *fakeAccuracyRepo) Append(_ context.Context, l *domain.PredictionAccuracyLog) error {
	f.appended = append(f.appended, l)
	return nil
}

func (f *fakeAccuracyRepo) ExistsForBooking(_ context.Context, bookingID int64, _ domain.PredictionType) (bool, error) {
	return f.existing[bookingID], nil
}

func (f *fakeAccuracyRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 7, nil
}

// 2026-10-19 - понедельник, множитель дня недели 1.0
var (
	monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	now    = time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
)

type fixture struct {
	sub       *subscriptionMock
	analytics *fakeAnalyticsRepo
	customers *fakeCustomerRepo
	jobs      *fakeJobRepo
	alerts    *fakeAlertRepo
	accuracy  *fakeAccuracyRepo
	svc       *Service
}

func newFixture(premium bool) *fixture {
	f := &fixture{
		sub:       &subscriptionMock{},
		analytics: &fakeAnalyticsRepo{timings: map[timingKey]*domain.ServiceTimingAnalytics{}, patterns: map[patternKey]*domain.StaffPerformancePattern{}},
		customers: &fakeCustomerRepo{prefs: map[int64]*domain.CustomerTimingPreference{}},
		jobs:      &fakeJobRepo{visits: map[int64][]*domain.JobRecord{}},
		alerts:    &fakeAlertRepo{},
		accuracy:  &fakeAccuracyRepo{existing: map[int64]bool{}},
	}
	f.sub.On("IsPremium", mock.Anything, int64(100)).Return(premium)
	f.svc = NewService(f.sub, f.analytics, f.customers, f.jobs, f.alerts, f.accuracy, domain.DefaultPolicy(), nopLogger{})
	f.svc.timeProvider = fixedTime{t: now}
	return f
}

func enhancementRequest() domain.EnhancementRequest {
	return domain.EnhancementRequest{
		SalonID:                100,
		StaffID:                ptr.Ptr(int64(1)),
		ServiceID:              5,
		BookingDate:            monday,
		StartTime:              types.ParseTimeOfDayOrZero("10:00"),
		QueuePosition:          2,
		CurrentJobDelayMinutes: 10,
		DurationMinutes:        30,
	}
}

func TestGetEnhancedPrediction_BlendsFactors(t *testing.T) {
	f := newFixture(true)
	// паттерна по услуге нет, используется общий
	f.analytics.patterns[patternKey{staffID: 1, all: true}] = &domain.StaffPerformancePattern{
		SpeedFactor: 1.2, ConsistencyScore: 0.8, SampleCount: 40,
	}
	f.analytics.timings[timingKey{serviceID: 5, dayOfWeek: 1, hour: 10}] = &domain.ServiceTimingAnalytics{
		AvgOverrunMinutes: 5, SampleCount: 25, AvgDurationMinutes: 35,
	}

	enh, err := f.svc.GetEnhancedPrediction(context.Background(), enhancementRequest())
	require.NoError(t, err)
	require.NotNil(t, enh)

	// 10 + 5*1.2 * 2 * 1.04 / 0.8
	assert.Equal(t, 26, enh.PredictedDelayMinutes)
	assert.Equal(t, 36, enh.PredictedDurationMinutes)
	// 0.6 * 40/50 + 0.4 * 25/50
	assert.InDelta(t, 0.68, enh.Confidence, 1e-9)
	assert.InDelta(t, 1.04, enh.Factors.QueuePositionFactor, 1e-9)
	assert.Equal(t, 1.0, enh.Factors.TimeOfDayFactor)
	assert.Equal(t, 1.0, enh.Factors.DayOfWeekMultiplier)
}

func TestGetEnhancedPrediction_ConsistencyIsFloored(t *testing.T) {
	f := newFixture(true)
	f.analytics.patterns[patternKey{staffID: 1, serviceID: 5}] = &domain.StaffPerformancePattern{
		SpeedFactor: 1, ConsistencyScore: 0.1, SampleCount: 500,
	}
	f.analytics.timings[timingKey{serviceID: 5, dayOfWeek: 1, hour: 10}] = &domain.ServiceTimingAnalytics{
		AvgOverrunMinutes: 3, SampleCount: 500,
	}
	req := enhancementRequest()
	req.QueuePosition = 1
	req.CurrentJobDelayMinutes = 0

	enh, err := f.svc.GetEnhancedPrediction(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, enh)

	// 3 * 1 * 1.02 / 0.3
	assert.Equal(t, 10, enh.PredictedDelayMinutes)
	assert.Equal(t, domain.MinConsistencyScore, enh.Factors.ConsistencyScore)
	assert.Equal(t, 1.0, enh.Confidence)
}

func TestGetEnhancedPrediction_Unavailable(t *testing.T) {
	t.Run("not premium", func(t *testing.T) {
		f := newFixture(false)
		enh, err := f.svc.GetEnhancedPrediction(context.Background(), enhancementRequest())
		require.NoError(t, err)
		assert.Nil(t, enh)
		f.sub.AssertCalled(t, "IsPremium", mock.Anything, int64(100))
	})

	t.Run("no staff pattern", func(t *testing.T) {
		f := newFixture(true)
		enh, err := f.svc.GetEnhancedPrediction(context.Background(), enhancementRequest())
		require.NoError(t, err)
		assert.Nil(t, enh)
	})

	t.Run("no service timing", func(t *testing.T) {
		f := newFixture(true)
		f.analytics.patterns[patternKey{staffID: 1, all: true}] = &domain.StaffPerformancePattern{SpeedFactor: 1, SampleCount: 10}
		enh, err := f.svc.GetEnhancedPrediction(context.Background(), enhancementRequest())
		require.NoError(t, err)
		assert.Nil(t, enh)
	})

	t.Run("booking without staff", func(t *testing.T) {
		f := newFixture(true)
		req := enhancementRequest()
		req.StaffID = nil
		enh, err := f.svc.GetEnhancedPrediction(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, enh)
		f.sub.AssertNotCalled(t, "IsPremium", mock.Anything, mock.Anything)
	})

	t.Run("tier already checked by caller", func(t *testing.T) {
		f := newFixture(false)
		f.analytics.patterns[patternKey{staffID: 1, all: true}] = &domain.StaffPerformancePattern{
			SpeedFactor: 1.2, ConsistencyScore: 0.8, SampleCount: 40,
		}
		f.analytics.timings[timingKey{serviceID: 5, dayOfWeek: 1, hour: 10}] = &domain.ServiceTimingAnalytics{
			AvgOverrunMinutes: 5, SampleCount: 25, AvgDurationMinutes: 35,
		}
		req := enhancementRequest()
		req.PremiumChecked = true
		enh, err := f.svc.GetEnhancedPrediction(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, enh)
		assert.Equal(t, 26, enh.PredictedDelayMinutes)
		f.sub.AssertNotCalled(t, "IsPremium", mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(true)
		f.analytics.failGet = errors.New("db down")
		_, err := f.svc.GetEnhancedPrediction(context.Background(), enhancementRequest())
		assert.ErrorIs(t, err, ErrInternal)
	})
}

func TestRecommendBuffer(t *testing.T) {
	tests := []struct {
		name       string
		pref       *domain.CustomerTimingPreference
		wantBuffer int
		wantReason string
	}{
		{name: "no history", pref: nil, wantBuffer: 15, wantReason: "insufficient_history"},
		{name: "single visit", pref: &domain.CustomerTimingPreference{VisitCount: 1, LateArrivalRate: 1, AvgLateMinutes: 20}, wantBuffer: 15, wantReason: "insufficient_history"},
		{name: "often late", pref: &domain.CustomerTimingPreference{VisitCount: 5, LateArrivalRate: 0.5, AvgLateMinutes: 12}, wantBuffer: 22, wantReason: "frequently_late"},
		{name: "often late capped", pref: &domain.CustomerTimingPreference{VisitCount: 5, LateArrivalRate: 0.5, AvgLateMinutes: 30}, wantBuffer: 30, wantReason: "frequently_late"},
		{name: "often late but slightly", pref: &domain.CustomerTimingPreference{VisitCount: 5, LateArrivalRate: 0.4, AvgLateMinutes: 2}, wantBuffer: 15, wantReason: "frequently_late"},
		{name: "arrives early", pref: &domain.CustomerTimingPreference{VisitCount: 5, AvgArrivalMinutesBefore: 25}, wantBuffer: 20, wantReason: "arrives_early"},
		{name: "arrives early rounded", pref: &domain.CustomerTimingPreference{VisitCount: 5, AvgArrivalMinutesBefore: 22.4}, wantBuffer: 17, wantReason: "arrives_early"},
		{name: "arrives very early", pref: &domain.CustomerTimingPreference{VisitCount: 5, AvgArrivalMinutesBefore: 40}, wantBuffer: 35, wantReason: "arrives_early"},
		{name: "punctual", pref: &domain.CustomerTimingPreference{VisitCount: 5, AvgArrivalMinutesBefore: 10, LateArrivalRate: 0.05}, wantBuffer: 12, wantReason: "punctual"},
		{name: "typical", pref: &domain.CustomerTimingPreference{VisitCount: 5, AvgArrivalMinutesBefore: 10, LateArrivalRate: 0.2}, wantBuffer: 15, wantReason: "typical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RecommendBuffer(tt.pref, 15)
			assert.Equal(t, tt.wantBuffer, rec.BufferMinutes)
			assert.Equal(t, tt.wantReason, rec.Reason)
		})
	}
}

func TestGetPersonalizedBuffer_DefaultForNewCustomer(t *testing.T) {
	f := newFixture(true)
	f.customers.prefs[7] = &domain.CustomerTimingPreference{CustomerID: 7, VisitCount: 1}

	rec, err := f.svc.GetPersonalizedBuffer(context.Background(), 7, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, rec.BufferMinutes)
	assert.Equal(t, domain.DefaultBufferConfidence, rec.Confidence)

	rec, err = f.svc.GetPersonalizedBuffer(context.Background(), 404, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, rec.BufferMinutes)
}

func job(staffID, serviceID int64, start string, estimated, actual int) *domain.JobRecord {
	return &domain.JobRecord{
		SalonID:                  100,
		StaffID:                  staffID,
		ServiceID:                serviceID,
		BookingDate:              monday,
		ScheduledStart:           types.ParseTimeOfDayOrZero(start),
		Status:                   domain.JobCompleted,
		EstimatedDurationMinutes: ptr.Ptr(estimated),
		ActualDurationMinutes:    ptr.Ptr(actual),
	}
}

func TestUpdateServiceTimingAnalytics(t *testing.T) {
	f := newFixture(true)
	f.jobs.window = []*domain.JobRecord{
		job(1, 5, "10:00", 30, 30),
		job(1, 5, "10:30", 30, 36),
		job(2, 5, "10:45", 30, 42),
		job(1, 6, "10:00", 60, 60),
		job(1, 6, "10:00", 60, 70),
	}

	result, err := f.svc.UpdateServiceTimingAnalytics(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, monday.AddDate(0, 0, -30), f.jobs.sinceArgs[0])
	require.Len(t, f.analytics.upsertedTimings, 1)
	got := f.analytics.upsertedTimings[0]
	assert.Equal(t, int64(5), got.ServiceID)
	assert.Equal(t, 1, got.DayOfWeek)
	assert.Equal(t, 10, got.HourBlock)
	assert.Equal(t, 3, got.SampleCount)
	assert.Equal(t, 36.0, got.AvgDurationMinutes)
	assert.Equal(t, 4.899, got.StdDevDurationMinutes)
	assert.Equal(t, 30, got.MinDurationMinutes)
	assert.Equal(t, 42, got.MaxDurationMinutes)
	assert.Equal(t, 6.0, got.AvgOverrunMinutes)
	assert.Equal(t, 0.667, got.OverrunRate)
	assert.Equal(t, 1, result.Count(domain.EntitySkipped))
}

func TestUpdateStaffPerformancePatterns(t *testing.T) {
	f := newFixture(true)
	onTime := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)

	j1 := job(1, 5, "09:00", 30, 30)
	j1.StartedAt = &onTime
	j2 := job(1, 5, "10:00", 30, 33)
	j2.StartedAt = &late
	f.jobs.window = []*domain.JobRecord{
		j1, j2,
		job(1, 5, "10:30", 30, 36),
		job(1, 5, "11:00", 30, 30),
		job(1, 5, "11:30", 30, 36),
		job(2, 5, "10:00", 30, 30),
	}

	result, err := f.svc.UpdateStaffPerformancePatterns(context.Background(), 100)
	require.NoError(t, err)

	// (1, 5) и (1, все услуги), мастер 2 пропущен дважды
	require.Len(t, f.analytics.upsertedPatterns, 2)
	assert.Equal(t, 2, result.Count(domain.EntitySkipped))

	byService := f.analytics.upsertedPatterns[0]
	require.NotNil(t, byService.ServiceID)
	assert.Equal(t, int64(5), *byService.ServiceID)
	assert.Nil(t, f.analytics.upsertedPatterns[1].ServiceID)

	assert.Equal(t, 5, byService.SampleCount)
	assert.Equal(t, 1.1, byService.SpeedFactor)
	assert.Equal(t, 0.993, byService.ConsistencyScore)
	assert.Equal(t, 0.5, byService.LateStartRate)
	assert.Equal(t, 5.0, byService.AvgLateStartMinutes)
	assert.Equal(t, 1.0, byService.MorningSpeedFactor)
	assert.Equal(t, 1.0, byService.EveningSpeedFactor)
}

func TestUpdateCustomerTimingPreferences(t *testing.T) {
	f := newFixture(true)
	f.jobs.window = []*domain.JobRecord{
		{CustomerID: 7, SalonID: 100},
		{CustomerID: 8, SalonID: 100},
		{CustomerID: 7, SalonID: 100},
	}
	visit := func(start string, checkIn time.Time) *domain.JobRecord {
		return &domain.JobRecord{CustomerID: 7, ScheduledStart: types.ParseTimeOfDayOrZero(start), CheckedInAt: &checkIn}
	}
	f.jobs.visits[7] = []*domain.JobRecord{
		visit("10:00", time.Date(2026, 10, 1, 9, 50, 0, 0, time.UTC)),
		visit("10:00", time.Date(2026, 10, 8, 10, 5, 0, 0, time.UTC)),
		visit("10:00", time.Date(2026, 10, 15, 9, 40, 0, 0, time.UTC)),
	}

	result, err := f.svc.UpdateCustomerTimingPreferences(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, f.customers.upserted, 1)
	pref := f.customers.upserted[0]
	assert.Equal(t, int64(7), pref.CustomerID)
	assert.Equal(t, 3, pref.VisitCount)
	assert.Equal(t, 8.333, pref.AvgArrivalMinutesBefore)
	assert.Equal(t, 0.333, pref.LateArrivalRate)
	assert.Equal(t, 5.0, pref.AvgLateMinutes)
	assert.InDelta(t, 0.3, pref.ConfidenceScore, 1e-9)
	assert.Equal(t, 15, pref.RecommendedBufferMinutes)
	assert.Equal(t, 1, result.Count(domain.EntitySkipped))
}

func TestAggregationsSkipNonPremiumSalon(t *testing.T) {
	f := newFixture(false)
	f.jobs.window = []*domain.JobRecord{job(1, 5, "10:00", 30, 30)}

	result := f.svc.RunSalonAnalytics(context.Background(), 100, monday)
	assert.Equal(t, 1, result.Count(domain.EntitySkipped))
	assert.Empty(t, f.jobs.sinceArgs)
	assert.Empty(t, f.analytics.upsertedTimings)
}

func TestRecordPredictionOutcomes(t *testing.T) {
	f := newFixture(true)
	started := time.Date(2026, 10, 19, 14, 20, 0, 0, time.UTC)
	f.alerts.alerts = []*domain.DepartureAlert{
		{
			BookingID: 1, SalonID: 100, StaffID: ptr.Ptr(int64(3)),
			OriginalBookingTime: types.ParseTimeOfDayOrZero("14:00"),
			PredictedStartTime:  types.ParseTimeOfDayOrZero("14:18"),
			DelayMinutes:        18,
			Snapshot:            domain.CalculationSnapshot{Source: domain.SourceEnhanced, DurationMinutes: 40},
		},
		{BookingID: 2, SalonID: 100},
		{BookingID: 3, SalonID: 100},
	}
	f.jobs.byDate = []*domain.JobRecord{
		{BookingID: 1, StartedAt: &started, ActualDurationMinutes: ptr.Ptr(45)},
		{BookingID: 2},
		{BookingID: 3, StartedAt: &started},
	}
	f.accuracy.existing[3] = true

	result := f.svc.RecordPredictionOutcomes(context.Background(), 100, monday)

	require.Len(t, f.accuracy.appended, 1)
	entry := f.accuracy.appended[0]
	assert.Equal(t, int64(1), entry.BookingID)
	assert.Equal(t, 20, *entry.ActualDelayMinutes)
	assert.Equal(t, 2, *entry.ErrorMinutes)
	assert.Equal(t, 40, *entry.PredictedDurationMinutes)
	assert.Equal(t, domain.SourceEnhanced, entry.Source)
	assert.Equal(t, 1, result.Count(domain.EntitySkipped))
	assert.Equal(t, 1, result.Counters["outcomes_recorded"])
}

func TestPruneAccuracyLogs(t *testing.T) {
	f := newFixture(true)

	deleted, err := f.svc.PruneAccuracyLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, now.AddDate(0, 0, -90), f.accuracy.before)
}
