package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
	"github.com/m04kA/SMC-QueueService/pkg/psqlbuilder"
)

// Repository репозиторий агрегированной статистики (тайминги услуг и паттерны мастеров)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetServiceTiming статистика услуги для дня недели и часа
func (r *Repository) GetServiceTiming(ctx context.Context, salonID, serviceID int64, dayOfWeek, hourBlock int) (*domain.ServiceTimingAnalytics, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"salon_id",
		"service_id",
		"day_of_week",
		"hour_block",
		"sample_count",
		"avg_duration_minutes",
		"stddev_duration_minutes",
		"min_duration_minutes",
		"max_duration_minutes",
		"avg_overrun_minutes",
		"overrun_rate",
		"confidence_score",
		"last_calculated_at",
	).
		From("service_timing_analytics").
		Where(squirrel.Eq{
			"salon_id":    salonID,
			"service_id":  serviceID,
			"day_of_week": dayOfWeek,
			"hour_block":  hourBlock,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetServiceTiming - build select query: %v", ErrBuildQuery, err)
	}

	var a domain.ServiceTimingAnalytics
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&a.SalonID,
		&a.ServiceID,
		&a.DayOfWeek,
		&a.HourBlock,
		&a.SampleCount,
		&a.AvgDurationMinutes,
		&a.StdDevDurationMinutes,
		&a.MinDurationMinutes,
		&a.MaxDurationMinutes,
		&a.AvgOverrunMinutes,
		&a.OverrunRate,
		&a.ConfidenceScore,
		&a.LastCalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceTimingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetServiceTiming - scan row: %v", ErrScanRow, err)
	}

	return &a, nil
}

// UpsertServiceTiming вставляет или перезаписывает статистику по ключу (salon, service, day_of_week, hour_block)
func (r *Repository) UpsertServiceTiming(ctx context.Context, a *domain.ServiceTimingAnalytics) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("service_timing_analytics").
		Columns(
			"salon_id",
			"service_id",
			"day_of_week",
			"hour_block",
			"sample_count",
			"avg_duration_minutes",
			"stddev_duration_minutes",
			"min_duration_minutes",
			"max_duration_minutes",
			"avg_overrun_minutes",
			"overrun_rate",
			"confidence_score",
			"last_calculated_at",
		).
		Values(
			a.SalonID,
			a.ServiceID,
			a.DayOfWeek,
			a.HourBlock,
			a.SampleCount,
			a.AvgDurationMinutes,
			a.StdDevDurationMinutes,
			a.MinDurationMinutes,
			a.MaxDurationMinutes,
			a.AvgOverrunMinutes,
			a.OverrunRate,
			a.ConfidenceScore,
			a.LastCalculatedAt,
		).
		Suffix(`ON CONFLICT (salon_id, service_id, day_of_week, hour_block) DO UPDATE SET
			sample_count = EXCLUDED.sample_count,
			avg_duration_minutes = EXCLUDED.avg_duration_minutes,
			stddev_duration_minutes = EXCLUDED.stddev_duration_minutes,
			min_duration_minutes = EXCLUDED.min_duration_minutes,
			max_duration_minutes = EXCLUDED.max_duration_minutes,
			avg_overrun_minutes = EXCLUDED.avg_overrun_minutes,
			overrun_rate = EXCLUDED.overrun_rate,
			confidence_score = EXCLUDED.confidence_score,
			last_calculated_at = EXCLUDED.last_calculated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpsertServiceTiming - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertServiceTiming - execute upsert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetStaffPattern паттерн мастера по ключу (staff, service, day_of_week)
// nil serviceID / dayOfWeek означает агрегат по всем услугам / дням
func (r *Repository) GetStaffPattern(ctx context.Context, staffID int64, serviceID *int64, dayOfWeek *int) (*domain.StaffPerformancePattern, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"staff_id",
		"salon_id",
		"service_id",
		"day_of_week",
		"sample_count",
		"avg_duration_minutes",
		"speed_factor",
		"consistency_score",
		"late_start_rate",
		"avg_late_start_minutes",
		"morning_speed_factor",
		"afternoon_speed_factor",
		"evening_speed_factor",
		"last_calculated_at",
	).
		From("staff_performance_patterns").
		Where(squirrel.Eq{"staff_id": staffID}).
		Where(nullableEq("service_id", serviceID)).
		Where(nullableEq("day_of_week", dayOfWeek)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetStaffPattern - build select query: %v", ErrBuildQuery, err)
	}

	var p domain.StaffPerformancePattern
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&p.ID,
		&p.StaffID,
		&p.SalonID,
		&p.ServiceID,
		&p.DayOfWeek,
		&p.SampleCount,
		&p.AvgDurationMinutes,
		&p.SpeedFactor,
		&p.ConsistencyScore,
		&p.LateStartRate,
		&p.AvgLateStartMinutes,
		&p.MorningSpeedFactor,
		&p.AfternoonSpeedFactor,
		&p.EveningSpeedFactor,
		&p.LastCalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetStaffPattern - scan row: %v", ErrScanRow, err)
	}

	return &p, nil
}

// UpsertStaffPattern вставляет или перезаписывает паттерн мастера
func (r *Repository) UpsertStaffPattern(ctx context.Context, p *domain.StaffPerformancePattern) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("staff_performance_patterns").
		Columns(
			"staff_id",
			"salon_id",
			"service_id",
			"day_of_week",
			"sample_count",
			"avg_duration_minutes",
			"speed_factor",
			"consistency_score",
			"late_start_rate",
			"avg_late_start_minutes",
			"morning_speed_factor",
			"afternoon_speed_factor",
			"evening_speed_factor",
			"last_calculated_at",
		).
		Values(
			p.StaffID,
			p.SalonID,
			p.ServiceID,
			p.DayOfWeek,
			p.SampleCount,
			p.AvgDurationMinutes,
			p.SpeedFactor,
			p.ConsistencyScore,
			p.LateStartRate,
			p.AvgLateStartMinutes,
			p.MorningSpeedFactor,
			p.AfternoonSpeedFactor,
			p.EveningSpeedFactor,
			p.LastCalculatedAt,
		).
		Suffix(`ON CONFLICT (staff_id, COALESCE(service_id, 0), COALESCE(day_of_week, -1)) DO UPDATE SET
			salon_id = EXCLUDED.salon_id,
			sample_count = EXCLUDED.sample_count,
			avg_duration_minutes = EXCLUDED.avg_duration_minutes,
			speed_factor = EXCLUDED.speed_factor,
			consistency_score = EXCLUDED.consistency_score,
			late_start_rate = EXCLUDED.late_start_rate,
			avg_late_start_minutes = EXCLUDED.avg_late_start_minutes,
			morning_speed_factor = EXCLUDED.morning_speed_factor,
			afternoon_speed_factor = EXCLUDED.afternoon_speed_factor,
			evening_speed_factor = EXCLUDED.evening_speed_factor,
			last_calculated_at = EXCLUDED.last_calculated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpsertStaffPattern - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertStaffPattern - execute upsert: %v", ErrExecQuery, err)
	}

	return nil
}

// nullableEq "col = $n" для значения и "col IS NULL" для nil
func nullableEq[T any](column string, v *T) squirrel.Sqlizer {
	if v == nil {
		return squirrel.Eq{column: nil}
	}
	return squirrel.Eq{column: *v}
}
