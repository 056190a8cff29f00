package accuracy

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
	"github.com/m04kA/SMC-QueueService/pkg/psqlbuilder"
)

// Repository журнал точности прогнозов (только добавление и очистка по сроку хранения)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Append добавляет запись в журнал
func (r *Repository) Append(ctx context.Context, l *domain.PredictionAccuracyLog) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("prediction_accuracy_logs").
		Columns(
			"booking_id",
			"salon_id",
			"staff_id",
			"prediction_type",
			"predicted_start_time",
			"predicted_delay_minutes",
			"predicted_duration_minutes",
			"actual_start_time",
			"actual_delay_minutes",
			"actual_duration_minutes",
			"error_minutes",
			"source",
			"factors_used",
			"created_at",
		).
		Values(
			l.BookingID,
			l.SalonID,
			l.StaffID,
			l.PredictionType,
			l.PredictedStartTime,
			l.PredictedDelayMinutes,
			l.PredictedDurationMinutes,
			l.ActualStartTime,
			l.ActualDelayMinutes,
			l.ActualDurationMinutes,
			l.ErrorMinutes,
			l.Source,
			l.FactorsUsed,
			l.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Append - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&l.ID); err != nil {
		return fmt.Errorf("%w: Append - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ExistsForBooking проверяет, записан ли уже исход прогноза для брони
func (r *Repository) ExistsForBooking(ctx context.Context, bookingID int64, predictionType domain.PredictionType) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		Prefix("SELECT EXISTS (").
		From("prediction_accuracy_logs").
		Where(squirrel.Eq{"booking_id": bookingID, "prediction_type": predictionType}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: ExistsForBooking - build select query: %v", ErrBuildQuery, err)
	}

	var exists bool
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: ExistsForBooking - execute query: %v", ErrExecQuery, err)
	}

	return exists, nil
}

// DeleteOlderThan удаляет записи старше границы, возвращает число удалённых строк
func (r *Repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("prediction_accuracy_logs").
		Where(squirrel.Lt{"created_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteOlderThan - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteOlderThan - execute delete: %v", ErrExecQuery, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteOlderThan - get rows affected: %v", ErrExecQuery, err)
	}

	return deleted, nil
}
