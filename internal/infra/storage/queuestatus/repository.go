package queuestatus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
	"github.com/m04kA/SMC-QueueService/pkg/psqlbuilder"
)

var columns = []string{
	"q.id",
	"q.staff_id",
	"q.salon_id",
	"COALESCE(s.name, '')",
	"q.status_date",
	"q.status",
	"q.current_booking_id",
	"q.appointments_ahead",
	"q.current_job_delay_minutes",
	"q.estimated_delay_minutes",
	"q.next_available_at",
	"q.avg_overrun_percent",
	"q.updated_at",
}

// Repository репозиторий состояния очереди мастеров
// Одна строка на (staff, date), каждый пересчёт перезаписывает её
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Upsert сохраняет состояние очереди мастера (insert-or-update по staff_id, status_date)
func (r *Repository) Upsert(ctx context.Context, status *domain.StaffQueueStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("staff_queue_status").
		Columns(
			"staff_id",
			"salon_id",
			"status_date",
			"status",
			"current_booking_id",
			"appointments_ahead",
			"current_job_delay_minutes",
			"estimated_delay_minutes",
			"next_available_at",
			"avg_overrun_percent",
			"updated_at",
		).
		Values(
			status.StaffID,
			status.SalonID,
			domain.DateOnly(status.StatusDate),
			status.Status,
			status.CurrentBookingID,
			status.AppointmentsAhead,
			status.CurrentJobDelayMinutes,
			status.EstimatedDelayMinutes,
			status.NextAvailableAt,
			status.AvgOverrunPercent,
			status.UpdatedAt,
		).
		Suffix(`ON CONFLICT (staff_id, status_date) DO UPDATE SET
			salon_id = EXCLUDED.salon_id,
			status = EXCLUDED.status,
			current_booking_id = EXCLUDED.current_booking_id,
			appointments_ahead = EXCLUDED.appointments_ahead,
			current_job_delay_minutes = EXCLUDED.current_job_delay_minutes,
			estimated_delay_minutes = EXCLUDED.estimated_delay_minutes,
			next_available_at = EXCLUDED.next_available_at,
			avg_overrun_percent = EXCLUDED.avg_overrun_percent,
			updated_at = EXCLUDED.updated_at
		RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&status.ID); err != nil {
		return fmt.Errorf("%w: Upsert - execute upsert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByStaffAndDate сохранённое состояние очереди мастера
func (r *Repository) GetByStaffAndDate(ctx context.Context, staffID int64, date time.Time) (*domain.StaffQueueStatus, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("staff_queue_status q").
		LeftJoin("staff s ON s.id = q.staff_id").
		Where(squirrel.Eq{"q.staff_id": staffID, "q.status_date": domain.DateOnly(date)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByStaffAndDate - build select query: %v", ErrBuildQuery, err)
	}

	status, err := scanStatus(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByStaffAndDate - scan status: %v", ErrScanRow, err)
	}

	return status, nil
}

// ListBySalonAndDate сохранённые состояния очередей всех мастеров салона
func (r *Repository) ListBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.StaffQueueStatus, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("staff_queue_status q").
		LeftJoin("staff s ON s.id = q.staff_id").
		Where(squirrel.Eq{"q.salon_id": salonID, "q.status_date": domain.DateOnly(date)}).
		OrderBy("q.staff_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBySalonAndDate - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListBySalonAndDate - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	statuses := make([]*domain.StaffQueueStatus, 0)
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListBySalonAndDate - scan row: %v", ErrScanRow, err)
		}
		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListBySalonAndDate - rows error: %v", ErrScanRow, err)
	}

	return statuses, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStatus(row scanner) (*domain.StaffQueueStatus, error) {
	var s domain.StaffQueueStatus
	var nextAvailable sql.NullTime

	err := row.Scan(
		&s.ID,
		&s.StaffID,
		&s.SalonID,
		&s.StaffName,
		&s.StatusDate,
		&s.Status,
		&s.CurrentBookingID,
		&s.AppointmentsAhead,
		&s.CurrentJobDelayMinutes,
		&s.EstimatedDelayMinutes,
		&nextAvailable,
		&s.AvgOverrunPercent,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextAvailable.Valid {
		t := nextAvailable.Time
		s.NextAvailableAt = &t
	}

	return &s, nil
}
