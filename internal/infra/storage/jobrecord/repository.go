package jobrecord

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
	"id",
	"booking_id",
	"salon_id",
	"staff_id",
	"service_id",
	"customer_id",
	"booking_date",
	"scheduled_start",
	"status",
	"checked_in_at",
	"started_at",
	"completed_at",
	"estimated_duration_minutes",
	"actual_duration_minutes",
}

// Repository репозиторий записей о выполнении услуг (только чтение)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetInProgressByStaff текущая услуга мастера на дату
// Если услуг в работе несколько (не закрыли предыдущую), берётся начатая последней
func (r *Repository) GetInProgressByStaff(ctx context.Context, staffID int64, date time.Time) (*domain.JobRecord, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("job_records").
		Where(squirrel.Eq{
			"staff_id":     staffID,
			"booking_date": domain.DateOnly(date),
			"status":       domain.JobInProgress,
		}).
		OrderBy("started_at DESC NULLS LAST").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetInProgressByStaff - build select query: %v", ErrBuildQuery, err)
	}

	job, err := scanJob(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetInProgressByStaff - scan job: %v", ErrScanRow, err)
	}

	return job, nil
}

// ListCompletedByStaffAndDate завершённые услуги мастера за день
func (r *Repository) ListCompletedByStaffAndDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.JobRecord, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("job_records").
		Where(squirrel.Eq{
			"staff_id":     staffID,
			"booking_date": domain.DateOnly(date),
			"status":       domain.JobCompleted,
		}).
		OrderBy("completed_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListCompletedByStaffAndDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListCompletedByStaffAndDate", query, args)
}

// ListCompletedBySalonSince завершённые услуги салона начиная с даты (окно аналитики)
func (r *Repository) ListCompletedBySalonSince(ctx context.Context, salonID int64, since time.Time) ([]*domain.JobRecord, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("job_records").
		Where(squirrel.Eq{"salon_id": salonID, "status": domain.JobCompleted}).
		Where(squirrel.GtOrEq{"booking_date": domain.DateOnly(since)}).
		OrderBy("booking_date ASC", "scheduled_start ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListCompletedBySalonSince - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListCompletedBySalonSince", query, args)
}

// ListCompletedBySalonAndDate завершённые услуги салона за день
func (r *Repository) ListCompletedBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.JobRecord, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("job_records").
		Where(squirrel.Eq{
			"salon_id":     salonID,
			"booking_date": domain.DateOnly(date),
			"status":       domain.JobCompleted,
		}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListCompletedBySalonAndDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListCompletedBySalonAndDate", query, args)
}

// ListCheckedInByCustomerSince визиты клиента с отметкой о приходе начиная с даты (во всех салонах)
func (r *Repository) ListCheckedInByCustomerSince(ctx context.Context, customerID int64, since time.Time) ([]*domain.JobRecord, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("job_records").
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.NotEq{"checked_in_at": nil}).
		Where(squirrel.GtOrEq{"booking_date": domain.DateOnly(since)}).
		OrderBy("booking_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListCheckedInByCustomerSince - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListCheckedInByCustomerSince", query, args)
}

func (r *Repository) list(ctx context.Context, op, query string, args []interface{}) ([]*domain.JobRecord, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	jobs := make([]*domain.JobRecord, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, op, err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, op, err)
	}

	return jobs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*domain.JobRecord, error) {
	var job domain.JobRecord
	var checkedInAt, startedAt, completedAt sql.NullTime
	var estimated, actual sql.NullInt64

	err := row.Scan(
		&job.ID,
		&job.BookingID,
		&job.SalonID,
		&job.StaffID,
		&job.ServiceID,
		&job.CustomerID,
		&job.BookingDate,
		&job.ScheduledStart,
		&job.Status,
		&checkedInAt,
		&startedAt,
		&completedAt,
		&estimated,
		&actual,
	)
	if err != nil {
		return nil, err
	}

	job.CheckedInAt = nullTime(checkedInAt)
	job.StartedAt = nullTime(startedAt)
	job.CompletedAt = nullTime(completedAt)
	job.EstimatedDurationMinutes = nullInt(estimated)
	job.ActualDurationMinutes = nullInt(actual)

	return &job, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
