package booking

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
	"github.com/m04kA/SMC-QueueService/pkg/types"
)

var columns = []string{
	"id",
	"customer_id",
	"salon_id",
	"staff_id",
	"service_id",
	"booking_date",
	"start_time",
	"duration_minutes",
	"status",
	"created_at",
	"updated_at",
}

// Repository репозиторий бронирований (только чтение, бронированиями владеет сервис бронирований)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// ListAwaitingByStaffAndDate бронирования мастера на дату, ещё не начатые (pending/confirmed)
// Отсортированы по времени начала
func (r *Repository) ListAwaitingByStaffAndDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.Booking, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("bookings").
		Where(squirrel.Eq{"staff_id": staffID}).
		Where(squirrel.Eq{"booking_date": domain.DateOnly(date)}).
		Where(squirrel.Eq{"status": awaitingStatuses()}).
		OrderBy("start_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListAwaitingByStaffAndDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListAwaitingByStaffAndDate", query, args)
}

// ListAwaitingInWindow ожидающие бронирования на дату со временем начала в [from, to]
// Используется пересчётом уведомлений о выезде
func (r *Repository) ListAwaitingInWindow(ctx context.Context, date time.Time, from, to types.TimeOfDay) ([]*domain.Booking, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("bookings").
		Where(squirrel.Eq{"booking_date": domain.DateOnly(date)}).
		Where(squirrel.Eq{"status": awaitingStatuses()}).
		Where(squirrel.GtOrEq{"start_time": from}).
		Where(squirrel.LtOrEq{"start_time": to}).
		OrderBy("salon_id ASC", "start_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListAwaitingInWindow - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListAwaitingInWindow", query, args)
}

func (r *Repository) list(ctx context.Context, op, query string, args []interface{}) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, op, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, op, err)
	}

	return bookings, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row scanner) (*domain.Booking, error) {
	var booking domain.Booking
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.SalonID,
		&booking.StaffID,
		&booking.ServiceID,
		&booking.BookingDate,
		&booking.StartTime,
		&booking.DurationMinutes,
		&booking.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

func awaitingStatuses() []string {
	statuses := make([]string, len(domain.AwaitingStatuses))
	for i, s := range domain.AwaitingStatuses {
		statuses[i] = string(s)
	}
	return statuses
}
