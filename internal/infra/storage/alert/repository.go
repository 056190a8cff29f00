package alert

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
	"booking_id",
	"customer_id",
	"salon_id",
	"staff_id",
	"booking_date",
	"original_booking_time",
	"predicted_start_time",
	"delay_minutes",
	"delay_reason",
	"suggested_departure_time",
	"estimated_travel_minutes",
	"buffer_minutes",
	"departure_location",
	"alert_type",
	"priority",
	"calculation_snapshot",
	"notification_sent",
	"notification_sent_at",
	"notification_channel",
	"notification_message_id",
	"customer_acknowledged",
	"acknowledged_at",
	"customer_response",
	"actual_departure_time",
	"created_at",
	"updated_at",
}

// Repository репозиторий уведомлений о выезде
// Одна живая строка на (booking_id, booking_date), изменяется на месте
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает уведомление по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.DepartureAlert, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("departure_alerts").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	a, err := scanAlert(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan alert: %v", ErrScanRow, err)
	}

	return a, nil
}

// GetByBookingAndDate получает уведомление по брони и дате
// Внутри транзакции строка блокируется (FOR UPDATE), чтобы сравнение и запись шли атомарно
func (r *Repository) GetByBookingAndDate(ctx context.Context, bookingID int64, date time.Time) (*domain.DepartureAlert, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("departure_alerts").
		Where(squirrel.Eq{"booking_id": bookingID, "booking_date": domain.DateOnly(date)})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingAndDate - build select query: %v", ErrBuildQuery, err)
	}

	a, err := scanAlert(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingAndDate - scan alert: %v", ErrScanRow, err)
	}

	return a, nil
}

// Create создает уведомление
// Если строка на (booking_id, booking_date) уже есть, возвращает ErrAlertExists
func (r *Repository) Create(ctx context.Context, a *domain.DepartureAlert) (*domain.DepartureAlert, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("departure_alerts").
		Columns(
			"booking_id",
			"customer_id",
			"salon_id",
			"staff_id",
			"booking_date",
			"original_booking_time",
			"predicted_start_time",
			"delay_minutes",
			"delay_reason",
			"suggested_departure_time",
			"estimated_travel_minutes",
			"buffer_minutes",
			"departure_location",
			"alert_type",
			"priority",
			"calculation_snapshot",
			"notification_sent",
		).
		Values(
			a.BookingID,
			a.CustomerID,
			a.SalonID,
			a.StaffID,
			domain.DateOnly(a.BookingDate),
			a.OriginalBookingTime,
			a.PredictedStartTime,
			a.DelayMinutes,
			a.DelayReason,
			a.SuggestedDepartureTime,
			a.EstimatedTravelMinutes,
			a.BufferMinutes,
			a.DepartureLocation,
			a.AlertType,
			a.Priority,
			a.Snapshot,
			a.NotificationSent,
		).
		Suffix("ON CONFLICT (booking_id, booking_date) DO NOTHING RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertExists
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return a, nil
}

// Update перезаписывает рекомендацию и флаг отправки
func (r *Repository) Update(ctx context.Context, a *domain.DepartureAlert) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("departure_alerts").
		Set("staff_id", a.StaffID).
		Set("predicted_start_time", a.PredictedStartTime).
		Set("delay_minutes", a.DelayMinutes).
		Set("delay_reason", a.DelayReason).
		Set("suggested_departure_time", a.SuggestedDepartureTime).
		Set("estimated_travel_minutes", a.EstimatedTravelMinutes).
		Set("buffer_minutes", a.BufferMinutes).
		Set("departure_location", a.DepartureLocation).
		Set("alert_type", a.AlertType).
		Set("priority", a.Priority).
		Set("calculation_snapshot", a.Snapshot).
		Set("notification_sent", a.NotificationSent).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: Update - execute update: %v", ErrExecQuery, err)
	}

	return nil
}

// MarkSent помечает уведомление отправленным
// Переход false -> true выполняется один раз, повторный вызов возвращает ErrAlreadySent
func (r *Repository) MarkSent(ctx context.Context, id int64, channel domain.NotificationChannel, messageID *string, sentAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("departure_alerts").
		Set("notification_sent", true).
		Set("notification_sent_at", sentAt).
		Set("notification_channel", channel).
		Set("notification_message_id", messageID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "notification_sent": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkSent - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkSent - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkSent - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrAlreadySent
	}

	return nil
}

// Acknowledge сохраняет ответ клиента
func (r *Repository) Acknowledge(ctx context.Context, id int64, response domain.CustomerResponse, actualDeparture *types.TimeOfDay, at time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("departure_alerts").
		Set("customer_acknowledged", true).
		Set("acknowledged_at", at).
		Set("customer_response", response).
		Set("actual_departure_time", actualDeparture).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Acknowledge - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Acknowledge - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Acknowledge - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// ListPendingForDate неотправленные и неподтверждённые уведомления на дату
func (r *Repository) ListPendingForDate(ctx context.Context, date time.Time) ([]*domain.DepartureAlert, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("departure_alerts").
		Where(squirrel.Eq{
			"booking_date":          domain.DateOnly(date),
			"notification_sent":     false,
			"customer_acknowledged": false,
		}).
		OrderBy("suggested_departure_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListPendingForDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListPendingForDate", query, args)
}

// ListBySalonAndDate все уведомления салона на дату
func (r *Repository) ListBySalonAndDate(ctx context.Context, salonID int64, date time.Time) ([]*domain.DepartureAlert, error) {
	query, args, err := psqlbuilder.Select(columns...).
		From("departure_alerts").
		Where(squirrel.Eq{"salon_id": salonID, "booking_date": domain.DateOnly(date)}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBySalonAndDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.list(ctx, "ListBySalonAndDate", query, args)
}

func (r *Repository) list(ctx context.Context, op, query string, args []interface{}) ([]*domain.DepartureAlert, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	alerts := make([]*domain.DepartureAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, op, err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, op, err)
	}

	return alerts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row scanner) (*domain.DepartureAlert, error) {
	var a domain.DepartureAlert
	var sentAt, acknowledgedAt sql.NullTime
	var location []byte

	err := row.Scan(
		&a.ID,
		&a.BookingID,
		&a.CustomerID,
		&a.SalonID,
		&a.StaffID,
		&a.BookingDate,
		&a.OriginalBookingTime,
		&a.PredictedStartTime,
		&a.DelayMinutes,
		&a.DelayReason,
		&a.SuggestedDepartureTime,
		&a.EstimatedTravelMinutes,
		&a.BufferMinutes,
		&location,
		&a.AlertType,
		&a.Priority,
		&a.Snapshot,
		&a.NotificationSent,
		&sentAt,
		&a.NotificationChannel,
		&a.NotificationMessageID,
		&a.CustomerAcknowledged,
		&acknowledgedAt,
		&a.CustomerResponse,
		&a.ActualDepartureTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(location) > 0 {
		var l domain.DepartureLocation
		if err := l.Scan(location); err != nil {
			return nil, err
		}
		a.DepartureLocation = &l
	}
	if sentAt.Valid {
		t := sentAt.Time
		a.NotificationSentAt = &t
	}
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		a.AcknowledgedAt = &t
	}

	return &a, nil
}
