package config

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

// Repository репозиторий настроек уведомлений о выезде (салон и клиент)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория настроек
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetSalonSettings получает настройки салона
func (r *Repository) GetSalonSettings(ctx context.Context, salonID int64) (*domain.SalonDepartureSettings, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"salon_id",
		"enabled",
		"min_delay_to_notify_minutes",
		"default_buffer_minutes",
		"first_alert_minutes_before",
		"updated_at",
	).
		From("salon_departure_settings").
		Where(squirrel.Eq{"salon_id": salonID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetSalonSettings - build select query: %v", ErrBuildQuery, err)
	}

	var settings domain.SalonDepartureSettings
	var updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&settings.SalonID,
		&settings.Enabled,
		&settings.MinDelayToNotifyMinutes,
		&settings.DefaultBufferMinutes,
		&settings.FirstAlertMinutesBefore,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetSalonSettings - scan settings: %v", ErrScanRow, err)
	}

	settings.UpdatedAt = updatedAt.Time

	return &settings, nil
}

// GetSalonSettingsOrDefault настройки салона, а если строки нет - значения по умолчанию
func (r *Repository) GetSalonSettingsOrDefault(ctx context.Context, salonID int64) (*domain.SalonDepartureSettings, error) {
	settings, err := r.GetSalonSettings(ctx, salonID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}
	return domain.DefaultSalonDepartureSettings(salonID), nil
}

// GetCustomerPreferences получает настройки клиента
func (r *Repository) GetCustomerPreferences(ctx context.Context, customerID int64) (*domain.CustomerDeparturePreferences, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"customer_id",
		"enabled",
		"preferred_buffer_minutes",
		"preferred_channel",
		"preferred_location_label",
		"quiet_hours_start",
		"quiet_hours_end",
		"push_token",
		"phone",
	).
		From("customer_departure_preferences").
		Where(squirrel.Eq{"customer_id": customerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetCustomerPreferences - build select query: %v", ErrBuildQuery, err)
	}

	var prefs domain.CustomerDeparturePreferences
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&prefs.CustomerID,
		&prefs.Enabled,
		&prefs.PreferredBufferMinutes,
		&prefs.PreferredChannel,
		&prefs.PreferredLocationLabel,
		&prefs.QuietHoursStart,
		&prefs.QuietHoursEnd,
		&prefs.PushToken,
		&prefs.Phone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetCustomerPreferences - scan preferences: %v", ErrScanRow, err)
	}

	return &prefs, nil
}

// GetCustomerPreferencesOrDefault настройки клиента, а если строки нет - значения по умолчанию
func (r *Repository) GetCustomerPreferencesOrDefault(ctx context.Context, customerID int64) (*domain.CustomerDeparturePreferences, error) {
	prefs, err := r.GetCustomerPreferences(ctx, customerID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, ErrPreferencesNotFound) {
		return nil, err
	}
	return domain.DefaultCustomerDeparturePreferences(customerID), nil
}
