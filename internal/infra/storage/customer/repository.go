package customer

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

// Repository репозиторий профиля клиента: сохранённые адреса и статистика прихода
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// ListLocations сохранённые адреса клиента, сначала адрес по умолчанию
func (r *Repository) ListLocations(ctx context.Context, customerID int64) ([]*domain.CustomerLocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "customer_id", "label", "latitude", "longitude", "is_default").
		From("customer_locations").
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("is_default DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListLocations - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListLocations - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	locations := make([]*domain.CustomerLocation, 0)
	for rows.Next() {
		var l domain.CustomerLocation
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.Label, &l.Latitude, &l.Longitude, &l.IsDefault); err != nil {
			return nil, fmt.Errorf("%w: ListLocations - scan row: %v", ErrScanRow, err)
		}
		locations = append(locations, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListLocations - rows error: %v", ErrScanRow, err)
	}

	return locations, nil
}

// GetTimingPreference статистика прихода клиента
func (r *Repository) GetTimingPreference(ctx context.Context, customerID int64) (*domain.CustomerTimingPreference, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"customer_id",
		"visit_count",
		"avg_arrival_minutes_before",
		"late_arrival_rate",
		"avg_late_minutes",
		"recommended_buffer_minutes",
		"confidence_score",
		"updated_at",
	).
		From("customer_timing_preferences").
		Where(squirrel.Eq{"customer_id": customerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetTimingPreference - build select query: %v", ErrBuildQuery, err)
	}

	var p domain.CustomerTimingPreference
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&p.CustomerID,
		&p.VisitCount,
		&p.AvgArrivalMinutesBefore,
		&p.LateArrivalRate,
		&p.AvgLateMinutes,
		&p.RecommendedBufferMinutes,
		&p.ConfidenceScore,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTimingPreferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetTimingPreference - scan row: %v", ErrScanRow, err)
	}

	return &p, nil
}

// UpsertTimingPreference вставляет или перезаписывает статистику прихода клиента
func (r *Repository) UpsertTimingPreference(ctx context.Context, p *domain.CustomerTimingPreference) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("customer_timing_preferences").
		Columns(
			"customer_id",
			"visit_count",
			"avg_arrival_minutes_before",
			"late_arrival_rate",
			"avg_late_minutes",
			"recommended_buffer_minutes",
			"confidence_score",
			"updated_at",
		).
		Values(
			p.CustomerID,
			p.VisitCount,
			p.AvgArrivalMinutesBefore,
			p.LateArrivalRate,
			p.AvgLateMinutes,
			p.RecommendedBufferMinutes,
			p.ConfidenceScore,
			p.UpdatedAt,
		).
		Suffix(`ON CONFLICT (customer_id) DO UPDATE SET
			visit_count = EXCLUDED.visit_count,
			avg_arrival_minutes_before = EXCLUDED.avg_arrival_minutes_before,
			late_arrival_rate = EXCLUDED.late_arrival_rate,
			avg_late_minutes = EXCLUDED.avg_late_minutes,
			recommended_buffer_minutes = EXCLUDED.recommended_buffer_minutes,
			confidence_score = EXCLUDED.confidence_score,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpsertTimingPreference - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertTimingPreference - execute upsert: %v", ErrExecQuery, err)
	}

	return nil
}
