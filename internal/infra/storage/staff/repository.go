package staff

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

// Repository репозиторий мастеров салона (только чтение)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория мастеров
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает мастера по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Staff, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "salon_id", "name", "is_active", "current_state").
		From("staff").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var s domain.Staff
	err = executor.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.SalonID, &s.Name, &s.IsActive, &s.CurrentState)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan staff: %v", ErrScanRow, err)
	}

	return &s, nil
}

// ListActiveBySalon активные мастера салона, по возрастанию ID
func (r *Repository) ListActiveBySalon(ctx context.Context, salonID int64) ([]*domain.Staff, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "salon_id", "name", "is_active", "current_state").
		From("staff").
		Where(squirrel.Eq{"salon_id": salonID, "is_active": true}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveBySalon - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveBySalon - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	staff := make([]*domain.Staff, 0)
	for rows.Next() {
		var s domain.Staff
		if err := rows.Scan(&s.ID, &s.SalonID, &s.Name, &s.IsActive, &s.CurrentState); err != nil {
			return nil, fmt.Errorf("%w: ListActiveBySalon - scan row: %v", ErrScanRow, err)
		}
		staff = append(staff, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListActiveBySalon - rows error: %v", ErrScanRow, err)
	}

	return staff, nil
}
