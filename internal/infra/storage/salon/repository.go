package salon

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

// Repository репозиторий салонов (только чтение)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория салонов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает салон по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Salon, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "is_active", "latitude", "longitude").
		From("salons").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var s domain.Salon
	err = executor.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name, &s.IsActive, &s.Latitude, &s.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSalonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan salon: %v", ErrScanRow, err)
	}

	return &s, nil
}

// ListActiveAfter страница активных салонов с ID > afterID (курсорная пагинация)
func (r *Repository) ListActiveAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Salon, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "is_active", "latitude", "longitude").
		From("salons").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Gt{"id": afterID}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveAfter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveAfter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	salons := make([]*domain.Salon, 0, limit)
	for rows.Next() {
		var s domain.Salon
		if err := rows.Scan(&s.ID, &s.Name, &s.IsActive, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("%w: ListActiveAfter - scan row: %v", ErrScanRow, err)
		}
		salons = append(salons, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListActiveAfter - rows error: %v", ErrScanRow, err)
	}

	return salons, nil
}
