package notification

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
	"github.com/m04kA/SMC-QueueService/pkg/psqlbuilder"
)

// Repository репозиторий in-app уведомлений
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create записывает уведомление во входящие клиента
func (r *Repository) Create(ctx context.Context, n *domain.Notification) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("notifications").
		Columns(
			"id",
			"customer_id",
			"type",
			"title",
			"message",
			"booking_id",
			"alert_id",
			"channel",
			"external_id",
			"created_at",
		).
		Values(
			n.ID,
			n.CustomerID,
			n.Type,
			n.Title,
			n.Message,
			n.BookingID,
			n.AlertID,
			n.Channel,
			n.ExternalID,
			n.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}
