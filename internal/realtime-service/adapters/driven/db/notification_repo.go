package db

import (
	"context"
	"fmt"

	"gride/internal/realtime-service/core/domain/model"
	"gride/internal/realtime-service/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

var _ ports.INotificationRepo = (*NotificationRepo)(nil)

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Migrate creates the notifications table when it does not exist.
func (nr *NotificationRepo) Migrate(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		type       TEXT NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := nr.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) Save(ctx context.Context, n model.Notification) (model.Notification, error) {
	q := `INSERT INTO notifications (id, user_id, title, message, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	n.ID = uuid.NewString()
	if err := nr.pool.QueryRow(ctx, q, n.ID, n.DriverID, n.Title, n.Message, n.Type, n.CreatedAt).Scan(&n.CreatedAt); err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}
