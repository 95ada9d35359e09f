package outboxrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

const outboxColumns = `id, order_id, chat_id, kind, message_text, file_id, message_id, buttons, status, attempts, next_attempt_at, last_error, created_at, delivered_at`

// Save пишет строку outbox. Вызывается внутри транзакции мутации, которая
// требует уведомления, поэтому откат мутации откатывает и уведомление.
func (r *Repository) Save(ctx context.Context, n *domain.Notification) error {
	query := `
        INSERT INTO notification_outbox (order_id, chat_id, kind, message_text, file_id, message_id, buttons, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING id, status, next_attempt_at, created_at
    `
	err := r.db.QueryRow(ctx, query,
		n.OrderID, n.ChatID, n.Kind, n.Text, n.FileID, n.MessageID, n.ButtonsJSON,
	).Scan(&n.ID, &n.Status, &n.NextAttemptAt, &n.CreatedAt)
	if err != nil {
		zap.L().Error("can't save notification", zap.Error(err))
		return err
	}
	return nil
}

// ClaimDue забирает зрелые pending-строки и отодвигает им next_attempt_at,
// чтобы конкурирующий дренажер не схватил те же строки. FOR UPDATE
// SKIP LOCKED закрывает гонку между воркерами одного процесса.
func (r *Repository) ClaimDue(ctx context.Context, limit int, hold time.Duration) ([]domain.Notification, error) {
	query := `
        UPDATE notification_outbox
        SET next_attempt_at = NOW() + $2::interval
        WHERE id IN (
            SELECT id FROM notification_outbox
            WHERE status = 'pending' AND next_attempt_at <= NOW()
            ORDER BY created_at ASC
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + outboxColumns + `
    `
	rows, err := r.db.Query(ctx, query, limit, hold.String())
	if err != nil {
		zap.L().Error("can't claim notifications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			zap.L().Error("can't scan notification row", zap.Error(err))
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.OrderID, &n.ChatID, &n.Kind, &n.Text, &n.FileID, &n.MessageID,
		&n.ButtonsJSON, &n.Status, &n.Attempts, &n.NextAttemptAt, &n.LastError,
		&n.CreatedAt, &n.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) MarkDelivered(ctx context.Context, notificationID int, at time.Time) error {
	query := `
        UPDATE notification_outbox
        SET status = 'delivered', delivered_at = $1
        WHERE id = $2 AND status = 'pending'
    `
	_, err := r.db.Exec(ctx, query, at, notificationID)
	if err != nil {
		zap.L().Error("can't mark notification delivered", zap.Error(err))
	}
	return err
}

// MarkFailed фиксирует неудачную попытку; после maxAttempts строка уходит
// в dead и больше не доставляется.
func (r *Repository) MarkFailed(ctx context.Context, notificationID, maxAttempts int, nextAttempt time.Time, lastError string) error {
	query := `
        UPDATE notification_outbox
        SET attempts = attempts + 1,
            next_attempt_at = $1,
            last_error = $2,
            status = CASE WHEN attempts + 1 >= $3 THEN 'dead' ELSE status END
        WHERE id = $4 AND status = 'pending'
    `
	_, err := r.db.Exec(ctx, query, nextAttempt, lastError, maxAttempts, notificationID)
	if err != nil {
		zap.L().Error("can't mark notification failed", zap.Error(err))
	}
	return err
}
