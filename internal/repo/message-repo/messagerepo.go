package messagerepo

import (
	"context"

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

func (r *Repository) Save(ctx context.Context, msg *domain.OrderMessage) error {
	query := `
        INSERT INTO order_messages (order_id, message_text, from_admin, delivered, external_id, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		msg.OrderID, msg.Text, msg.FromAdmin, msg.Delivered, msg.ExternalID, msg.SentAt,
	).Scan(&msg.ID)
	if err != nil {
		zap.L().Error("can't save message", zap.Error(err))
		return err
	}
	return nil
}

// FindByOrder отдаёт сообщения диалога от старых к новым; offset позволяет
// дочитывать хвост с места остановки.
func (r *Repository) FindByOrder(ctx context.Context, orderID, limit, offset int) ([]domain.OrderMessage, error) {
	query := `
        SELECT id, order_id, message_text, from_admin, delivered, external_id, sent_at
        FROM order_messages
        WHERE order_id = $1
        ORDER BY sent_at ASC, id ASC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		zap.L().Error("can't get messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var messages []domain.OrderMessage
	for rows.Next() {
		var m domain.OrderMessage
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Text, &m.FromAdmin, &m.Delivered, &m.ExternalID, &m.SentAt); err != nil {
			zap.L().Error("can't scan message row", zap.Error(err))
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkDelivered выставляет флаг доставки после подтверждения транспортом.
func (r *Repository) MarkDelivered(ctx context.Context, messageID int, externalID *int) error {
	query := `
        UPDATE order_messages
        SET delivered = TRUE, external_id = COALESCE($1, external_id)
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, externalID, messageID)
	if err != nil {
		zap.L().Error("can't mark message delivered", zap.Error(err))
	}
	return err
}

// CountInboundByOrder считает входящие сообщения пользователя по заказу.
func (r *Repository) CountInboundByOrder(ctx context.Context, orderID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM order_messages WHERE order_id = $1 AND NOT from_admin`,
		orderID,
	).Scan(&count)
	if err != nil {
		zap.L().Error("can't count inbound messages", zap.Error(err))
		return 0, err
	}
	return count, nil
}
