package historyrepo

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

func (r *Repository) Append(ctx context.Context, h *domain.StatusHistory) error {
	query := `
        INSERT INTO status_history (order_id, old_status, new_status, note, changed_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, h.OrderID, h.OldStatus, h.NewStatus, h.Note, h.ChangedAt).Scan(&h.ID)
	if err != nil {
		zap.L().Error("can't append status history", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByOrder(ctx context.Context, orderID int) ([]domain.StatusHistory, error) {
	query := `
        SELECT id, order_id, old_status, new_status, note, changed_at
        FROM status_history
        WHERE order_id = $1
        ORDER BY changed_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("can't get status history", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.OldStatus, &h.NewStatus, &h.Note, &h.ChangedAt); err != nil {
			zap.L().Error("can't scan history row", zap.Error(err))
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
