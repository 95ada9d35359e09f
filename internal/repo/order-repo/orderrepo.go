package orderrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	"go.uber.org/zap"
)

// ErrStale сигнализирует, что updated_at заказа изменился между чтением и
// записью: конкурирующая запись выиграла, и мутацию надо повторить.
var ErrStale = errors.New("order was modified concurrently")

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

const orderColumns = `id, user_id, work_type, subject, topic, volume, deadline, requirements, status, price, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.UserID, &order.WorkType, &order.Subject, &order.Topic,
		&order.Volume, &order.Deadline, &order.Requirements, &order.Status,
		&order.Price, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByID(ctx context.Context, orderID int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.Error(err))
		return nil, err
	}
	return order, nil
}

// FindActiveByUser возвращает самый ранний заказ пользователя в активном
// статусе — к нему привязываются входящие сообщения.
func (r *Repository) FindActiveByUser(ctx context.Context, userID int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND status = ANY($2)
        ORDER BY created_at ASC
        LIMIT 1
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, userID, domain.ActiveStatuses))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find active order", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindByUser(ctx context.Context, userID, limit, offset int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	return r.queryOrders(ctx, query, userID, limit, offset)
}

func (r *Repository) FindByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Order, error) {
	if status == "" {
		query := `
            SELECT ` + orderColumns + `
            FROM orders
            ORDER BY created_at DESC
            LIMIT $1 OFFSET $2
        `
		return r.queryOrders(ctx, query, limit, offset)
	}
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	return r.queryOrders(ctx, query, status, limit, offset)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (user_id, work_type, subject, topic, volume, deadline, requirements, status, price, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
        RETURNING id
    `
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			order.UserID, order.WorkType, order.Subject, order.Topic, order.Volume,
			order.Deadline, order.Requirements, order.Status, order.Price, order.CreatedAt,
		).Scan(&order.ID)
	})
	if err != nil {
		zap.L().Error("can't save order", zap.Error(err))
		return err
	}
	return nil
}

// UpdateStatus пишет новый статус с оптимистичной проверкой updated_at.
// Ноль затронутых строк при живом заказе означает гонку — ErrStale.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int, status string, seenUpdatedAt time.Time) (time.Time, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND updated_at = $3
        RETURNING updated_at
    `
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, query, status, orderID, seenUpdatedAt).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrStale
	}
	if err != nil {
		zap.L().Error("failed to update order status", zap.Error(err))
		return time.Time{}, err
	}
	return updatedAt, nil
}

func (r *Repository) UpdatePrice(ctx context.Context, orderID int, price float64, seenUpdatedAt time.Time) error {
	query := `
        UPDATE orders
        SET price = $1, updated_at = NOW()
        WHERE id = $2 AND updated_at = $3
    `
	tag, err := r.db.Exec(ctx, query, price, orderID, seenUpdatedAt)
	if err != nil {
		zap.L().Error("failed to update order price", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// Delete удаляет заказ; файлы, история, сообщения и платежи уходят каскадом.
func (r *Repository) Delete(ctx context.Context, orderID int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		zap.L().Error("can't delete order", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
