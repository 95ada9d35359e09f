package paymentrepo

import (
	"context"
	"errors"
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

const paymentColumns = `id, order_id, amount, screenshot_file_id, screenshot_note, is_verified, is_rejected, rejection_reason, created_at, verified_at, rejected_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.ScreenshotFileID, &p.ScreenshotNote,
		&p.IsVerified, &p.IsRejected, &p.RejectionReason,
		&p.CreatedAt, &p.VerifiedAt, &p.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
        INSERT INTO order_payments (order_id, amount, screenshot_file_id, screenshot_note, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		payment.OrderID, payment.Amount, payment.ScreenshotFileID, payment.ScreenshotNote, payment.CreatedAt,
	).Scan(&payment.ID)
	if err != nil {
		zap.L().Error("can't save payment", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, paymentID int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM order_payments WHERE id = $1`
	payment, err := scanPayment(r.db.QueryRow(ctx, query, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find payment", zap.Error(err))
		return nil, err
	}
	return payment, nil
}

// FindLatestOpenByOrder возвращает последний нетерминальный платёж заказа.
func (r *Repository) FindLatestOpenByOrder(ctx context.Context, orderID int) (*domain.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM order_payments
        WHERE order_id = $1 AND NOT is_verified AND NOT is_rejected
        ORDER BY created_at DESC
        LIMIT 1
    `
	payment, err := scanPayment(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find open payment", zap.Error(err))
		return nil, err
	}
	return payment, nil
}

func (r *Repository) AttachScreenshot(ctx context.Context, paymentID, fileID int, note string) error {
	query := `
        UPDATE order_payments
        SET screenshot_file_id = $1, screenshot_note = $2
        WHERE id = $3
    `
	_, err := r.db.Exec(ctx, query, fileID, note, paymentID)
	if err != nil {
		zap.L().Error("can't attach screenshot", zap.Error(err))
	}
	return err
}

// MarkVerified переводит платёж в терминальное состояние "подтверждён".
// Повторный вызов не затрагивает строк: платёж уже терминален.
func (r *Repository) MarkVerified(ctx context.Context, paymentID int, at time.Time) (bool, error) {
	query := `
        UPDATE order_payments
        SET is_verified = TRUE, is_rejected = FALSE, verified_at = $1
        WHERE id = $2 AND NOT is_verified AND NOT is_rejected
    `
	tag, err := r.db.Exec(ctx, query, at, paymentID)
	if err != nil {
		zap.L().Error("can't verify payment", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkRejected(ctx context.Context, paymentID int, reason string, at time.Time) (bool, error) {
	query := `
        UPDATE order_payments
        SET is_rejected = TRUE, is_verified = FALSE, rejection_reason = $1, rejected_at = $2
        WHERE id = $3 AND NOT is_verified AND NOT is_rejected
    `
	tag, err := r.db.Exec(ctx, query, reason, at, paymentID)
	if err != nil {
		zap.L().Error("can't reject payment", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindPending возвращает платежи со скриншотом, ожидающие проверки.
func (r *Repository) FindPending(ctx context.Context, limit int) ([]domain.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM order_payments
        WHERE NOT is_verified AND NOT is_rejected AND screenshot_file_id IS NOT NULL
        ORDER BY created_at DESC
        LIMIT $1
    `
	return r.queryPayments(ctx, query, limit)
}

func (r *Repository) FindByOrder(ctx context.Context, orderID int) ([]domain.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM order_payments
        WHERE order_id = $1
        ORDER BY created_at DESC
    `
	return r.queryPayments(ctx, query, orderID)
}

func (r *Repository) queryPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't get payments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			zap.L().Error("can't scan payment row", zap.Error(err))
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
