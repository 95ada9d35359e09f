package userrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

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

const userColumns = `id, chat_id, username, first_name, last_name, is_blocked, created_at`

func (r *Repository) FindByID(ctx context.Context, userID int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, userID)
}

func (r *Repository) FindByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`
	return r.findOne(ctx, query, chatID)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.ChatID, &user.Username, &user.FirstName,
		&user.LastName, &user.IsBlocked, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find user", zap.Error(err))
		return nil, err
	}
	return &user, nil
}

// Upsert создаёт пользователя при первом контакте и обновляет профиль при
// повторных. Гонку на chat_id разрешает unique-констрейнт.
func (r *Repository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (chat_id, username, first_name, last_name, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (chat_id) DO UPDATE
        SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
        RETURNING id, is_blocked, created_at
    `
	err := r.db.QueryRow(ctx, query, user.ChatID, user.Username, user.FirstName, user.LastName).
		Scan(&user.ID, &user.IsBlocked, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// два апдейта профиля наперегонки; перечитываем победителя
			existing, findErr := r.FindByChatID(ctx, user.ChatID)
			if findErr == nil && existing != nil {
				*user = *existing
				return nil
			}
		}
		zap.L().Error("can't upsert user", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) SetBlocked(ctx context.Context, userID int, blocked bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET is_blocked = $1 WHERE id = $2`, blocked, userID)
	if err != nil {
		zap.L().Error("can't update user blocked flag", zap.Error(err))
	}
	return err
}
