package filerepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	"go.uber.org/zap"
)

// ErrAlreadySent возвращается при повторной пометке файла отправленным;
// sent_at первой отправки при этом сохраняется.
var ErrAlreadySent = errors.New("file already sent to user")

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

const fileColumns = `id, order_id, filename, file_path, file_size, file_type, uploaded_by_admin, sent_to_user, sent_at, uploaded_at`

func scanFile(row pgx.Row) (*domain.OrderFile, error) {
	var f domain.OrderFile
	err := row.Scan(
		&f.ID, &f.OrderID, &f.Filename, &f.FilePath, &f.FileSize, &f.FileType,
		&f.UploadedByAdmin, &f.SentToUser, &f.SentAt, &f.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) Save(ctx context.Context, file *domain.OrderFile) error {
	query := `
        INSERT INTO order_files (order_id, filename, file_path, file_size, file_type, uploaded_by_admin, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		file.OrderID, file.Filename, file.FilePath, file.FileSize,
		file.FileType, file.UploadedByAdmin, file.UploadedAt,
	).Scan(&file.ID)
	if err != nil {
		zap.L().Error("can't save file", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, fileID int) (*domain.OrderFile, error) {
	query := `SELECT ` + fileColumns + ` FROM order_files WHERE id = $1`
	file, err := scanFile(r.db.QueryRow(ctx, query, fileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find file", zap.Error(err))
		return nil, err
	}
	return file, nil
}

func (r *Repository) FindByOrder(ctx context.Context, orderID int) ([]domain.OrderFile, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM order_files
        WHERE order_id = $1
        ORDER BY uploaded_at ASC
    `
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("can't get files", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var files []domain.OrderFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			zap.L().Error("can't scan file row", zap.Error(err))
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// MarkSent переводит sent_to_user строго false→true один раз.
// Повторный вызов — ErrAlreadySent, пропавший файл — (false, nil).
func (r *Repository) MarkSent(ctx context.Context, fileID int, at time.Time) (bool, error) {
	query := `
        UPDATE order_files
        SET sent_to_user = TRUE, sent_at = $1
        WHERE id = $2 AND NOT sent_to_user
    `
	tag, err := r.db.Exec(ctx, query, at, fileID)
	if err != nil {
		zap.L().Error("can't mark file sent", zap.Error(err))
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	file, err := r.FindByID(ctx, fileID)
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, nil
	}
	return false, ErrAlreadySent
}

func (r *Repository) Delete(ctx context.Context, fileID int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM order_files WHERE id = $1`, fileID)
	if err != nil {
		zap.L().Error("can't delete file", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
