package orderrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

const orderColumnsPattern = `(?s)SELECT id, user_id, work_type, subject, topic, volume, deadline, requirements, status, price, created_at, updated_at\s+FROM orders`

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	mockTxManager := pg.NewMockTXManager(ctrl)

	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB, mockTxManager)
	defer mockDB.Close()
	defer ctrl.Finish()

	return repo, mockDB, mockTxManager
}

func orderRows(orders ...domain.Order) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "work_type", "subject", "topic", "volume",
		"deadline", "requirements", "status", "price", "created_at", "updated_at",
	})
	for _, o := range orders {
		rows.AddRow(o.ID, o.UserID, o.WorkType, o.Subject, o.Topic, o.Volume,
			o.Deadline, o.Requirements, o.Status, o.Price, o.CreatedAt, o.UpdatedAt)
	}
	return rows
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()
	order := domain.Order{ID: 1, UserID: 5, WorkType: "Курсовая", Topic: "Графы", Status: domain.NewStatus, CreatedAt: now, UpdatedAt: now}

	tests := []struct {
		name      string
		orderID   int
		mockSetup func()
		expectErr bool
		result    *domain.Order
	}{
		{
			name:    "Order exists",
			orderID: 1,
			mockSetup: func() {
				mock.ExpectQuery(orderColumnsPattern + `\s+WHERE id = \$1`).
					WithArgs(1).
					WillReturnRows(orderRows(order))
			},
			result: &order,
		},
		{
			name:    "Order does not exist",
			orderID: 99,
			mockSetup: func() {
				mock.ExpectQuery(orderColumnsPattern + `\s+WHERE id = \$1`).
					WithArgs(99).
					WillReturnError(pgx.ErrNoRows)
			},
			result: nil,
		},
		{
			name:    "Database error",
			orderID: 1,
			mockSetup: func() {
				mock.ExpectQuery(orderColumnsPattern + `\s+WHERE id = \$1`).
					WithArgs(1).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByID(context.Background(), tt.orderID)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.result == nil {
				assert.Nil(t, result)
			} else {
				assert.Equal(t, tt.result, result)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindActiveByUser(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()
	earliest := domain.Order{ID: 1, UserID: 5, Status: domain.InProgressStatus, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}

	t.Run("Earliest active order wins", func(t *testing.T) {
		mock.ExpectQuery(orderColumnsPattern+`\s+WHERE user_id = \$1 AND status = ANY\(\$2\)`).
			WithArgs(5, domain.ActiveStatuses).
			WillReturnRows(orderRows(earliest))

		result, err := repo.FindActiveByUser(context.Background(), 5)
		assert.NoError(t, err)
		assert.Equal(t, &earliest, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No active order", func(t *testing.T) {
		mock.ExpectQuery(orderColumnsPattern+`\s+WHERE user_id = \$1 AND status = ANY\(\$2\)`).
			WithArgs(5, domain.ActiveStatuses).
			WillReturnError(pgx.ErrNoRows)

		result, err := repo.FindActiveByUser(context.Background(), 5)
		assert.NoError(t, err)
		assert.Nil(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock, _ := NewMock(t)
	seen := time.Now()
	updated := seen.Add(time.Second)

	t.Run("Status updated with matching updated_at", func(t *testing.T) {
		mock.ExpectQuery(`(?s)UPDATE orders\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND updated_at = \$3`).
			WithArgs(domain.InProgressStatus, 1, seen).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updated))

		got, err := repo.UpdateStatus(context.Background(), 1, domain.InProgressStatus, seen)
		assert.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent change yields ErrStale", func(t *testing.T) {
		mock.ExpectQuery(`(?s)UPDATE orders\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND updated_at = \$3`).
			WithArgs(domain.InProgressStatus, 1, seen).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateStatus(context.Background(), 1, domain.InProgressStatus, seen)
		assert.ErrorIs(t, err, ErrStale)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdatePrice(t *testing.T) {
	repo, mock, _ := NewMock(t)
	seen := time.Now()

	t.Run("Price updated", func(t *testing.T) {
		mock.ExpectExec(`(?s)UPDATE orders\s+SET price = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND updated_at = \$3`).
			WithArgs(1500.0, 1, seen).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdatePrice(context.Background(), 1, 1500.0, seen))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent change yields ErrStale", func(t *testing.T) {
		mock.ExpectExec(`(?s)UPDATE orders\s+SET price = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND updated_at = \$3`).
			WithArgs(1500.0, 1, seen).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.UpdatePrice(context.Background(), 1, 1500.0, seen), ErrStale)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Save(t *testing.T) {
	repo, mock, txManager := NewMock(t)
	now := time.Now()
	price := 1500.0
	order := &domain.Order{
		UserID: 5, WorkType: "Курсовая", Subject: "Информатика", Topic: "Графы",
		Volume: "30 стр", Deadline: "2026-09-15", Requirements: "ГОСТ",
		Status: domain.NewStatus, Price: &price, CreatedAt: now,
	}

	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	mock.ExpectQuery(`(?s)INSERT INTO orders \(user_id, work_type, subject, topic, volume, deadline, requirements, status, price, created_at, updated_at\)`).
		WithArgs(order.UserID, order.WorkType, order.Subject, order.Topic, order.Volume,
			order.Deadline, order.Requirements, order.Status, order.Price, order.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(42))

	err := repo.Save(context.Background(), order)
	assert.NoError(t, err)
	assert.Equal(t, 42, order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	repo, mock, _ := NewMock(t)

	mock.ExpectExec(`DELETE FROM orders WHERE id = \$1`).
		WithArgs(1).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	ok, err := repo.Delete(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`DELETE FROM orders WHERE id = \$1`).
		WithArgs(99).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	ok, err = repo.Delete(context.Background(), 99)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
