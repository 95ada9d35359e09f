package outboxrepo

import (
	"context"
	"testing"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()
	return repo, mockDB
}

func TestRepository_Save(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	n := &domain.Notification{OrderID: 10, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "text"}

	mock.ExpectQuery(`(?s)INSERT INTO notification_outbox \(order_id, chat_id, kind, message_text, file_id, message_id, buttons, created_at\)`).
		WithArgs(10, int64(100), domain.NotifyStatusChanged, "text", (*int)(nil), (*int)(nil), "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "next_attempt_at", "created_at"}).
			AddRow(1, domain.NotificationPending, now, now))

	err := repo.Save(context.Background(), n)
	assert.NoError(t, err)
	assert.Equal(t, 1, n.ID)
	assert.Equal(t, domain.NotificationPending, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClaimDue(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "order_id", "chat_id", "kind", "message_text", "file_id", "message_id",
		"buttons", "status", "attempts", "next_attempt_at", "last_error", "created_at", "delivered_at",
	}).
		AddRow(1, 10, int64(100), domain.NotifyStatusChanged, "one", (*int)(nil), (*int)(nil),
			"", domain.NotificationPending, 0, now, "", now, (*time.Time)(nil)).
		AddRow(2, 11, int64(100), domain.NotifyPriceSet, "two", (*int)(nil), (*int)(nil),
			`[{"text":"ok","data":"accept_price:11"}]`, domain.NotificationPending, 1, now, "timeout", now, (*time.Time)(nil))

	mock.ExpectQuery(`(?s)UPDATE notification_outbox\s+SET next_attempt_at = NOW\(\) \+ \$2::interval\s+WHERE id IN`).
		WithArgs(100, "30s").
		WillReturnRows(rows)

	claimed, err := repo.ClaimDue(context.Background(), 100, 30*time.Second)
	assert.NoError(t, err)
	assert.Len(t, claimed, 2)
	assert.Equal(t, "one", claimed[0].Text)
	assert.Equal(t, 1, claimed[1].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkDelivered(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectExec(`(?s)UPDATE notification_outbox\s+SET status = 'delivered', delivered_at = \$1\s+WHERE id = \$2 AND status = 'pending'`).
		WithArgs(now, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkDelivered(context.Background(), 1, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkFailed(t *testing.T) {
	repo, mock := NewMock(t)
	next := time.Now().Add(15 * time.Second)

	mock.ExpectExec(`(?s)UPDATE notification_outbox\s+SET attempts = attempts \+ 1`).
		WithArgs(next, "telegram is down", 5, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkFailed(context.Background(), 1, 5, next, "telegram is down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
