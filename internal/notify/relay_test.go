package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	filerepo "github.com/GlebRadaev/orderdesk/internal/repo/file-repo"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

type mocks struct {
	outbox    *MockOutboxRepo
	files     *MockFileStore
	messages  *MockMessageStore
	transport *MockTransport
}

func NewMock(t *testing.T, adminChatID int64) (*Relay, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		outbox:    NewMockOutboxRepo(ctrl),
		files:     NewMockFileStore(ctrl),
		messages:  NewMockMessageStore(ctrl),
		transport: NewMockTransport(ctrl),
	}
	relay := New(m.outbox, m.files, m.messages, func() Transport { return m.transport }, adminChatID)
	defer ctrl.Finish()
	return relay, m
}

func TestEnqueue(t *testing.T) {
	t.Run("Regular notification is saved as is", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{OrderID: 1, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "text"}
		m.outbox.EXPECT().Save(gomock.Any(), n).Return(nil)
		assert.NoError(t, relay.Enqueue(context.Background(), n))
	})

	t.Run("Admin alert without chat is routed to the configured chat", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{OrderID: 1, Kind: domain.NotifyAdminAlert, Text: "alert"}
		m.outbox.EXPECT().Save(gomock.Any(), n).DoAndReturn(
			func(_ context.Context, saved *domain.Notification) error {
				assert.Equal(t, int64(500), saved.ChatID)
				return nil
			},
		)
		assert.NoError(t, relay.Enqueue(context.Background(), n))
	})

	t.Run("Admin alert is dropped when no admin chat is configured", func(t *testing.T) {
		relay, _ := NewMock(t, 0)
		n := &domain.Notification{OrderID: 1, Kind: domain.NotifyAdminAlert, Text: "alert"}
		assert.NoError(t, relay.Enqueue(context.Background(), n))
	})

	t.Run("Save failure propagates to roll back the caller's transaction", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{OrderID: 1, ChatID: 100, Kind: domain.NotifyStatusChanged}
		m.outbox.EXPECT().Save(gomock.Any(), n).Return(errors.New("database error"))
		assert.Error(t, relay.Enqueue(context.Background(), n))
	})
}

func TestDeliverMessage(t *testing.T) {
	t.Run("Successful delivery marks the outbox row", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "text"}
		m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "text", gomock.Nil()).Return(555, nil)
		m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Dialog message delivery records the external id", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		msgID := 42
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyMessage, Text: "text", MessageID: &msgID}
		m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "text", gomock.Nil()).Return(555, nil)
		m.messages.EXPECT().MarkDelivered(gomock.Any(), 42, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ int, externalID *int) error {
				assert.Equal(t, 555, *externalID)
				return nil
			},
		)
		m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Transport failure is swallowed and scheduled for retry", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "text", Attempts: 1}
		m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "text", gomock.Nil()).
			Return(0, errors.New("telegram is down"))
		m.outbox.EXPECT().MarkFailed(gomock.Any(), 1, maxAttempts, gomock.Any(), "telegram is down").DoAndReturn(
			func(_ context.Context, _, _ int, nextAttempt time.Time, _ string) error {
				// линейный backoff: вторая неудача откладывает на два интервала
				assert.WithinDuration(t, time.Now().Add(2*retryInterval), nextAttempt, time.Second)
				return nil
			},
		)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Broken buttons payload still delivers the text", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyPriceSet, Text: "text", ButtonsJSON: "{broken"}
		m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "text", gomock.Nil()).Return(555, nil)
		m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})
}

func TestDeliverFile(t *testing.T) {
	fileID := 7

	t.Run("Document delivery flags the file sent", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyFile, Text: "caption", FileID: &fileID}
		file := &domain.OrderFile{ID: 7, Filename: "work.pdf"}
		m.files.EXPECT().FindByID(gomock.Any(), 7).Return(file, nil)
		m.transport.EXPECT().SendDocument(gomock.Any(), int64(100), file, "caption").Return(nil)
		m.files.EXPECT().MarkSent(gomock.Any(), 7, gomock.Any()).Return(true, nil)
		m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Redelivery does not disturb the sent flag", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyFile, FileID: &fileID}
		file := &domain.OrderFile{ID: 7, SentToUser: true}
		m.files.EXPECT().FindByID(gomock.Any(), 7).Return(file, nil)
		m.transport.EXPECT().SendDocument(gomock.Any(), int64(100), file, gomock.Any()).Return(nil)
		m.files.EXPECT().MarkSent(gomock.Any(), 7, gomock.Any()).Return(false, filerepo.ErrAlreadySent)
		m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Missing file kills the row immediately", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyFile, FileID: &fileID}
		m.files.EXPECT().FindByID(gomock.Any(), 7).Return(nil, nil)
		m.outbox.EXPECT().MarkFailed(gomock.Any(), 1, 0, gomock.Any(), "file not found").Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})

	t.Run("Transport failure on a document is swallowed", func(t *testing.T) {
		relay, m := NewMock(t, 500)
		n := &domain.Notification{ID: 1, ChatID: 100, Kind: domain.NotifyFile, FileID: &fileID}
		file := &domain.OrderFile{ID: 7}
		m.files.EXPECT().FindByID(gomock.Any(), 7).Return(file, nil)
		m.transport.EXPECT().SendDocument(gomock.Any(), int64(100), file, gomock.Any()).
			Return(errors.New("timeout"))
		m.outbox.EXPECT().MarkFailed(gomock.Any(), 1, maxAttempts, gomock.Any(), "timeout").Return(nil)
		relay.deliver(context.Background(), m.transport, n)
	})
}

func TestDrainOnce(t *testing.T) {
	relay, m := NewMock(t, 500)

	due := []domain.Notification{
		{ID: 1, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "one"},
		{ID: 2, ChatID: 100, Kind: domain.NotifyStatusChanged, Text: "two"},
	}
	m.outbox.EXPECT().ClaimDue(gomock.Any(), claimLimit, claimHold).Return(due, nil)
	m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "one", gomock.Nil()).Return(1, nil)
	m.transport.EXPECT().SendMessage(gomock.Any(), int64(100), "two", gomock.Nil()).
		Return(0, errors.New("telegram is down"))
	m.outbox.EXPECT().MarkDelivered(gomock.Any(), 1, gomock.Any()).Return(nil)
	m.outbox.EXPECT().MarkFailed(gomock.Any(), 2, maxAttempts, gomock.Any(), "telegram is down").Return(nil)

	// одна упавшая доставка не мешает остальным и не всплывает наружу
	relay.drainOnce(context.Background(), m.transport)
}
