package dialogservice

import (
	"context"
	"testing"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

type mocks struct {
	messages  *MockMessageRepo
	files     *MockFileRepo
	orders    *MockOrderRepo
	users     *MockUserRepo
	notifier  *MockNotifier
	txManager *MockTXManager
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		messages:  NewMockMessageRepo(ctrl),
		files:     NewMockFileRepo(ctrl),
		orders:    NewMockOrderRepo(ctrl),
		users:     NewMockUserRepo(ctrl),
		notifier:  NewMockNotifier(ctrl),
		txManager: NewMockTXManager(ctrl),
	}
	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	service := New(m.messages, m.files, m.orders, m.users, m.notifier, m.txManager)
	defer ctrl.Finish()
	return service, m
}

func TestAppendAdminMessage(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name          string
		text          string
		prepareMock   func()
		expectedError error
	}{
		{
			name:          "Empty text is rejected",
			text:          "   ",
			prepareMock:   func() {},
			expectedError: ErrEmptyMessage,
		},
		{
			name: "Order not found",
			text: "Добрый день",
			prepareMock: func() {
				m.orders.EXPECT().FindByID(gomock.Any(), 10).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name: "Message stored undelivered and queued for the relay",
			text: "Работа почти готова",
			prepareMock: func() {
				m.orders.EXPECT().FindByID(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 5, WorkType: "Реферат", Topic: "Сети"}, nil)
				m.messages.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, msg *domain.OrderMessage) error {
						assert.True(t, msg.FromAdmin)
						assert.False(t, msg.Delivered)
						msg.ID = 42
						return nil
					},
				)
				m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, n *domain.Notification) error {
						assert.Equal(t, domain.NotifyMessage, n.Kind)
						assert.Equal(t, 42, *n.MessageID)
						return nil
					},
				)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			msg, err := service.AppendAdminMessage(context.Background(), 10, tt.text)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, msg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, msg)
			}
		})
	}
}

func TestRouteInbound(t *testing.T) {
	service, m := NewMock(t)
	user := &domain.User{ID: 5, ChatID: 100, FirstName: "Иван"}

	tests := []struct {
		name          string
		text          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "No active order means the message is not persisted",
			text: "Когда будет готово?",
			prepareMock: func() {
				m.orders.EXPECT().FindActiveByUser(gomock.Any(), 5).Return(nil, nil)
			},
			expectedError: ErrNoActiveOrder,
		},
		{
			name: "Inbound text binds to the earliest active order",
			text: "Когда будет готово?",
			prepareMock: func() {
				m.orders.EXPECT().FindActiveByUser(gomock.Any(), 5).
					Return(&domain.Order{ID: 10, UserID: 5, Status: domain.InProgressStatus}, nil)
				m.messages.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, msg *domain.OrderMessage) error {
						assert.False(t, msg.FromAdmin)
						assert.True(t, msg.Delivered)
						return nil
					},
				)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, n *domain.Notification) error {
						assert.Equal(t, domain.NotifyAdminAlert, n.Kind)
						assert.Contains(t, n.Text, "Когда будет готово?")
						return nil
					},
				)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
		{
			name:          "Empty text is rejected",
			text:          "",
			prepareMock:   func() {},
			expectedError: ErrEmptyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			externalID := 777
			order, err := service.RouteInbound(context.Background(), user, tt.text, &externalID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, order)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 10, order.ID)
			}
		})
	}
}

func TestSendFile(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "File not found",
			prepareMock: func() {
				m.files.EXPECT().FindByID(gomock.Any(), 1).Return(nil, nil)
			},
			expectedError: ErrFileNotFound,
		},
		{
			name: "Already sent file is not re-queued",
			prepareMock: func() {
				m.files.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.OrderFile{ID: 1, OrderID: 10, SentToUser: true}, nil)
			},
			expectedError: ErrAlreadySent,
		},
		{
			name: "Delivery queued with a caption",
			prepareMock: func() {
				m.files.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.OrderFile{ID: 1, OrderID: 10, Filename: "work.pdf"}, nil)
				m.orders.EXPECT().FindByID(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 5}, nil)
				m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, n *domain.Notification) error {
						assert.Equal(t, domain.NotifyFile, n.Kind)
						assert.Equal(t, 1, *n.FileID)
						assert.Contains(t, n.Text, "work.pdf")
						return nil
					},
				)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			err := service.SendFile(context.Background(), 1)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarkSent(t *testing.T) {
	service, m := NewMock(t)

	m.files.EXPECT().MarkSent(gomock.Any(), 1, gomock.Any()).Return(true, nil)
	assert.NoError(t, service.MarkSent(context.Background(), 1))

	// повтор не перезаписывает sent_at первой отправки
	m.files.EXPECT().MarkSent(gomock.Any(), 1, gomock.Any()).Return(false, ErrAlreadySent)
	assert.ErrorIs(t, service.MarkSent(context.Background(), 1), ErrAlreadySent)

	m.files.EXPECT().MarkSent(gomock.Any(), 404, gomock.Any()).Return(false, nil)
	assert.ErrorIs(t, service.MarkSent(context.Background(), 404), ErrFileNotFound)
}

func TestAttachFile(t *testing.T) {
	service, m := NewMock(t)

	m.orders.EXPECT().FindByID(gomock.Any(), 10).Return(&domain.Order{ID: 10}, nil)
	m.files.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f *domain.OrderFile) error {
			assert.Equal(t, "docx", f.FileType)
			assert.WithinDuration(t, time.Now(), f.UploadedAt, time.Second)
			return nil
		},
	)

	err := service.AttachFile(context.Background(), &domain.OrderFile{OrderID: 10, Filename: "Курсовая.DOCX"})
	assert.NoError(t, err)

	m.orders.EXPECT().FindByID(gomock.Any(), 404).Return(nil, nil)
	err = service.AttachFile(context.Background(), &domain.OrderFile{OrderID: 404})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
