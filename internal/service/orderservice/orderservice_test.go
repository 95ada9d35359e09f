package orderservice

import (
	"context"
	"errors"
	"testing"
	"time"

	orderrepo "github.com/GlebRadaev/orderdesk/internal/repo/order-repo"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

type mocks struct {
	repo      *MockRepo
	history   *MockHistoryRepo
	users     *MockUserRepo
	notifier  *MockNotifier
	payments  *MockPaymentRequester
	txManager *MockTXManager
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		repo:      NewMockRepo(ctrl),
		history:   NewMockHistoryRepo(ctrl),
		users:     NewMockUserRepo(ctrl),
		notifier:  NewMockNotifier(ctrl),
		payments:  NewMockPaymentRequester(ctrl),
		txManager: NewMockTXManager(ctrl),
	}
	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	service := New(m.repo, m.history, m.users, m.notifier, m.txManager)
	service.SetPaymentRequester(m.payments)
	defer ctrl.Finish()
	return service, m
}

func TestCreate(t *testing.T) {
	service, m := NewMock(t)

	order := &domain.Order{UserID: 1, WorkType: "Курсовая", Topic: "Алгоритмы"}
	m.repo.EXPECT().Save(gomock.Any(), order).DoAndReturn(
		func(_ context.Context, o *domain.Order) error {
			o.ID = 10
			return nil
		},
	)
	m.history.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h *domain.StatusHistory) error {
			assert.Equal(t, 10, h.OrderID)
			assert.Nil(t, h.OldStatus)
			assert.Equal(t, domain.NewStatus, h.NewStatus)
			return nil
		},
	)

	err := service.Create(context.Background(), order)
	assert.NoError(t, err)
	assert.Equal(t, domain.NewStatus, order.Status)
}

func TestTransition(t *testing.T) {
	service, m := NewMock(t)
	seen := time.Now()
	updated := seen.Add(time.Second)

	tests := []struct {
		name          string
		orderID       int
		newStatus     string
		prepareMock   func()
		expectedError error
	}{
		{
			name:      "Allowed transition appends exactly one history row",
			orderID:   1,
			newStatus: domain.InProgressStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), 1, domain.InProgressStatus, seen).Return(updated, nil)
				m.history.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, h *domain.StatusHistory) error {
						assert.Equal(t, domain.NewStatus, *h.OldStatus)
						assert.Equal(t, domain.InProgressStatus, h.NewStatus)
						return nil
					},
				).Times(1)
				m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, n *domain.Notification) error {
						assert.Equal(t, domain.NotifyStatusChanged, n.Kind)
						assert.Equal(t, int64(100), n.ChatID)
						return nil
					},
				)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
		{
			name:      "Disallowed transition is rejected",
			orderID:   1,
			newStatus: domain.SentStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, Status: domain.NewStatus, UpdatedAt: seen}, nil)
			},
			expectedError: ErrInvalidTransition,
		},
		{
			name:      "Terminal status is frozen",
			orderID:   1,
			newStatus: domain.InProgressStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, Status: domain.SentStatus, UpdatedAt: seen}, nil)
			},
			expectedError: ErrInvalidTransition,
		},
		{
			name:          "Unknown status",
			orderID:       1,
			newStatus:     "SHIPPED",
			prepareMock:   func() {},
			expectedError: ErrUnknownStatus,
		},
		{
			name:      "Order not found",
			orderID:   404,
			newStatus: domain.InProgressStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 404).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name:      "Concurrent update is reported as conflict",
			orderID:   1,
			newStatus: domain.InProgressStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, Status: domain.NewStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), 1, domain.InProgressStatus, seen).
					Return(time.Time{}, orderrepo.ErrStale)
			},
			expectedError: ErrConflict,
		},
		{
			name:      "Any active status may be cancelled",
			orderID:   2,
			newStatus: domain.CancelledStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 2).
					Return(&domain.Order{ID: 2, UserID: 5, Status: domain.RevisionStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), 2, domain.CancelledStatus, seen).Return(updated, nil)
				m.history.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
				m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
		{
			name:      "Blocked user gets no notification",
			orderID:   3,
			newStatus: domain.InProgressStatus,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 3).
					Return(&domain.Order{ID: 3, UserID: 7, Status: domain.NewStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), 3, domain.InProgressStatus, seen).Return(updated, nil)
				m.history.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
				m.users.EXPECT().FindByID(gomock.Any(), 7).Return(&domain.User{ID: 7, IsBlocked: true}, nil)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			err := service.Transition(context.Background(), tt.orderID, tt.newStatus, "note")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransitionToWaitingPayment(t *testing.T) {
	service, m := NewMock(t)
	seen := time.Now()
	price := 1500.0

	m.repo.EXPECT().FindByID(gomock.Any(), 1).
		Return(&domain.Order{ID: 1, UserID: 5, Status: domain.ReadyStatus, Price: &price, UpdatedAt: seen}, nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), 1, domain.WaitingPaymentStatus, seen).Return(seen.Add(time.Second), nil)
	m.history.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
	m.payments.EXPECT().RequestPayment(gomock.Any(), 1).Return("реквизиты", nil)
	m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, n *domain.Notification) error {
			assert.Equal(t, domain.NotifyPaymentRequest, n.Kind)
			assert.Equal(t, "реквизиты", n.Text)
			return nil
		},
	)
	m.notifier.EXPECT().Flush()

	err := service.Transition(context.Background(), 1, domain.WaitingPaymentStatus, "Цена принята клиентом")
	assert.NoError(t, err)
}

func TestPriceDecisionPaths(t *testing.T) {
	seen := time.Now()
	price := 1500.0

	t.Run("Plain transition to WAITING_PAYMENT is blocked outside READY", func(t *testing.T) {
		service, m := NewMock(t)
		m.repo.EXPECT().FindByID(gomock.Any(), 1).
			Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, Price: &price, UpdatedAt: seen}, nil)

		err := service.Transition(context.Background(), 1, domain.WaitingPaymentStatus, "Цена принята клиентом")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Plain transition back to NEW is blocked from READY", func(t *testing.T) {
		service, m := NewMock(t)
		m.repo.EXPECT().FindByID(gomock.Any(), 2).
			Return(&domain.Order{ID: 2, UserID: 5, Status: domain.ReadyStatus, Price: &price, UpdatedAt: seen}, nil)

		err := service.Transition(context.Background(), 2, domain.NewStatus, "Цена отклонена клиентом")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Accept override sends a NEW order to WAITING_PAYMENT with payment instructions", func(t *testing.T) {
		service, m := NewMock(t)
		m.repo.EXPECT().FindByID(gomock.Any(), 1).
			Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, Price: &price, UpdatedAt: seen}, nil)
		m.repo.EXPECT().UpdateStatus(gomock.Any(), 1, domain.WaitingPaymentStatus, seen).Return(seen.Add(time.Second), nil)
		m.history.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, h *domain.StatusHistory) error {
				assert.Equal(t, domain.NewStatus, *h.OldStatus)
				assert.Equal(t, "override: Цена принята клиентом", h.Note)
				return nil
			},
		)
		m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
		m.payments.EXPECT().RequestPayment(gomock.Any(), 1).Return("реквизиты", nil)
		m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, n *domain.Notification) error {
				assert.Equal(t, domain.NotifyPaymentRequest, n.Kind)
				return nil
			},
		)
		m.notifier.EXPECT().Flush()

		err := service.Override(context.Background(), 1, domain.WaitingPaymentStatus, "Цена принята клиентом")
		assert.NoError(t, err)
	})

	t.Run("Decline override returns a READY order to NEW", func(t *testing.T) {
		service, m := NewMock(t)
		m.repo.EXPECT().FindByID(gomock.Any(), 2).
			Return(&domain.Order{ID: 2, UserID: 5, Status: domain.ReadyStatus, Price: &price, UpdatedAt: seen}, nil)
		m.repo.EXPECT().UpdateStatus(gomock.Any(), 2, domain.NewStatus, seen).Return(seen.Add(time.Second), nil)
		m.history.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, h *domain.StatusHistory) error {
				assert.Equal(t, domain.ReadyStatus, *h.OldStatus)
				assert.Equal(t, "override: Цена отклонена клиентом", h.Note)
				return nil
			},
		)
		m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
		m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, n *domain.Notification) error {
				assert.Equal(t, domain.NotifyStatusChanged, n.Kind)
				return nil
			},
		)
		m.notifier.EXPECT().Flush()

		err := service.Override(context.Background(), 2, domain.NewStatus, "Цена отклонена клиентом")
		assert.NoError(t, err)
	})
}

func TestOverride(t *testing.T) {
	service, m := NewMock(t)
	seen := time.Now()

	// NEW -> SENT не разрешён таблицей, но override проходит и аудируется
	m.repo.EXPECT().FindByID(gomock.Any(), 1).
		Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, UpdatedAt: seen}, nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), 1, domain.SentStatus, seen).Return(seen.Add(time.Second), nil)
	m.history.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h *domain.StatusHistory) error {
			assert.Equal(t, "override: ручная правка", h.Note)
			return nil
		},
	)
	m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
	m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Flush()

	err := service.Override(context.Background(), 1, domain.SentStatus, "ручная правка")
	assert.NoError(t, err)
}

func TestSetPrice(t *testing.T) {
	service, m := NewMock(t)
	seen := time.Now()

	tests := []struct {
		name          string
		price         float64
		prepareMock   func()
		expectedError error
	}{
		{
			name:          "Non-positive price is rejected",
			price:         0,
			prepareMock:   func() {},
			expectedError: ErrInvalidPrice,
		},
		{
			name:  "Price set with accept and decline buttons",
			price: 2500,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdatePrice(gomock.Any(), 1, 2500.0, seen).Return(nil)
				m.users.EXPECT().FindByID(gomock.Any(), 5).Return(&domain.User{ID: 5, ChatID: 100}, nil)
				m.notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, n *domain.Notification) error {
						assert.Equal(t, domain.NotifyPriceSet, n.Kind)
						assert.Contains(t, n.ButtonsJSON, "accept_price:1")
						assert.Contains(t, n.ButtonsJSON, "decline_price:1")
						return nil
					},
				)
				m.notifier.EXPECT().Flush()
			},
			expectedError: nil,
		},
		{
			name:  "Concurrent price update is reported as conflict",
			price: 2500,
			prepareMock: func() {
				m.repo.EXPECT().FindByID(gomock.Any(), 1).
					Return(&domain.Order{ID: 1, UserID: 5, Status: domain.NewStatus, UpdatedAt: seen}, nil)
				m.repo.EXPECT().UpdatePrice(gomock.Any(), 1, 2500.0, seen).Return(orderrepo.ErrStale)
			},
			expectedError: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			err := service.SetPrice(context.Background(), 1, tt.price)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveActive(t *testing.T) {
	service, m := NewMock(t)

	earliest := &domain.Order{ID: 1, UserID: 5, Status: domain.InProgressStatus}
	m.repo.EXPECT().FindActiveByUser(gomock.Any(), 5).Return(earliest, nil)

	order, err := service.ResolveActive(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, earliest, order)
}

func TestListByStatus(t *testing.T) {
	service, m := NewMock(t)

	_, err := service.ListByStatus(context.Background(), "SHIPPED", 10, 0)
	assert.ErrorIs(t, err, ErrUnknownStatus)

	m.repo.EXPECT().FindByStatus(gomock.Any(), domain.NewStatus, 10, 0).Return([]domain.Order{{ID: 1}}, nil)
	orders, err := service.ListByStatus(context.Background(), domain.NewStatus, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestDelete(t *testing.T) {
	service, m := NewMock(t)

	m.repo.EXPECT().Delete(gomock.Any(), 1).Return(true, nil)
	assert.NoError(t, service.Delete(context.Background(), 1))

	m.repo.EXPECT().Delete(gomock.Any(), 404).Return(false, nil)
	assert.ErrorIs(t, service.Delete(context.Background(), 404), ErrOrderNotFound)

	m.repo.EXPECT().Delete(gomock.Any(), 2).Return(false, errors.New("database error"))
	assert.Error(t, service.Delete(context.Background(), 2))
}
