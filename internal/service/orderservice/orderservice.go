package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	orderrepo "github.com/GlebRadaev/orderdesk/internal/repo/order-repo"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"go.uber.org/zap"
)

//go:generate mockgen -source=orderservice.go -destination=orderservice_mock.go -package=orderservice

type Repo interface {
	FindByID(ctx context.Context, orderID int) (*domain.Order, error)
	FindActiveByUser(ctx context.Context, userID int) (*domain.Order, error)
	FindByUser(ctx context.Context, userID, limit, offset int) ([]domain.Order, error)
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, orderID int, status string, seenUpdatedAt time.Time) (time.Time, error)
	UpdatePrice(ctx context.Context, orderID int, price float64, seenUpdatedAt time.Time) error
	Delete(ctx context.Context, orderID int) (bool, error)
}

type HistoryRepo interface {
	Append(ctx context.Context, h *domain.StatusHistory) error
	FindByOrder(ctx context.Context, orderID int) ([]domain.StatusHistory, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, userID int) (*domain.User, error)
}

// Notifier — outbox-реле: Enqueue пишет уведомление в транзакции вызова,
// Flush запускает отсоединённую попытку доставки после коммита.
type Notifier interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	Flush()
}

// PaymentRequester выдаёт платёжные реквизиты при входе заказа в
// WAITING_PAYMENT. Подвязывается сеттером из-за взаимной зависимости
// с платёжным сервисом.
type PaymentRequester interface {
	RequestPayment(ctx context.Context, orderID int) (string, error)
}

type TXManager interface {
	Begin(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrConflict          = errors.New("order was modified concurrently")
)

// transitions — таблица допустимых переходов. Любой нетерминальный статус
// дополнительно может уйти в CANCELLED (см. allowed).
var transitions = map[string][]string{
	domain.NewStatus:            {domain.InProgressStatus, domain.ReadyStatus},
	domain.RevisionStatus:       {domain.InProgressStatus, domain.ReadyStatus},
	domain.InProgressStatus:     {domain.ReadyStatus, domain.RevisionStatus},
	domain.ReadyStatus:          {domain.WaitingPaymentStatus, domain.RevisionStatus},
	domain.WaitingPaymentStatus: {domain.SentStatus, domain.NewStatus},
	domain.SentStatus:           {},
	domain.CancelledStatus:      {},
}

func allowed(from, to string) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	if to == domain.CancelledStatus {
		return from != domain.SentStatus && from != domain.CancelledStatus
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo      Repo
	history   HistoryRepo
	users     UserRepo
	notifier  Notifier
	txManager TXManager
	payments  PaymentRequester
}

func New(repo Repo, history HistoryRepo, users UserRepo, notifier Notifier, txManager TXManager) *Service {
	return &Service{
		repo:      repo,
		history:   history,
		users:     users,
		notifier:  notifier,
		txManager: txManager,
	}
}

// SetPaymentRequester подключает платёжный сервис после конструирования.
func (s *Service) SetPaymentRequester(p PaymentRequester) {
	s.payments = p
}

// Create сохраняет новый заказ и первую строку истории (old_status = NULL).
func (s *Service) Create(ctx context.Context, order *domain.Order) error {
	order.Status = domain.NewStatus
	order.CreatedAt = time.Now()

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.repo.Save(ctx, order); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.StatusHistory{
			OrderID:   order.ID,
			OldStatus: nil,
			NewStatus: domain.NewStatus,
			Note:      "Заказ создан",
			ChangedAt: order.CreatedAt,
		})
	})
	if err != nil {
		zap.L().Error("can't create order", zap.Error(err))
		return err
	}
	return nil
}

// Transition применяет переход по таблице допустимости. Каждая успешная
// смена статуса даёт ровно одну строку истории.
func (s *Service) Transition(ctx context.Context, orderID int, newStatus, note string) error {
	return s.transition(ctx, orderID, newStatus, note, false)
}

// Override — переход в обход таблицы: ручные правки персонала и решения
// клиента по цене, которые допустимы из любого активного статуса.
// Аудируется наравне с обычными, но помечается в истории и в логе.
func (s *Service) Override(ctx context.Context, orderID int, newStatus, note string) error {
	return s.transition(ctx, orderID, newStatus, note, true)
}

func (s *Service) transition(ctx context.Context, orderID int, newStatus, note string, override bool) error {
	if _, ok := transitions[newStatus]; !ok {
		return ErrUnknownStatus
	}

	var order *domain.Order
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		if !override && !allowed(order.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
		}
		if override {
			zap.L().Warn("override transition",
				zap.Int("orderID", orderID),
				zap.String("from", order.Status),
				zap.String("to", newStatus),
			)
			note = "override: " + note
		}

		oldStatus := order.Status
		updatedAt, err := s.repo.UpdateStatus(ctx, orderID, newStatus, order.UpdatedAt)
		if err != nil {
			if errors.Is(err, orderrepo.ErrStale) {
				return ErrConflict
			}
			return err
		}
		order.Status = newStatus
		order.UpdatedAt = updatedAt

		if err := s.history.Append(ctx, &domain.StatusHistory{
			OrderID:   orderID,
			OldStatus: &oldStatus,
			NewStatus: newStatus,
			Note:      note,
			ChangedAt: updatedAt,
		}); err != nil {
			return err
		}

		return s.afterTransition(ctx, order)
	})
	if err != nil {
		return err
	}

	s.notifier.Flush()
	return nil
}

// afterTransition — пост-хук перехода: вход в WAITING_PAYMENT порождает
// платёж и реквизиты, остальные статусы — простое уведомление.
// Уведомление пишется в ту же транзакцию, что и смена статуса.
func (s *Service) afterTransition(ctx context.Context, order *domain.Order) error {
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.IsBlocked {
		return nil
	}

	if order.Status == domain.WaitingPaymentStatus && s.payments != nil {
		instructions, err := s.payments.RequestPayment(ctx, order.ID)
		if err != nil {
			return err
		}
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: order.ID,
			ChatID:  user.ChatID,
			Kind:    domain.NotifyPaymentRequest,
			Text:    instructions,
		})
	}

	text := fmt.Sprintf(
		"📋 <b>Заказ #%d</b>\n%s: %s\n\nСтатус изменён: <b>%s</b>",
		order.ID, order.WorkType, order.ShortTopic(), domain.StatusName(order.Status),
	)
	return s.notifier.Enqueue(ctx, &domain.Notification{
		OrderID: order.ID,
		ChatID:  user.ChatID,
		Kind:    domain.NotifyStatusChanged,
		Text:    text,
	})
}

// SetPrice устанавливает цену и предлагает её пользователю кнопками
// принять/отклонить.
func (s *Service) SetPrice(ctx context.Context, orderID int, price float64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		oldPrice := order.Price
		if err := s.repo.UpdatePrice(ctx, orderID, price, order.UpdatedAt); err != nil {
			if errors.Is(err, orderrepo.ErrStale) {
				return ErrConflict
			}
			return err
		}

		user, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		if user == nil || user.IsBlocked {
			return nil
		}

		text := priceText(order, oldPrice, price)
		buttons, err := json.Marshal([]domain.Button{
			{Text: "✅ Принять цену", Data: fmt.Sprintf("accept_price:%d", orderID)},
			{Text: "❌ Отклонить", Data: fmt.Sprintf("decline_price:%d", orderID)},
		})
		if err != nil {
			return err
		}

		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID:     orderID,
			ChatID:      user.ChatID,
			Kind:        domain.NotifyPriceSet,
			Text:        text,
			ButtonsJSON: string(buttons),
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Flush()
	return nil
}

func priceText(order *domain.Order, oldPrice *float64, newPrice float64) string {
	header := "💰 <b>Цена установлена для вашего заказа!</b>"
	if oldPrice != nil {
		header = "💰 <b>Цена изменена для вашего заказа!</b>"
	}
	text := fmt.Sprintf("%s\n\n📋 <b>Заказ #%d</b>\n📝 %s: %s\n\n", header, order.ID, order.WorkType, order.ShortTopic())
	if oldPrice != nil {
		text += fmt.Sprintf("Старая цена: %.2f ₽\n", *oldPrice)
	}
	text += fmt.Sprintf("Новая цена: <b>%.2f ₽</b>\n\n❓ Принимаете предложенную цену?", newPrice)
	return text
}

func (s *Service) Get(ctx context.Context, orderID int) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListByUser(ctx context.Context, userID, limit, offset int) ([]domain.Order, error) {
	return s.repo.FindByUser(ctx, userID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Order, error) {
	if status != "" {
		if _, ok := transitions[status]; !ok {
			return nil, ErrUnknownStatus
		}
	}
	return s.repo.FindByStatus(ctx, status, limit, offset)
}

// ResolveActive возвращает заказ, к которому привязываются входящие
// сообщения пользователя: самый ранний в активном статусе. При нескольких
// активных заказах выбор неоднозначен — это задокументированная эвристика.
func (s *Service) ResolveActive(ctx context.Context, userID int) (*domain.Order, error) {
	return s.repo.FindActiveByUser(ctx, userID)
}

func (s *Service) History(ctx context.Context, orderID int) ([]domain.StatusHistory, error) {
	return s.history.FindByOrder(ctx, orderID)
}

// Delete удаляет заказ со всеми связанными записями.
func (s *Service) Delete(ctx context.Context, orderID int) error {
	ok, err := s.repo.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}
