package paymentservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/service/orderservice"
	"go.uber.org/zap"
)

//go:generate mockgen -source=paymentservice.go -destination=paymentservice_mock.go -package=paymentservice

type Repo interface {
	Save(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, paymentID int) (*domain.Payment, error)
	FindLatestOpenByOrder(ctx context.Context, orderID int) (*domain.Payment, error)
	AttachScreenshot(ctx context.Context, paymentID, fileID int, note string) error
	MarkVerified(ctx context.Context, paymentID int, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, paymentID int, reason string, at time.Time) (bool, error)
	FindPending(ctx context.Context, limit int) ([]domain.Payment, error)
	FindByOrder(ctx context.Context, orderID int) ([]domain.Payment, error)
}

type OrderRepo interface {
	FindByID(ctx context.Context, orderID int) (*domain.Order, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, userID int) (*domain.User, error)
}

// StateMachine — аудируемый путь смены статуса заказа. Подтверждение
// платежа обязано идти через него, а не писать статус напрямую.
type StateMachine interface {
	Transition(ctx context.Context, orderID int, newStatus, note string) error
	Override(ctx context.Context, orderID int, newStatus, note string) error
}

type Notifier interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	Flush()
}

type TXManager interface {
	Begin(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNoPrice         = errors.New("order price is not set")
	ErrPaymentTerminal = errors.New("payment already resolved")
)

// Details — реквизиты из конфигурации, подставляемые в инструкции.
type Details struct {
	CardNumber string
	BankName   string
	SBPPhone   string
}

type Service struct {
	repo      Repo
	orders    OrderRepo
	users     UserRepo
	machine   StateMachine
	notifier  Notifier
	txManager TXManager
	details   Details
}

func New(repo Repo, orders OrderRepo, users UserRepo, machine StateMachine, notifier Notifier, txManager TXManager, details Details) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		users:     users,
		machine:   machine,
		notifier:  notifier,
		txManager: txManager,
		details:   details,
	}
}

// RequestPayment создаёт платёж с суммой, равной текущей цене заказа, и
// возвращает текст с реквизитами. Сумма фиксируется навсегда: позднейшие
// правки цены заказа на платёж не влияют.
func (s *Service) RequestPayment(ctx context.Context, orderID int) (string, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	if order.Price == nil {
		return "", ErrNoPrice
	}

	payment := &domain.Payment{
		OrderID:   orderID,
		Amount:    *order.Price,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return "", err
	}

	return s.instructions(order), nil
}

func (s *Service) instructions(order *domain.Order) string {
	text := fmt.Sprintf(
		"💰 <b>Заказ #%d готов к оплате!</b>\n\n📝 %s: %s\n💵 Сумма к оплате: <b>%.2f ₽</b>\n\n",
		order.ID, order.WorkType, order.ShortTopic(), *order.Price,
	)
	if s.details.CardNumber != "" {
		text += fmt.Sprintf("💳 Карта: %s (%s)\n", s.details.CardNumber, s.details.BankName)
	}
	if s.details.SBPPhone != "" {
		text += fmt.Sprintf("📱 СБП: %s\n", s.details.SBPPhone)
	}
	text += fmt.Sprintf("\nВ комментарии укажите номер заказа: %d\n🔍 После оплаты пришлите скриншот чека!", order.ID)
	return text
}

// RequestAndNotify — вариант для админского вызова: создаёт платёж и
// ставит реквизиты в outbox одной транзакцией.
func (s *Service) RequestAndNotify(ctx context.Context, orderID int) (string, error) {
	var instructions string
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		instructions, err = s.RequestPayment(ctx, orderID)
		if err != nil {
			return err
		}

		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		user, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		if user == nil || user.IsBlocked {
			return nil
		}
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: orderID,
			ChatID:  user.ChatID,
			Kind:    domain.NotifyPaymentRequest,
			Text:    instructions,
		})
	})
	if err != nil {
		return "", err
	}

	s.notifier.Flush()
	return instructions, nil
}

// AttachScreenshot привязывает скриншот чека к последнему открытому
// платежу заказа; если открытого нет — заводит новый (путь восстановления,
// сумма берётся из цены заказа или 0). Статус заказа не меняется.
func (s *Service) AttachScreenshot(ctx context.Context, orderID, fileID int, note string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		payment, err = s.repo.FindLatestOpenByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if payment == nil {
			amount := 0.0
			if order.Price != nil {
				amount = *order.Price
			}
			payment = &domain.Payment{
				OrderID:   orderID,
				Amount:    amount,
				CreatedAt: time.Now(),
			}
			if err := s.repo.Save(ctx, payment); err != nil {
				return err
			}
		}

		if err := s.repo.AttachScreenshot(ctx, payment.ID, fileID, note); err != nil {
			return err
		}
		payment.ScreenshotFileID = &fileID
		payment.ScreenshotNote = note

		alert := fmt.Sprintf(
			"🧾 <b>НОВЫЙ СКРИНШОТ ОПЛАТЫ</b>\n\n📋 Заказ #%d\n💵 Платёж #%d на %.2f ₽\nПроверьте оплату в админке.",
			orderID, payment.ID, payment.Amount,
		)
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: orderID,
			Kind:    domain.NotifyAdminAlert,
			Text:    alert,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Flush()
	return payment, nil
}

// Verify подтверждает платёж и переводит заказ в SENT через машину
// состояний, так что переход попадает в историю. Повторное подтверждение —
// no-op без второго побочного эффекта.
func (s *Service) Verify(ctx context.Context, paymentID, staffID int) error {
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.repo.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.IsVerified {
			return nil
		}
		if payment.IsRejected {
			return ErrPaymentTerminal
		}

		updated, err := s.repo.MarkVerified(ctx, paymentID, time.Now())
		if err != nil {
			return err
		}
		if !updated {
			// конкурент успел закрыть платёж между чтением и записью
			return ErrPaymentTerminal
		}

		zap.L().Info("payment verified",
			zap.Int("paymentID", paymentID),
			zap.Int("staffID", staffID),
		)

		note := fmt.Sprintf("Платёж #%d подтверждён", paymentID)
		if err := s.machine.Transition(ctx, payment.OrderID, domain.SentStatus, note); err != nil {
			if !errors.Is(err, orderservice.ErrInvalidTransition) {
				return err
			}
			// заказ вне WAITING_PAYMENT: подтверждение всё равно должно
			// отправить работу, но через аудируемый override
			return s.machine.Override(ctx, payment.OrderID, domain.SentStatus, note)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Flush()
	return nil
}

// Reject закрывает платёж отказом. Статус заказа не меняется: пользователь
// уведомляется и может прислать новый чек.
func (s *Service) Reject(ctx context.Context, paymentID int, reason string, staffID int) error {
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.repo.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.IsRejected {
			return nil
		}
		if payment.IsVerified {
			return ErrPaymentTerminal
		}

		updated, err := s.repo.MarkRejected(ctx, paymentID, reason, time.Now())
		if err != nil {
			return err
		}
		if !updated {
			return ErrPaymentTerminal
		}

		zap.L().Info("payment rejected",
			zap.Int("paymentID", paymentID),
			zap.Int("staffID", staffID),
			zap.String("reason", reason),
		)

		order, err := s.orders.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		user, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		if user == nil || user.IsBlocked {
			return nil
		}

		text := fmt.Sprintf(
			"❌ <b>Платёж по заказу #%d отклонён</b>\n\nПричина: %s\n\nПроверьте данные и пришлите новый скриншот оплаты.",
			payment.OrderID, reason,
		)
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: payment.OrderID,
			ChatID:  user.ChatID,
			Kind:    domain.NotifyPaymentRejected,
			Text:    text,
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Flush()
	return nil
}

// Pending возвращает платежи со скриншотом, ожидающие решения.
func (s *Service) Pending(ctx context.Context, limit int) ([]domain.Payment, error) {
	return s.repo.FindPending(ctx, limit)
}

func (s *Service) ListByOrder(ctx context.Context, orderID int) ([]domain.Payment, error) {
	return s.repo.FindByOrder(ctx, orderID)
}
