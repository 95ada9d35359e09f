package dialogservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	filerepo "github.com/GlebRadaev/orderdesk/internal/repo/file-repo"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"go.uber.org/zap"
)

//go:generate mockgen -source=dialogservice.go -destination=dialogservice_mock.go -package=dialogservice

type MessageRepo interface {
	Save(ctx context.Context, msg *domain.OrderMessage) error
	FindByOrder(ctx context.Context, orderID, limit, offset int) ([]domain.OrderMessage, error)
	CountInboundByOrder(ctx context.Context, orderID int) (int, error)
}

type FileRepo interface {
	Save(ctx context.Context, file *domain.OrderFile) error
	FindByID(ctx context.Context, fileID int) (*domain.OrderFile, error)
	FindByOrder(ctx context.Context, orderID int) ([]domain.OrderFile, error)
	MarkSent(ctx context.Context, fileID int, at time.Time) (bool, error)
	Delete(ctx context.Context, fileID int) (bool, error)
}

type OrderRepo interface {
	FindByID(ctx context.Context, orderID int) (*domain.Order, error)
	FindActiveByUser(ctx context.Context, userID int) (*domain.Order, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, userID int) (*domain.User, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	Flush()
}

type TXManager interface {
	Begin(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrEmptyMessage  = errors.New("message text is empty")
	ErrNoActiveOrder = errors.New("user has no active order")
	ErrAlreadySent   = filerepo.ErrAlreadySent
)

const defaultListLimit = 50

type Service struct {
	messages  MessageRepo
	files     FileRepo
	orders    OrderRepo
	users     UserRepo
	notifier  Notifier
	txManager TXManager
}

func New(messages MessageRepo, files FileRepo, orders OrderRepo, users UserRepo, notifier Notifier, txManager TXManager) *Service {
	return &Service{
		messages:  messages,
		files:     files,
		orders:    orders,
		users:     users,
		notifier:  notifier,
		txManager: txManager,
	}
}

// AppendAdminMessage сохраняет исходящее сообщение персонала и ставит его
// доставку в outbox. Флаг delivered выставит реле после подтверждения
// транспортом.
func (s *Service) AppendAdminMessage(ctx context.Context, orderID int, text string) (*domain.OrderMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	var msg *domain.OrderMessage
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		msg = &domain.OrderMessage{
			OrderID:   orderID,
			Text:      text,
			FromAdmin: true,
			SentAt:    time.Now(),
		}
		if err := s.messages.Save(ctx, msg); err != nil {
			return err
		}

		user, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		if user == nil || user.IsBlocked {
			return nil
		}

		formatted := fmt.Sprintf(
			"💬 <b>Сообщение от администратора</b>\n\n📋 <b>Заказ #%d</b>\n📝 %s: %s\n\n<i>%s</i>",
			orderID, order.WorkType, order.ShortTopic(), text,
		)
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID:   orderID,
			ChatID:    user.ChatID,
			Kind:      domain.NotifyMessage,
			Text:      formatted,
			MessageID: &msg.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Flush()
	return msg, nil
}

// AppendUserMessage сохраняет входящее сообщение; delivered=true — оно уже
// дошло до нас.
func (s *Service) AppendUserMessage(ctx context.Context, orderID int, text string, externalID *int) (*domain.OrderMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &domain.OrderMessage{
		OrderID:    orderID,
		Text:       text,
		FromAdmin:  false,
		Delivered:  true,
		ExternalID: externalID,
		SentAt:     time.Now(),
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RouteInbound привязывает свободный текст пользователя к активному
// заказу и уведомляет персонал. Без активного заказа сообщение не
// сохраняется — вызывающий отвечает пользователю сам (ErrNoActiveOrder).
func (s *Service) RouteInbound(ctx context.Context, user *domain.User, text string, externalID *int) (*domain.Order, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	var order *domain.Order
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindActiveByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNoActiveOrder
		}

		if _, err := s.AppendUserMessage(ctx, order.ID, text, externalID); err != nil {
			return err
		}

		preview := text
		if len([]rune(preview)) > 200 {
			preview = string([]rune(preview)[:200]) + "..."
		}
		alert := fmt.Sprintf(
			"💬 <b>НОВОЕ СООБЩЕНИЕ ОТ КЛИЕНТА</b>\n\n📋 Заказ #%d\n👤 %s\n\n<i>%s</i>",
			order.ID, user.FullName(), preview,
		)
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: order.ID,
			Kind:    domain.NotifyAdminAlert,
			Text:    alert,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Flush()
	return order, nil
}

// ListMessages отдаёт диалог от старых к новым.
func (s *Service) ListMessages(ctx context.Context, orderID, limit, offset int) ([]domain.OrderMessage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.messages.FindByOrder(ctx, orderID, limit, offset)
}

// AttachFile регистрирует файл, загруженный любой из сторон.
func (s *Service) AttachFile(ctx context.Context, file *domain.OrderFile) error {
	order, err := s.orders.FindByID(ctx, file.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if file.FileType == "" {
		if i := strings.LastIndex(file.Filename, "."); i >= 0 {
			file.FileType = strings.ToLower(file.Filename[i+1:])
		}
	}
	file.UploadedAt = time.Now()
	return s.files.Save(ctx, file)
}

// SendFile ставит доставку файла пользователю в outbox.
func (s *Service) SendFile(ctx context.Context, fileID int) error {
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		file, err := s.files.FindByID(ctx, fileID)
		if err != nil {
			return err
		}
		if file == nil {
			return ErrFileNotFound
		}
		if file.SentToUser {
			return ErrAlreadySent
		}

		order, err := s.orders.FindByID(ctx, file.OrderID)
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

		caption := fmt.Sprintf(
			"📎 <b>Файл от администратора</b>\n\n📋 <b>Заказ #%d</b>\n📄 %s",
			order.ID, file.Filename,
		)
		return s.notifier.Enqueue(ctx, &domain.Notification{
			OrderID: order.ID,
			ChatID:  user.ChatID,
			Kind:    domain.NotifyFile,
			Text:    caption,
			FileID:  &file.ID,
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Flush()
	return nil
}

// MarkSent помечает файл отправленным. Идемпотентен: повторный вызов —
// ErrAlreadySent, sent_at первой отправки не перезаписывается.
func (s *Service) MarkSent(ctx context.Context, fileID int) error {
	ok, err := s.files.MarkSent(ctx, fileID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Warn("mark sent on missing file", zap.Int("fileID", fileID))
		return ErrFileNotFound
	}
	return nil
}

func (s *Service) ListFiles(ctx context.Context, orderID int) ([]domain.OrderFile, error) {
	return s.files.FindByOrder(ctx, orderID)
}

func (s *Service) GetFile(ctx context.Context, fileID int) (*domain.OrderFile, error) {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}
	return file, nil
}

func (s *Service) DeleteFile(ctx context.Context, fileID int) error {
	ok, err := s.files.Delete(ctx, fileID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFileNotFound
	}
	return nil
}

// InboundCount — счётчик сообщений клиента для списков в админке.
func (s *Service) InboundCount(ctx context.Context, orderID int) (int, error) {
	return s.messages.CountInboundByOrder(ctx, orderID)
}
