package poller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/service/dialogservice"
	"github.com/GlebRadaev/orderdesk/pkg/clients"
	"go.uber.org/zap"
)

//go:generate mockgen -source=poller.go -destination=poller_mock.go -package=poller

const (
	retryInterval    = 3 * time.Second
	myOrdersLabel    = "📋 Мои заказы"
	myOrdersPageSize = 10
)

// reservedLabels — кнопки меню, которые обрабатывает интейк-мастер; в
// диалог по заказу такие сообщения не попадают.
var reservedLabels = map[string]struct{}{
	"📝 Новый заказ":             {},
	"ℹ️ О нас":                  {},
	"☎️ Поддержка":              {},
	"❌ Отменить":                {},
	"⏭️ Пропустить":             {},
	"✅ Завершить загрузку":      {},
	"✅ Подтвердить заказ":       {},
	"✏️ Редактировать":          {},
	"🔙 Назад":                   {},
	"💬 Написать администратору": {},
}

type Bot interface {
	GetUpdates(ctx context.Context, offset int64) ([]clients.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, buttons []domain.Button) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type UserService interface {
	Upsert(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID int) (*domain.User, error)
}

type OrderService interface {
	Get(ctx context.Context, orderID int) (*domain.Order, error)
	ListByUser(ctx context.Context, userID, limit, offset int) ([]domain.Order, error)
	ResolveActive(ctx context.Context, userID int) (*domain.Order, error)
	Override(ctx context.Context, orderID int, newStatus, note string) error
}

type PaymentService interface {
	AttachScreenshot(ctx context.Context, orderID, fileID int, note string) (*domain.Payment, error)
}

type DialogService interface {
	RouteInbound(ctx context.Context, user *domain.User, text string, externalID *int) (*domain.Order, error)
	AttachFile(ctx context.Context, file *domain.OrderFile) error
}

type Notifier interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	Flush()
}

// Service — долгоживущий потребитель входящих событий чата. Держит
// собственный клиент Bot API и обрабатывает события по одному; состояние
// между поверхностями живёт только в базе.
type Service struct {
	bot      Bot
	users    UserService
	orders   OrderService
	payments PaymentService
	dialog   DialogService
	notifier Notifier
	offset   int64
}

func New(bot Bot, users UserService, orders OrderService, payments PaymentService, dialog DialogService, notifier Notifier) *Service {
	return &Service{
		bot:      bot,
		users:    users,
		orders:   orders,
		payments: payments,
		dialog:   dialog,
		notifier: notifier,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Chat poller started")
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping chat poller")
			return
		default:
		}

		updates, err := s.bot.GetUpdates(ctx, s.offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Error("Failed to fetch updates", zap.Error(err))
			time.Sleep(retryInterval)
			continue
		}

		for _, update := range updates {
			s.handleUpdate(ctx, update)
			if update.UpdateID >= s.offset {
				s.offset = update.UpdateID + 1
			}
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, update clients.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *clients.Message) {
	user, err := s.upsertSender(ctx, msg)
	if err != nil || user == nil || user.IsBlocked {
		return
	}

	switch {
	case msg.Document != nil || len(msg.Photo) > 0:
		s.handleInboundFile(ctx, user, msg)
	case msg.Text != "":
		s.handleInboundText(ctx, user, msg)
	}
}

func (s *Service) upsertSender(ctx context.Context, msg *clients.Message) (*domain.User, error) {
	if msg.From == nil {
		return nil, nil
	}
	user := &domain.User{
		ChatID:    msg.Chat.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		zap.L().Error("Can't upsert user", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *Service) handleInboundText(ctx context.Context, user *domain.User, msg *clients.Message) {
	text := msg.Text
	if strings.HasPrefix(text, "/") {
		// команды обслуживает интейк-мастер
		return
	}
	if text == myOrdersLabel {
		s.sendOrderList(ctx, user)
		return
	}
	if _, reserved := reservedLabels[text]; reserved {
		return
	}

	externalID := msg.MessageID
	order, err := s.dialog.RouteInbound(ctx, user, text, &externalID)
	if errors.Is(err, dialogservice.ErrNoActiveOrder) {
		// сообщение подтверждаем, но не сохраняем: привязать не к чему
		s.reply(ctx, user.ChatID,
			"💬 Ваше сообщение получено!\n\nУ вас нет активных заказов для общения. Создайте новый заказ.")
		return
	}
	if err != nil {
		zap.L().Error("Can't route inbound message", zap.Int("userID", user.ID), zap.Error(err))
		return
	}

	s.reply(ctx, user.ChatID, fmt.Sprintf(
		"✅ <b>Сообщение получено!</b>\n\n📋 <b>Заказ #%d</b>\n💬 Передано администратору, ответ придёт в этот чат.",
		order.ID,
	))
}

func (s *Service) sendOrderList(ctx context.Context, user *domain.User) {
	orders, err := s.orders.ListByUser(ctx, user.ID, myOrdersPageSize, 0)
	if err != nil {
		zap.L().Error("Can't list user orders", zap.Int("userID", user.ID), zap.Error(err))
		return
	}
	if len(orders) == 0 {
		s.reply(ctx, user.ChatID, "📭 У вас пока нет заказов.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 <b>Ваши заказы:</b>\n")
	for i := range orders {
		order := &orders[i]
		b.WriteString(fmt.Sprintf("\n<b>#%d</b> %s: %s\n%s",
			order.ID, order.WorkType, order.ShortTopic(), domain.StatusName(order.Status)))
		if order.Price != nil {
			b.WriteString(fmt.Sprintf(" · %.2f ₽", *order.Price))
		}
		b.WriteString("\n")
	}
	s.reply(ctx, user.ChatID, b.String())
}

// handleInboundFile сохраняет присланный файл как скриншот оплаты по
// активному заказу. Файл остаётся в чат-хранилище, путь — внешний file_id.
func (s *Service) handleInboundFile(ctx context.Context, user *domain.User, msg *clients.Message) {
	order, err := s.orders.ResolveActive(ctx, user.ID)
	if err != nil {
		zap.L().Error("Can't resolve active order", zap.Int("userID", user.ID), zap.Error(err))
		return
	}
	if order == nil {
		s.reply(ctx, user.ChatID, "❌ У вас нет активных заказов, файл не привязан.")
		return
	}

	file := &domain.OrderFile{OrderID: order.ID}
	if msg.Document != nil {
		file.Filename = msg.Document.FileName
		file.FilePath = msg.Document.FileID
		file.FileSize = msg.Document.FileSize
	} else {
		largest := msg.Photo[len(msg.Photo)-1]
		file.Filename = fmt.Sprintf("photo_%s.jpg", largest.FileID)
		file.FilePath = largest.FileID
		file.FileSize = largest.FileSize
		file.FileType = "jpg"
	}

	if err := s.dialog.AttachFile(ctx, file); err != nil {
		zap.L().Error("Can't attach inbound file", zap.Int("orderID", order.ID), zap.Error(err))
		return
	}

	if _, err := s.payments.AttachScreenshot(ctx, order.ID, file.ID, msg.Caption); err != nil {
		zap.L().Error("Can't attach screenshot", zap.Int("orderID", order.ID), zap.Error(err))
		return
	}

	s.reply(ctx, user.ChatID, fmt.Sprintf(
		"🧾 <b>Скриншот получен!</b>\n\n📋 <b>Заказ #%d</b>\nОплата будет проверена администратором.",
		order.ID,
	))
}

func (s *Service) handleCallback(ctx context.Context, cb *clients.CallbackQuery) {
	switch {
	case strings.HasPrefix(cb.Data, "accept_price:"):
		s.handlePriceDecision(ctx, cb, true)
	case strings.HasPrefix(cb.Data, "decline_price:"):
		s.handlePriceDecision(ctx, cb, false)
	default:
		zap.L().Debug("Unknown callback", zap.String("data", cb.Data))
	}
}

func (s *Service) handlePriceDecision(ctx context.Context, cb *clients.CallbackQuery, accepted bool) {
	parts := strings.SplitN(cb.Data, ":", 2)
	orderID, err := strconv.Atoi(parts[1])
	if err != nil {
		s.answer(ctx, cb.ID, "❌ Некорректный запрос")
		return
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		s.answer(ctx, cb.ID, "❌ Заказ не найден")
		return
	}

	owner, err := s.users.FindByID(ctx, order.UserID)
	if err != nil || owner == nil || owner.ChatID != cb.From.ID {
		s.answer(ctx, cb.ID, "❌ Это не ваш заказ")
		return
	}

	if accepted {
		if order.Price == nil {
			s.answer(ctx, cb.ID, "❌ Цена не установлена")
			return
		}
		// цена назначается в любом активном статусе, поэтому решение
		// пользователя идёт через override в обход таблицы переходов;
		// вход в WAITING_PAYMENT создаёт платёж и шлёт реквизиты пост-хуком
		if err := s.orders.Override(ctx, orderID, domain.WaitingPaymentStatus, "Цена принята клиентом"); err != nil {
			zap.L().Error("Can't accept price", zap.Int("orderID", orderID), zap.Error(err))
			s.answer(ctx, cb.ID, "❌ Ошибка обновления статуса")
			return
		}
		s.answer(ctx, cb.ID, "✅ Цена принята!")
		s.alertStaff(ctx, order, fmt.Sprintf(
			"✅ <b>ЦЕНА ПРИНЯТА</b>\n\n📋 Заказ #%d\n👤 %s\n💵 %.2f ₽\nОжидается оплата.",
			orderID, owner.FullName(), *order.Price,
		))
		return
	}

	if err := s.orders.Override(ctx, orderID, domain.NewStatus, "Цена отклонена клиентом"); err != nil {
		zap.L().Error("Can't decline price", zap.Int("orderID", orderID), zap.Error(err))
		s.answer(ctx, cb.ID, "❌ Ошибка обновления статуса")
		return
	}
	s.answer(ctx, cb.ID, "Цена отклонена")
	s.alertStaff(ctx, order, fmt.Sprintf(
		"❌ <b>ЦЕНА ОТКЛОНЕНА</b>\n\n📋 Заказ #%d\n👤 %s\nНазначьте новую цену.",
		orderID, owner.FullName(),
	))
}

func (s *Service) alertStaff(ctx context.Context, order *domain.Order, text string) {
	err := s.notifier.Enqueue(ctx, &domain.Notification{
		OrderID: order.ID,
		Kind:    domain.NotifyAdminAlert,
		Text:    text,
	})
	if err != nil {
		zap.L().Error("Can't enqueue staff alert", zap.Int("orderID", order.ID), zap.Error(err))
		return
	}
	s.notifier.Flush()
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.bot.SendMessage(ctx, chatID, text, nil); err != nil {
		zap.L().Error("Can't reply to user", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if err := s.bot.AnswerCallback(ctx, callbackID, text); err != nil {
		zap.L().Error("Can't answer callback", zap.Error(err))
	}
}
