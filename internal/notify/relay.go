package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	filerepo "github.com/GlebRadaev/orderdesk/internal/repo/file-repo"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=relay.go -destination=relay_mock.go -package=notify

const (
	drainInterval = 5 * time.Second
	claimLimit    = 100
	// claimHold должен перекрывать самую долгую доставку, иначе второй
	// дренажер заберёт ту же строку до завершения первой попытки
	claimHold     = 30 * time.Second
	retryInterval = 15 * time.Second
	maxAttempts   = 5
	sendTimeout   = 30 * time.Second
	poolSize      = 10
)

type OutboxRepo interface {
	Save(ctx context.Context, n *domain.Notification) error
	ClaimDue(ctx context.Context, limit int, hold time.Duration) ([]domain.Notification, error)
	MarkDelivered(ctx context.Context, notificationID int, at time.Time) error
	MarkFailed(ctx context.Context, notificationID, maxAttempts int, nextAttempt time.Time, lastError string) error
}

type FileStore interface {
	FindByID(ctx context.Context, fileID int) (*domain.OrderFile, error)
	MarkSent(ctx context.Context, fileID int, at time.Time) (bool, error)
}

type MessageStore interface {
	MarkDelivered(ctx context.Context, messageID int, externalID *int) error
}

// Transport — одна доставка в чат. Реле создаёт клиент на время отправки
// и выбрасывает его: жизненные циклы запроса админки и поллера не делятся.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons []domain.Button) (int, error)
	SendDocument(ctx context.Context, chatID int64, file *domain.OrderFile, caption string) error
}

// Relay — мост между синхронными мутациями админки и асинхронным чатом.
// Уведомление пишется в outbox в транзакции мутации; доставка идёт в
// отдельном контексте исполнения и при сбое повторяется с нарастающей
// задержкой, пока не уйдёт в dead. Ошибки транспорта до вызывающего
// никогда не доходят.
type Relay struct {
	outbox       OutboxRepo
	files        FileStore
	messages     MessageStore
	newTransport func() Transport
	adminChatID  int64
	workerPool   WorkerPoolI
}

func New(outbox OutboxRepo, files FileStore, messages MessageStore, newTransport func() Transport, adminChatID int64) *Relay {
	return &Relay{
		outbox:       outbox,
		files:        files,
		messages:     messages,
		newTransport: newTransport,
		adminChatID:  adminChatID,
		workerPool:   NewWorkerPool(poolSize),
	}
}

// Enqueue пишет уведомление в outbox в текущей транзакции вызывающего.
// Ошибка записи откатывает и мутацию: факт без уведомления не фиксируется.
func (r *Relay) Enqueue(ctx context.Context, n *domain.Notification) error {
	if n.Kind == domain.NotifyAdminAlert && n.ChatID == 0 {
		if r.adminChatID == 0 {
			zap.L().Warn("admin chat is not configured, alert dropped", zap.Int("orderID", n.OrderID))
			return nil
		}
		n.ChatID = r.adminChatID
	}
	return r.outbox.Save(ctx, n)
}

// Flush запускает немедленную попытку доставки: отсоединённая горутина с
// одноразовым клиентом, не привязанная ни к запросу, ни к поллеру.
// Вызывается после коммита; сбой попытки подберёт фоновый дренаж.
func (r *Relay) Flush() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		r.drainOnce(ctx, r.newTransport())
	}()
}

// Start поднимает фоновый дренаж outbox.
func (r *Relay) Start(ctx context.Context) {
	zap.L().Info("Notification relay started")
	go r.run(ctx)
}

func (r *Relay) run(ctx context.Context) {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping notification relay")
			r.workerPool.Close()
			return
		case <-ticker.C:
			r.drainPool(ctx)
		}
	}
}

func (r *Relay) drainPool(ctx context.Context) {
	notifications, err := r.outbox.ClaimDue(ctx, claimLimit, claimHold)
	if err != nil {
		zap.L().Error("Failed to claim notifications", zap.Error(err))
		return
	}
	if len(notifications) == 0 {
		return
	}

	transport := r.newTransport()
	var g errgroup.Group
	for _, n := range notifications {
		n := n
		g.Go(func() error {
			return r.workerPool.AddTask(ctx, func() error {
				r.deliver(ctx, transport, &n)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Error("Error dispatching notifications", zap.Error(err))
	}
}

func (r *Relay) drainOnce(ctx context.Context, transport Transport) {
	notifications, err := r.outbox.ClaimDue(ctx, claimLimit, claimHold)
	if err != nil {
		zap.L().Error("Failed to claim notifications", zap.Error(err))
		return
	}
	for _, n := range notifications {
		n := n
		r.deliver(ctx, transport, &n)
	}
}

// deliver выполняет одну попытку. Любая ошибка транспорта логируется и
// переводит строку на следующую попытку — наружу не уходит ничего.
func (r *Relay) deliver(ctx context.Context, transport Transport, n *domain.Notification) {
	if n.FileID != nil {
		r.deliverFile(ctx, transport, n)
		return
	}

	var buttons []domain.Button
	if n.ButtonsJSON != "" {
		if err := json.Unmarshal([]byte(n.ButtonsJSON), &buttons); err != nil {
			zap.L().Error("Broken buttons payload, delivering without keyboard",
				zap.Int("notificationID", n.ID), zap.Error(err))
			buttons = nil
		}
	}

	externalID, err := transport.SendMessage(ctx, n.ChatID, n.Text, buttons)
	if err != nil {
		r.fail(ctx, n, err)
		return
	}

	if n.MessageID != nil {
		if err := r.messages.MarkDelivered(ctx, *n.MessageID, &externalID); err != nil {
			zap.L().Error("Can't flag message delivered", zap.Int("messageID", *n.MessageID), zap.Error(err))
		}
	}
	r.succeed(ctx, n)
}

func (r *Relay) deliverFile(ctx context.Context, transport Transport, n *domain.Notification) {
	file, err := r.files.FindByID(ctx, *n.FileID)
	if err != nil {
		r.fail(ctx, n, err)
		return
	}
	if file == nil {
		// файл удалили после постановки в очередь: строка мертва сразу
		zap.L().Warn("Notification references missing file", zap.Int("notificationID", n.ID))
		r.outbox.MarkFailed(ctx, n.ID, 0, time.Now(), "file not found")
		return
	}

	if err := transport.SendDocument(ctx, n.ChatID, file, n.Text); err != nil {
		r.fail(ctx, n, err)
		return
	}

	// sent_to_user переходит false->true ровно один раз, повторная
	// доставка того же файла флаг не трогает
	if _, err := r.files.MarkSent(ctx, file.ID, time.Now()); err != nil && !errors.Is(err, filerepo.ErrAlreadySent) {
		zap.L().Error("Can't flag file sent", zap.Int("fileID", file.ID), zap.Error(err))
	}
	r.succeed(ctx, n)
}

func (r *Relay) succeed(ctx context.Context, n *domain.Notification) {
	if err := r.outbox.MarkDelivered(ctx, n.ID, time.Now()); err != nil {
		zap.L().Error("Can't mark notification delivered", zap.Int("notificationID", n.ID), zap.Error(err))
	}
}

func (r *Relay) fail(ctx context.Context, n *domain.Notification, cause error) {
	zap.L().Error("Notification delivery failed",
		zap.Int("notificationID", n.ID),
		zap.Int("orderID", n.OrderID),
		zap.String("kind", n.Kind),
		zap.Int("attempt", n.Attempts+1),
		zap.Error(cause),
	)
	nextAttempt := time.Now().Add(retryInterval * time.Duration(n.Attempts+1))
	if err := r.outbox.MarkFailed(ctx, n.ID, maxAttempts, nextAttempt, cause.Error()); err != nil {
		zap.L().Error("Can't mark notification failed", zap.Int("notificationID", n.ID), zap.Error(err))
	}
}
