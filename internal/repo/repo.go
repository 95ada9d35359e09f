package repo

import (
	"github.com/GlebRadaev/orderdesk/internal/notify"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	filerepo "github.com/GlebRadaev/orderdesk/internal/repo/file-repo"
	historyrepo "github.com/GlebRadaev/orderdesk/internal/repo/history-repo"
	messagerepo "github.com/GlebRadaev/orderdesk/internal/repo/message-repo"
	orderrepo "github.com/GlebRadaev/orderdesk/internal/repo/order-repo"
	outboxrepo "github.com/GlebRadaev/orderdesk/internal/repo/outbox-repo"
	paymentrepo "github.com/GlebRadaev/orderdesk/internal/repo/payment-repo"
	userrepo "github.com/GlebRadaev/orderdesk/internal/repo/user-repo"
	"github.com/GlebRadaev/orderdesk/internal/service/orderservice"
	"github.com/GlebRadaev/orderdesk/internal/service/paymentservice"
)

// Repositories держит по одному репозиторию на таблицу. Репозитории,
// которые нужны нескольким сервисам, хранятся конкретными типами.
type Repositories struct {
	UserRepo    *userrepo.Repository
	OrderRepo   *orderrepo.Repository
	HistoryRepo orderservice.HistoryRepo
	PaymentRepo paymentservice.Repo
	FileRepo    *filerepo.Repository
	MessageRepo *messagerepo.Repository
	OutboxRepo  notify.OutboxRepo
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		UserRepo:    userrepo.New(conn),
		OrderRepo:   orderrepo.New(conn, txManager),
		HistoryRepo: historyrepo.New(conn),
		PaymentRepo: paymentrepo.New(conn),
		FileRepo:    filerepo.New(conn),
		MessageRepo: messagerepo.New(conn),
		OutboxRepo:  outboxrepo.New(conn),
	}
}
