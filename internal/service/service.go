package service

import (
	"github.com/GlebRadaev/orderdesk/internal/config"
	"github.com/GlebRadaev/orderdesk/internal/notify"
	"github.com/GlebRadaev/orderdesk/internal/pg"
	"github.com/GlebRadaev/orderdesk/internal/repo"
	dialogservice "github.com/GlebRadaev/orderdesk/internal/service/dialogservice"
	orderservice "github.com/GlebRadaev/orderdesk/internal/service/orderservice"
	paymentservice "github.com/GlebRadaev/orderdesk/internal/service/paymentservice"
	staffservice "github.com/GlebRadaev/orderdesk/internal/service/staffservice"
	pkgauth "github.com/GlebRadaev/orderdesk/pkg/auth"
)

// Services собирает слой бизнес-логики. Сервисы хранятся конкретными
// типами: одни и те же экземпляры обслуживают HTTP-обработчики и поллер.
type Services struct {
	StaffService   *staffservice.Service
	OrderService   *orderservice.Service
	PaymentService *paymentservice.Service
	DialogService  *dialogservice.Service
}

func New(repo *repo.Repositories, notifier *notify.Relay, txManager pg.TXManager, cfg *config.Config) (*Services, error) {
	staffService, err := staffservice.New(cfg.StaffLogin, cfg.StaffPassword, &pkgauth.HashService{}, &pkgauth.JWTService{})
	if err != nil {
		return nil, err
	}

	orderService := orderservice.New(repo.OrderRepo, repo.HistoryRepo, repo.UserRepo, notifier, txManager)
	paymentService := paymentservice.New(repo.PaymentRepo, repo.OrderRepo, repo.UserRepo, orderService, notifier, txManager, paymentservice.Details{
		CardNumber: cfg.PaymentCard,
		BankName:   cfg.PaymentBank,
		SBPPhone:   cfg.PaymentPhone,
	})
	// переход в WAITING_PAYMENT сам выставляет счёт
	orderService.SetPaymentRequester(paymentService)
	dialogService := dialogservice.New(repo.MessageRepo, repo.FileRepo, repo.OrderRepo, repo.UserRepo, notifier, txManager)

	return &Services{
		StaffService:   staffService,
		OrderService:   orderService,
		PaymentService: paymentService,
		DialogService:  dialogService,
	}, nil
}
