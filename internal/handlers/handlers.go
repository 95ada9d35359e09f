package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GlebRadaev/orderdesk/internal/config"
	authhandlers "github.com/GlebRadaev/orderdesk/internal/handlers/auth"
	dialoghandlers "github.com/GlebRadaev/orderdesk/internal/handlers/dialog"
	ordershandlers "github.com/GlebRadaev/orderdesk/internal/handlers/orders"
	paymenthandlers "github.com/GlebRadaev/orderdesk/internal/handlers/payments"
	"github.com/GlebRadaev/orderdesk/internal/service"
	"github.com/GlebRadaev/orderdesk/pkg/auth"
)

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	AddOrder(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	SetPrice(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	DeleteOrder(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	GetPending(w http.ResponseWriter, r *http.Request)
	GetByOrder(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Request(w http.ResponseWriter, r *http.Request)
}

type DialogHandler interface {
	GetMessages(w http.ResponseWriter, r *http.Request)
	PostMessage(w http.ResponseWriter, r *http.Request)
	GetFiles(w http.ResponseWriter, r *http.Request)
	UploadFile(w http.ResponseWriter, r *http.Request)
	DownloadFile(w http.ResponseWriter, r *http.Request)
	SendFile(w http.ResponseWriter, r *http.Request)
	MarkFileSent(w http.ResponseWriter, r *http.Request)
	DeleteFile(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler    AuthHandler
	OrderHandler   OrderHandler
	PaymentHandler PaymentHandler
	DialogHandler  DialogHandler
}

func New(s *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.StaffService),
		OrderHandler:   ordershandlers.New(s.OrderService),
		PaymentHandler: paymenthandlers.New(s.PaymentService),
		DialogHandler:  dialoghandlers.New(s.DialogService, cfg.FilesDir),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.OrderHandler.AddOrder)
				r.Get("/", h.OrderHandler.GetOrders)

				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/", h.OrderHandler.GetOrder)
					r.Delete("/", h.OrderHandler.DeleteOrder)
					r.Post("/status", h.OrderHandler.UpdateStatus)
					r.Post("/price", h.OrderHandler.SetPrice)
					r.Get("/history", h.OrderHandler.GetHistory)

					r.Get("/messages", h.DialogHandler.GetMessages)
					r.Post("/messages", h.DialogHandler.PostMessage)
					r.Get("/files", h.DialogHandler.GetFiles)
					r.Post("/files", h.DialogHandler.UploadFile)

					r.Get("/payments", h.PaymentHandler.GetByOrder)
					r.Post("/payments/request", h.PaymentHandler.Request)
				})
			})
			r.Route("/payments", func(r chi.Router) {
				r.Get("/pending", h.PaymentHandler.GetPending)
				r.Post("/{paymentID}/verify", h.PaymentHandler.Verify)
				r.Post("/{paymentID}/reject", h.PaymentHandler.Reject)
			})
			r.Route("/files/{fileID}", func(r chi.Router) {
				r.Get("/download", h.DialogHandler.DownloadFile)
				r.Post("/send", h.DialogHandler.SendFile)
				r.Post("/mark-sent", h.DialogHandler.MarkFileSent)
				r.Delete("/", h.DialogHandler.DeleteFile)
			})
		})
	})

	return r
}
