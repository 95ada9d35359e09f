package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/dto"
	paymentservice "github.com/GlebRadaev/orderdesk/internal/service/paymentservice"
	"github.com/GlebRadaev/orderdesk/pkg/auth"
	"github.com/GlebRadaev/orderdesk/pkg/utils"
)

const defaultPendingLimit = 20

type Service interface {
	Pending(ctx context.Context, limit int) ([]domain.Payment, error)
	ListByOrder(ctx context.Context, orderID int) ([]domain.Payment, error)
	Verify(ctx context.Context, paymentID, staffID int) error
	Reject(ctx context.Context, paymentID int, reason string, staffID int) error
	RequestAndNotify(ctx context.Context, orderID int) (string, error)
}

type PaymentHandler struct {
	paymentService Service
}

func New(paymentService Service) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func toPaymentDTO(p *domain.Payment) dto.PaymentResponseDTO {
	return dto.PaymentResponseDTO{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		ScreenshotFileID: p.ScreenshotFileID,
		ScreenshotNote:   p.ScreenshotNote,
		IsVerified:       p.IsVerified,
		IsRejected:       p.IsRejected,
		RejectionReason:  p.RejectionReason,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

// GetPending godoc
//
//	@Summary		List payments waiting for review
//	@Description	Payments that have a screenshot attached and are neither verified nor rejected.
//	@Tags			Payments
//	@Produce		json
//	@Param			limit	query	int	false	"Page size"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.PaymentResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/pending [get]
func (h *PaymentHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPendingLimit
	}

	payments, err := h.paymentService.Pending(r.Context(), limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.PaymentResponseDTO, 0, len(payments))
	for i := range payments {
		response = append(response, toPaymentDTO(&payments[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetByOrder godoc
//
//	@Summary		List payments of an order
//	@Tags			Payments
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.PaymentResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/payments [get]
func (h *PaymentHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	payments, err := h.paymentService.ListByOrder(r.Context(), orderID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.PaymentResponseDTO, 0, len(payments))
	for i := range payments {
		response = append(response, toPaymentDTO(&payments[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Verify godoc
//
//	@Summary		Confirm a payment
//	@Description	Mark the payment verified and move the order to SENT through the audited state machine. Repeating the call is a no-op.
//	@Tags			Payments
//	@Produce		json
//	@Param			paymentID	path	int	true	"Payment ID"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Payment verified"
//	@Failure		404	{object}	utils.Response	"Payment not found"
//	@Failure		409	{object}	utils.Response	"Payment already resolved"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/{paymentID}/verify [post]
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	staffID := r.Context().Value(auth.StaffIDKey).(int)
	paymentID, err := strconv.Atoi(chi.URLParam(r, "paymentID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	if err := h.paymentService.Verify(r.Context(), paymentID, staffID); err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrPaymentNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, paymentservice.ErrPaymentTerminal):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Payment verified"})
}

// Reject godoc
//
//	@Summary		Reject a payment
//	@Description	Close the payment with a reason. The order keeps its status and the user is asked for a new screenshot.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			paymentID	path	int							true	"Payment ID"
//	@Param			reason		body	dto.RejectPaymentRequestDTO	true	"Rejection reason"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Payment rejected"
//	@Failure		404	{object}	utils.Response	"Payment not found"
//	@Failure		409	{object}	utils.Response	"Payment already resolved"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/{paymentID}/reject [post]
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	staffID := r.Context().Value(auth.StaffIDKey).(int)
	paymentID, err := strconv.Atoi(chi.URLParam(r, "paymentID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	var req dto.RejectPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Reason == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Reason is required")
		return
	}

	if err := h.paymentService.Reject(r.Context(), paymentID, req.Reason, staffID); err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrPaymentNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, paymentservice.ErrPaymentTerminal):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Payment rejected"})
}

// Request godoc
//
//	@Summary		Request payment for an order
//	@Description	Create a payment with the amount frozen from the current price and send the payment details to the user.
//	@Tags			Payments
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.PaymentRequestResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Order price is not set"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/payments/request [post]
func (h *PaymentHandler) Request(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	instructions, err := h.paymentService.RequestAndNotify(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, paymentservice.ErrNoPrice):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.PaymentRequestResponseDTO{Instructions: instructions})
}
