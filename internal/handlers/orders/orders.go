package orders

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
	orderservice "github.com/GlebRadaev/orderdesk/internal/service/orderservice"
	"github.com/GlebRadaev/orderdesk/pkg/utils"
	"github.com/GlebRadaev/orderdesk/pkg/validate"
)

const defaultPageSize = 50

type Service interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID int) (*domain.Order, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Order, error)
	Transition(ctx context.Context, orderID int, newStatus, note string) error
	Override(ctx context.Context, orderID int, newStatus, note string) error
	SetPrice(ctx context.Context, orderID int, price float64) error
	History(ctx context.Context, orderID int) ([]domain.StatusHistory, error)
	Delete(ctx context.Context, orderID int) error
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func toOrderDTO(order *domain.Order) dto.OrderResponseDTO {
	return dto.OrderResponseDTO{
		ID:           order.ID,
		UserID:       order.UserID,
		WorkType:     order.WorkType,
		Subject:      order.Subject,
		Topic:        order.Topic,
		Volume:       order.Volume,
		Deadline:     order.Deadline,
		Requirements: order.Requirements,
		Status:       order.Status,
		Price:        order.Price,
		CreatedAt:    order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    order.UpdatedAt.Format(time.RFC3339),
	}
}

func orderID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "orderID"))
}

// AddOrder godoc
//
//	@Summary		Create an order manually
//	@Description	Register an order on behalf of an existing user.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		dto.CreateOrderRequestDTO	true	"Order fields"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid request payload"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [post]
func (h *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.UserID == 0 || req.WorkType == "" || req.Topic == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "user_id, work_type and topic are required")
		return
	}

	order := &domain.Order{
		UserID:       req.UserID,
		WorkType:     req.WorkType,
		Subject:      req.Subject,
		Topic:        req.Topic,
		Volume:       req.Volume,
		Deadline:     req.Deadline,
		Requirements: req.Requirements,
	}
	if err := h.orderService.Create(r.Context(), order); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toOrderDTO(order))
}

// GetOrders godoc
//
//	@Summary		List orders
//	@Description	Retrieve orders, optionally filtered by status.
//	@Tags			Orders
//	@Produce		json
//	@Param			status	query	string	false	"Status filter"
//	@Param			limit	query	int		false	"Page size"
//	@Param			offset	query	int		false	"Page offset"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Unknown status"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !validate.IsStatus(status) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown status")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.orderService.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.OrderResponseDTO, 0, len(orders))
	for i := range orders {
		response = append(response, toOrderDTO(&orders[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetOrder godoc
//
//	@Summary		Get order details
//	@Tags			Orders
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, orderservice.ErrOrderNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toOrderDTO(order))
}

// UpdateStatus godoc
//
//	@Summary		Change order status
//	@Description	Apply a status transition. Set override to bypass the transition table; the change is still recorded in history.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path	int							true	"Order ID"
//	@Param			status	body	dto.UpdateStatusRequestDTO	true	"Target status"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Status updated"
//	@Failure		400	{object}	utils.Response	"Unknown status"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Transition not allowed or concurrent change"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/status [post]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req dto.UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.Override {
		err = h.orderService.Override(r.Context(), id, req.Status, req.Note)
	} else {
		err = h.orderService.Transition(r.Context(), id, req.Status, req.Note)
	}
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrUnknownStatus):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, orderservice.ErrInvalidTransition), errors.Is(err, orderservice.ErrConflict):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Status updated"})
}

// SetPrice godoc
//
//	@Summary		Set order price
//	@Description	Set the price and offer it to the user with accept/decline buttons.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path	int						true	"Order ID"
//	@Param			price	body	dto.SetPriceRequestDTO	true	"New price"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Price set"
//	@Failure		400	{object}	utils.Response	"Price must be positive"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Concurrent change"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/price [post]
func (h *OrderHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req dto.SetPriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.orderService.SetPrice(r.Context(), id, req.Price); err != nil {
		switch {
		case errors.Is(err, orderservice.ErrInvalidPrice):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, orderservice.ErrConflict):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Price set"})
}

// GetHistory godoc
//
//	@Summary		Get order status history
//	@Tags			Orders
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.StatusHistoryResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/history [get]
func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	history, err := h.orderService.History(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.StatusHistoryResponseDTO, 0, len(history))
	for _, h := range history {
		response = append(response, dto.StatusHistoryResponseDTO{
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			Note:      h.Note,
			ChangedAt: h.ChangedAt.Format(time.RFC3339),
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// DeleteOrder godoc
//
//	@Summary		Delete an order
//	@Description	Remove the order with its files, history, messages and payments.
//	@Tags			Orders
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Order deleted"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID} [delete]
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	if err := h.orderService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, orderservice.ErrOrderNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Order deleted"})
}
