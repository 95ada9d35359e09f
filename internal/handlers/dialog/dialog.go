package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/dto"
	dialogservice "github.com/GlebRadaev/orderdesk/internal/service/dialogservice"
	"github.com/GlebRadaev/orderdesk/pkg/utils"
)

// maxUploadSize ограничивает multipart-загрузку файла работы.
const maxUploadSize = 50 << 20

type Service interface {
	ListMessages(ctx context.Context, orderID, limit, offset int) ([]domain.OrderMessage, error)
	InboundCount(ctx context.Context, orderID int) (int, error)
	AppendAdminMessage(ctx context.Context, orderID int, text string) (*domain.OrderMessage, error)
	ListFiles(ctx context.Context, orderID int) ([]domain.OrderFile, error)
	AttachFile(ctx context.Context, file *domain.OrderFile) error
	GetFile(ctx context.Context, fileID int) (*domain.OrderFile, error)
	SendFile(ctx context.Context, fileID int) error
	MarkSent(ctx context.Context, fileID int) error
	DeleteFile(ctx context.Context, fileID int) error
}

type DialogHandler struct {
	dialogService Service
	filesDir      string
}

func New(dialogService Service, filesDir string) *DialogHandler {
	return &DialogHandler{
		dialogService: dialogService,
		filesDir:      filesDir,
	}
}

func toMessageDTO(m *domain.OrderMessage) dto.MessageResponseDTO {
	return dto.MessageResponseDTO{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Text:      m.Text,
		FromAdmin: m.FromAdmin,
		Delivered: m.Delivered,
		SentAt:    m.SentAt.Format(time.RFC3339),
	}
}

func toFileDTO(f *domain.OrderFile) dto.FileResponseDTO {
	return dto.FileResponseDTO{
		ID:              f.ID,
		OrderID:         f.OrderID,
		Filename:        f.Filename,
		FileSize:        f.FileSize,
		FileType:        f.FileType,
		UploadedByAdmin: f.UploadedByAdmin,
		SentToUser:      f.SentToUser,
		UploadedAt:      f.UploadedAt.Format(time.RFC3339),
	}
}

// GetMessages godoc
//
//	@Summary		Get order dialog
//	@Description	Messages of the order from oldest to newest.
//	@Tags			Dialog
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Param			limit	query	int	false	"Page size"
//	@Param			offset	query	int	false	"Page offset"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.MessageResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/messages [get]
func (h *DialogHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.dialogService.ListMessages(r.Context(), orderID, limit, offset)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// счётчик входящих для шапки диалога, не зависит от пагинации
	inbound, err := h.dialogService.InboundCount(r.Context(), orderID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("X-Inbound-Count", strconv.Itoa(inbound))

	response := make([]dto.MessageResponseDTO, 0, len(messages))
	for i := range messages {
		response = append(response, toMessageDTO(&messages[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// PostMessage godoc
//
//	@Summary		Send a message to the user
//	@Description	Store the staff message and queue its chat delivery.
//	@Tags			Dialog
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path	int						true	"Order ID"
//	@Param			message	body	dto.PostMessageRequestDTO	true	"Message text"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.MessageResponseDTO
//	@Failure		400	{object}	utils.Response	"Empty message"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/messages [post]
func (h *DialogHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req dto.PostMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	msg, err := h.dialogService.AppendAdminMessage(r.Context(), orderID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, dialogservice.ErrEmptyMessage):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, dialogservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toMessageDTO(msg))
}

// GetFiles godoc
//
//	@Summary		List order files
//	@Tags			Dialog
//	@Produce		json
//	@Param			orderID	path	int	true	"Order ID"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.FileResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/files [get]
func (h *DialogHandler) GetFiles(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	files, err := h.dialogService.ListFiles(r.Context(), orderID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.FileResponseDTO, 0, len(files))
	for i := range files {
		response = append(response, toFileDTO(&files[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// UploadFile godoc
//
//	@Summary		Upload a file to an order
//	@Description	Store the file on disk under a unique name and register it on the order.
//	@Tags			Dialog
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			orderID	path		int		true	"Order ID"
//	@Param			file	formData	file	true	"File contents"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.FileResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid upload"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{orderID}/files [post]
func (h *DialogHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	src, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer src.Close()

	if err := os.MkdirAll(h.filesDir, 0o755); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// имя на диске уникально, оригинальное остаётся в каталоге заказа
	path := filepath.Join(h.filesDir, fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(header.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(path)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	file := &domain.OrderFile{
		OrderID:         orderID,
		Filename:        header.Filename,
		FilePath:        path,
		FileSize:        size,
		UploadedByAdmin: true,
	}
	if err := h.dialogService.AttachFile(r.Context(), file); err != nil {
		os.Remove(path)
		if errors.Is(err, dialogservice.ErrOrderNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toFileDTO(file))
}

// DownloadFile godoc
//
//	@Summary		Download a file
//	@Tags			Dialog
//	@Produce		octet-stream
//	@Param			fileID	path	int	true	"File ID"
//	@Security		BearerAuth
//	@Success		200	{file}		file
//	@Failure		404	{object}	utils.Response	"File not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/files/{fileID}/download [get]
func (h *DialogHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.Atoi(chi.URLParam(r, "fileID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	file, err := h.dialogService.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, dialogservice.ErrFileNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "File not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := os.Stat(file.FilePath); err != nil {
		// файл пришёл из чата и живёт только как внешний file_id
		utils.RespondWithError(w, http.StatusNotFound, "File is not stored locally")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	http.ServeFile(w, r, file.FilePath)
}

// SendFile godoc
//
//	@Summary		Send a file to the user
//	@Description	Queue the chat delivery of the file. A file is delivered at most once.
//	@Tags			Dialog
//	@Produce		json
//	@Param			fileID	path	int	true	"File ID"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"Delivery queued"
//	@Failure		404	{object}	utils.Response	"File not found"
//	@Failure		409	{object}	utils.Response	"File already sent"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/files/{fileID}/send [post]
func (h *DialogHandler) SendFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.Atoi(chi.URLParam(r, "fileID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	if err := h.dialogService.SendFile(r.Context(), fileID); err != nil {
		switch {
		case errors.Is(err, dialogservice.ErrFileNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "File not found")
		case errors.Is(err, dialogservice.ErrAlreadySent):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Delivery queued"})
}

// MarkFileSent godoc
//
//	@Summary		Mark a file as sent
//	@Description	Manual override for files delivered outside the chat. Repeating the call returns a conflict.
//	@Tags			Dialog
//	@Produce		json
//	@Param			fileID	path	int	true	"File ID"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"File marked as sent"
//	@Failure		404	{object}	utils.Response	"File not found"
//	@Failure		409	{object}	utils.Response	"File already sent"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/files/{fileID}/mark-sent [post]
func (h *DialogHandler) MarkFileSent(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.Atoi(chi.URLParam(r, "fileID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	if err := h.dialogService.MarkSent(r.Context(), fileID); err != nil {
		switch {
		case errors.Is(err, dialogservice.ErrFileNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "File not found")
		case errors.Is(err, dialogservice.ErrAlreadySent):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "File marked as sent"})
}

// DeleteFile godoc
//
//	@Summary		Delete a file
//	@Tags			Dialog
//	@Produce		json
//	@Param			fileID	path	int	true	"File ID"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response	"File deleted"
//	@Failure		404	{object}	utils.Response	"File not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/files/{fileID} [delete]
func (h *DialogHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.Atoi(chi.URLParam(r, "fileID"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	file, err := h.dialogService.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, dialogservice.ErrFileNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "File not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.dialogService.DeleteFile(r.Context(), fileID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, statErr := os.Stat(file.FilePath); statErr == nil {
		os.Remove(file.FilePath)
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "File deleted"})
}
