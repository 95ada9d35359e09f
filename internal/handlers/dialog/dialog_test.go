package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/orderdesk/internal/domain"
	"github.com/GlebRadaev/orderdesk/internal/dto"
	dialogservice "github.com/GlebRadaev/orderdesk/internal/service/dialogservice"
)

func NewMock(t *testing.T) (*DialogHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service, t.TempDir())
	defer ctrl.Finish()
	return handler, service
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetMessagesHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().
		ListMessages(gomock.Any(), 10, 0, 0).
		Return([]domain.OrderMessage{
			{ID: 1, OrderID: 10, Text: "Когда будет готово?", Delivered: true, SentAt: time.Now()},
			{ID: 2, OrderID: 10, Text: "Завтра вечером", FromAdmin: true, SentAt: time.Now()},
		}, nil)
	service.EXPECT().
		InboundCount(gomock.Any(), 10).
		Return(1, nil)

	r := withParam(httptest.NewRequest(http.MethodGet, "/api/orders/10/messages", nil), "orderID", "10")
	w := httptest.NewRecorder()

	handler.GetMessages(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Inbound-Count"))
	var body []dto.MessageResponseDTO
	_ = json.NewDecoder(w.Body).Decode(&body)
	assert.Len(t, body, 2)
	assert.False(t, body[0].FromAdmin)
	assert.True(t, body[1].FromAdmin)
}

func TestPostMessageHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful message",
			body: `{"text":"Работа почти готова"}`,
			prepareMock: func() {
				service.EXPECT().
					AppendAdminMessage(gomock.Any(), 10, "Работа почти готова").
					Return(&domain.OrderMessage{ID: 42, OrderID: 10, Text: "Работа почти готова", FromAdmin: true, SentAt: time.Now()}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Empty message",
			body: `{"text":""}`,
			prepareMock: func() {
				service.EXPECT().
					AppendAdminMessage(gomock.Any(), 10, "").
					Return(nil, dialogservice.ErrEmptyMessage)
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Order not found",
			body: `{"text":"привет"}`,
			prepareMock: func() {
				service.EXPECT().
					AppendAdminMessage(gomock.Any(), 10, "привет").
					Return(nil, dialogservice.ErrOrderNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "Order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := withParam(httptest.NewRequest(http.MethodPost, "/api/orders/10/messages", bytes.NewBufferString(tt.body)), "orderID", "10")
			w := httptest.NewRecorder()

			handler.PostMessage(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
			if tt.expectedCode == http.StatusCreated {
				var body dto.MessageResponseDTO
				_ = json.NewDecoder(w.Body).Decode(&body)
				assert.Equal(t, 42, body.ID)
			}
		})
	}
}

func TestUploadFileHandler(t *testing.T) {
	handler, service := NewMock(t)

	buildUpload := func(field, filename, content string) (*bytes.Buffer, string) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		fw, _ := mw.CreateFormFile(field, filename)
		fw.Write([]byte(content))
		mw.Close()
		return buf, mw.FormDataContentType()
	}

	t.Run("Successful upload", func(t *testing.T) {
		service.EXPECT().
			AttachFile(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, file *domain.OrderFile) error {
				assert.Equal(t, 10, file.OrderID)
				assert.Equal(t, "work.pdf", file.Filename)
				assert.True(t, file.UploadedByAdmin)
				assert.True(t, strings.HasSuffix(file.FilePath, ".pdf"))
				assert.Equal(t, int64(len("pdf content")), file.FileSize)
				file.ID = 7
				return nil
			})

		body, contentType := buildUpload("file", "work.pdf", "pdf content")
		r := withParam(httptest.NewRequest(http.MethodPost, "/api/orders/10/files", body), "orderID", "10")
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.UploadFile(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp dto.FileResponseDTO
		_ = json.NewDecoder(w.Body).Decode(&resp)
		assert.Equal(t, 7, resp.ID)
	})

	t.Run("Missing file part", func(t *testing.T) {
		body, contentType := buildUpload("attachment", "work.pdf", "pdf content")
		r := withParam(httptest.NewRequest(http.MethodPost, "/api/orders/10/files", body), "orderID", "10")
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.UploadFile(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "File is required")
	})

	t.Run("Order not found removes the stored file", func(t *testing.T) {
		var storedPath string
		service.EXPECT().
			AttachFile(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, file *domain.OrderFile) error {
				storedPath = file.FilePath
				return dialogservice.ErrOrderNotFound
			})

		body, contentType := buildUpload("file", "work.pdf", "pdf content")
		r := withParam(httptest.NewRequest(http.MethodPost, "/api/orders/10/files", body), "orderID", "10")
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.UploadFile(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		_, err := os.Stat(storedPath)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDownloadFileHandler(t *testing.T) {
	handler, service := NewMock(t)

	t.Run("Successful download", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "work.pdf")
		os.WriteFile(path, []byte("pdf content"), 0o644)

		service.EXPECT().
			GetFile(gomock.Any(), 7).
			Return(&domain.OrderFile{ID: 7, OrderID: 10, Filename: "work.pdf", FilePath: path}, nil)

		r := withParam(httptest.NewRequest(http.MethodGet, "/api/files/7/download", nil), "fileID", "7")
		w := httptest.NewRecorder()

		handler.DownloadFile(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "work.pdf")
		assert.Equal(t, "pdf content", w.Body.String())
	})

	t.Run("File not found", func(t *testing.T) {
		service.EXPECT().
			GetFile(gomock.Any(), 99).
			Return(nil, dialogservice.ErrFileNotFound)

		r := withParam(httptest.NewRequest(http.MethodGet, "/api/files/99/download", nil), "fileID", "99")
		w := httptest.NewRecorder()

		handler.DownloadFile(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Chat-only file is not stored locally", func(t *testing.T) {
		service.EXPECT().
			GetFile(gomock.Any(), 8).
			Return(&domain.OrderFile{ID: 8, OrderID: 10, Filename: "чек.jpg", FilePath: "tg-file-abc"}, nil)

		r := withParam(httptest.NewRequest(http.MethodGet, "/api/files/8/download", nil), "fileID", "8")
		w := httptest.NewRecorder()

		handler.DownloadFile(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not stored locally")
	})
}

func TestSendFileHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Delivery queued",
			prepareMock: func() {
				service.EXPECT().SendFile(gomock.Any(), 7).Return(nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Already sent",
			prepareMock: func() {
				service.EXPECT().SendFile(gomock.Any(), 7).Return(dialogservice.ErrAlreadySent)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "File not found",
			prepareMock: func() {
				service.EXPECT().SendFile(gomock.Any(), 7).Return(dialogservice.ErrFileNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "Internal server error",
			prepareMock: func() {
				service.EXPECT().SendFile(gomock.Any(), 7).Return(errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := withParam(httptest.NewRequest(http.MethodPost, "/api/files/7/send", nil), "fileID", "7")
			w := httptest.NewRecorder()

			handler.SendFile(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestMarkFileSentHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Marked as sent",
			prepareMock: func() {
				service.EXPECT().MarkSent(gomock.Any(), 7).Return(nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Second call conflicts",
			prepareMock: func() {
				service.EXPECT().MarkSent(gomock.Any(), 7).Return(dialogservice.ErrAlreadySent)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "File not found",
			prepareMock: func() {
				service.EXPECT().MarkSent(gomock.Any(), 7).Return(dialogservice.ErrFileNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := withParam(httptest.NewRequest(http.MethodPost, "/api/files/7/mark-sent", nil), "fileID", "7")
			w := httptest.NewRecorder()

			handler.MarkFileSent(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestDeleteFileHandler(t *testing.T) {
	handler, service := NewMock(t)

	t.Run("Successful deletion removes the stored file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "work.pdf")
		os.WriteFile(path, []byte("pdf content"), 0o644)

		service.EXPECT().
			GetFile(gomock.Any(), 7).
			Return(&domain.OrderFile{ID: 7, OrderID: 10, Filename: "work.pdf", FilePath: path}, nil)
		service.EXPECT().DeleteFile(gomock.Any(), 7).Return(nil)

		r := withParam(httptest.NewRequest(http.MethodDelete, "/api/files/7", nil), "fileID", "7")
		w := httptest.NewRecorder()

		handler.DeleteFile(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("File not found", func(t *testing.T) {
		service.EXPECT().
			GetFile(gomock.Any(), 99).
			Return(nil, dialogservice.ErrFileNotFound)

		r := withParam(httptest.NewRequest(http.MethodDelete, "/api/files/99", nil), "fileID", "99")
		w := httptest.NewRecorder()

		handler.DeleteFile(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
