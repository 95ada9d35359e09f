package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GlebRadaev/orderdesk/internal/domain"
)

// longPollTimeout задаёт таймаут ожидания getUpdates; HTTP-клиент должен
// жить дольше него.
const longPollTimeout = 25

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID int         `json:"message_id"`
	From      *Sender     `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Caption   string      `json:"caption"`
	Document  *Document   `json:"document"`
	Photo     []PhotoSize `json:"photo"`
}

type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    Sender   `json:"from"`
	Data    string   `json:"data"`
	Message *Message `json:"message"`
}

// BotClient — клиент Bot API. Relay создаёт одноразовый экземпляр на
// отправку, поллер держит свой собственный: поверхности не делят сессию.
type BotClient struct {
	base   string
	token  string
	client HTTPClientI
}

func NewBotClient(base, token string) *BotClient {
	return &BotClient{
		base:  base,
		token: token,
		client: &HTTPClientAdapter{
			client: &http.Client{Timeout: (longPollTimeout + 10) * time.Second},
		},
	}
}

func (b *BotClient) url(method string) string {
	return b.base + "/bot" + b.token + "/" + method
}

func (b *BotClient) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("can't marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse(method, resp.Body)
}

func decodeAPIResponse(method string, r io.Reader) (json.RawMessage, error) {
	var apiResp apiResponse
	if err := json.NewDecoder(r).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("can't decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("%s rejected: %s", method, apiResp.Description)
	}
	return apiResp.Result, nil
}

// GetUpdates блокируется до longPollTimeout в ожидании новых событий.
func (b *BotClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := map[string]any{
		"offset":  offset,
		"timeout": longPollTimeout,
	}
	result, err := b.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("can't decode updates: %w", err)
	}
	return updates, nil
}

// SendMessage отправляет текст в чат и возвращает message_id.
func (b *BotClient) SendMessage(ctx context.Context, chatID int64, text string, buttons []domain.Button) (int, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if len(buttons) > 0 {
		rows := make([][]map[string]string, 0, len(buttons))
		for _, btn := range buttons {
			rows = append(rows, []map[string]string{{"text": btn.Text, "callback_data": btn.Data}})
		}
		payload["reply_markup"] = map[string]any{"inline_keyboard": rows}
	}

	result, err := b.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}

	var sent Message
	if err := json.Unmarshal(result, &sent); err != nil {
		return 0, fmt.Errorf("can't decode sent message: %w", err)
	}
	return sent.MessageID, nil
}

// SendDocument доставляет файл в чат. Файлы со стороны админа лежат на
// диске и загружаются multipart'ом; файлы, пришедшие из чата, хранятся
// как внешние file_id и пересылаются ссылкой.
func (b *BotClient) SendDocument(ctx context.Context, chatID int64, file *domain.OrderFile, caption string) error {
	if _, err := os.Stat(file.FilePath); err != nil {
		_, callErr := b.call(ctx, "sendDocument", map[string]any{
			"chat_id":    chatID,
			"document":   file.FilePath,
			"caption":    caption,
			"parse_mode": "HTML",
		})
		return callErr
	}
	return b.uploadDocument(ctx, chatID, file, caption)
}

func (b *BotClient) uploadDocument(ctx context.Context, chatID int64, file *domain.OrderFile, caption string) error {
	f, err := os.Open(file.FilePath)
	if err != nil {
		return fmt.Errorf("can't open file %s: %w", file.FilePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
		if err := mw.WriteField("parse_mode", "HTML"); err != nil {
			return err
		}
	}
	name := file.Filename
	if name == "" {
		name = filepath.Base(file.FilePath)
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("can't read file %s: %w", file.FilePath, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url("sendDocument"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendDocument request failed: %w", err)
	}
	defer resp.Body.Close()

	_, err = decodeAPIResponse("sendDocument", resp.Body)
	return err
}

// AnswerCallback подтверждает нажатие inline-кнопки.
func (b *BotClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := b.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	})
	return err
}
