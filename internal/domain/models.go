package domain

import "time"

const (
	// NewStatus заказ создан, цена не согласована.
	NewStatus string = "NEW"
	// InProgressStatus заказ в работе.
	InProgressStatus string = "IN_PROGRESS"
	// RevisionStatus заказ на доработке.
	RevisionStatus string = "REVISION"
	// ReadyStatus работа готова, ожидает согласования цены.
	ReadyStatus string = "READY"
	// WaitingPaymentStatus цена принята, ожидается оплата.
	WaitingPaymentStatus string = "WAITING_PAYMENT"
	// SentStatus оплата подтверждена, работа отправлена.
	SentStatus string = "SENT"
	// CancelledStatus заказ отменён.
	CancelledStatus string = "CANCELLED"
)

// ActiveStatuses — статусы, в которых заказ считается текущим предметом
// диалога с пользователем. Порядок не важен, выборка сортируется по created_at.
var ActiveStatuses = []string{
	NewStatus,
	InProgressStatus,
	ReadyStatus,
	WaitingPaymentStatus,
	RevisionStatus,
}

type User struct {
	ID        int       `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	IsBlocked bool      `db:"is_blocked"`
	CreatedAt time.Time `db:"created_at"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "user"
	}
}

type Order struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	WorkType     string    `db:"work_type"`
	Subject      string    `db:"subject"`
	Topic        string    `db:"topic"`
	Volume       string    `db:"volume"`
	Deadline     string    `db:"deadline"`
	Requirements string    `db:"requirements"`
	Status       string    `db:"status"`
	Price        *float64  `db:"price"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ShortTopic обрезает тему для уведомлений и списков.
func (o *Order) ShortTopic() string {
	const max = 50
	runes := []rune(o.Topic)
	if len(runes) <= max {
		return o.Topic
	}
	return string(runes[:max]) + "..."
}

type StatusHistory struct {
	ID        int       `db:"id"`
	OrderID   int       `db:"order_id"`
	OldStatus *string   `db:"old_status"`
	NewStatus string    `db:"new_status"`
	Note      string    `db:"note"`
	ChangedAt time.Time `db:"changed_at"`
}

// Payment — одна попытка расчёта по заказу. Amount фиксируется в момент
// создания и не пересчитывается при последующем изменении цены заказа.
type Payment struct {
	ID               int        `db:"id"`
	OrderID          int        `db:"order_id"`
	Amount           float64    `db:"amount"`
	ScreenshotFileID *int       `db:"screenshot_file_id"`
	ScreenshotNote   string     `db:"screenshot_note"`
	IsVerified       bool       `db:"is_verified"`
	IsRejected       bool       `db:"is_rejected"`
	RejectionReason  string     `db:"rejection_reason"`
	CreatedAt        time.Time  `db:"created_at"`
	VerifiedAt       *time.Time `db:"verified_at"`
	RejectedAt       *time.Time `db:"rejected_at"`
}

// Terminal сообщает, пришёл ли платёж в конечное состояние.
func (p *Payment) Terminal() bool {
	return p.IsVerified || p.IsRejected
}

type OrderFile struct {
	ID              int        `db:"id"`
	OrderID         int        `db:"order_id"`
	Filename        string     `db:"filename"`
	FilePath        string     `db:"file_path"`
	FileSize        int64      `db:"file_size"`
	FileType        string     `db:"file_type"`
	UploadedByAdmin bool       `db:"uploaded_by_admin"`
	SentToUser      bool       `db:"sent_to_user"`
	SentAt          *time.Time `db:"sent_at"`
	UploadedAt      time.Time  `db:"uploaded_at"`
}

type OrderMessage struct {
	ID         int       `db:"id"`
	OrderID    int       `db:"order_id"`
	Text       string    `db:"message_text"`
	FromAdmin  bool      `db:"from_admin"`
	Delivered  bool      `db:"delivered"`
	ExternalID *int      `db:"external_id"`
	SentAt     time.Time `db:"sent_at"`
}

// StatusName — человекочитаемое имя статуса для чат-сообщений.
func StatusName(status string) string {
	switch status {
	case NewStatus:
		return "🆕 Новый"
	case InProgressStatus:
		return "⏳ В работе"
	case RevisionStatus:
		return "🔄 На доработке"
	case ReadyStatus:
		return "✅ Готов"
	case WaitingPaymentStatus:
		return "💰 Ожидает оплаты"
	case SentStatus:
		return "📤 Отправлен"
	case CancelledStatus:
		return "❌ Отменён"
	default:
		return status
	}
}

// Виды уведомлений, доставляемых через outbox.
const (
	NotifyStatusChanged   string = "status_changed"
	NotifyPriceSet        string = "price_set"
	NotifyPaymentRequest  string = "payment_request"
	NotifyPaymentRejected string = "payment_rejected"
	NotifyFile            string = "file"
	NotifyMessage         string = "message"
	NotifyAdminAlert      string = "admin_alert"
)

// Состояния строки outbox.
const (
	NotificationPending   string = "pending"
	NotificationDelivered string = "delivered"
	NotificationDead      string = "dead"
)

// Notification — строка outbox. Создаётся в одной транзакции с мутацией,
// которая требует уведомления, и доставляется асинхронно.
type Notification struct {
	ID            int        `db:"id"`
	OrderID       int        `db:"order_id"`
	ChatID        int64      `db:"chat_id"`
	Kind          string     `db:"kind"`
	Text          string     `db:"message_text"`
	FileID        *int       `db:"file_id"`
	MessageID     *int       `db:"message_id"`
	ButtonsJSON   string     `db:"buttons"`
	Status        string     `db:"status"`
	Attempts      int        `db:"attempts"`
	NextAttemptAt time.Time  `db:"next_attempt_at"`
	LastError     string     `db:"last_error"`
	CreatedAt     time.Time  `db:"created_at"`
	DeliveredAt   *time.Time `db:"delivered_at"`
}

// Button — inline-кнопка уведомления (принять/отклонить цену).
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}
