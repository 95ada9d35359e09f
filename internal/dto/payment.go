package dto

type PaymentResponseDTO struct {
	ID               int     `json:"id" example:"1"`
	OrderID          int     `json:"order_id" example:"1"`
	Amount           float64 `json:"amount" example:"1500"`
	ScreenshotFileID *int    `json:"screenshot_file_id,omitempty" example:"7"`
	ScreenshotNote   string  `json:"screenshot_note,omitempty" example:"чек"`
	IsVerified       bool    `json:"is_verified" example:"false"`
	IsRejected       bool    `json:"is_rejected" example:"false"`
	RejectionReason  string  `json:"rejection_reason,omitempty" example:"размытый скриншот"`
	CreatedAt        string  `json:"created_at" example:"2026-09-01T16:09:57+03:00"`
}

type RejectPaymentRequestDTO struct {
	Reason string `json:"reason" example:"размытый скриншот"`
}

type PaymentRequestResponseDTO struct {
	Instructions string `json:"instructions" example:"💰 Заказ #1 готов к оплате!"`
}
