package dto

type PostMessageRequestDTO struct {
	Text string `json:"text" example:"Работа почти готова"`
}

type MessageResponseDTO struct {
	ID        int    `json:"id" example:"1"`
	OrderID   int    `json:"order_id" example:"1"`
	Text      string `json:"text" example:"Когда будет готово?"`
	FromAdmin bool   `json:"from_admin" example:"false"`
	Delivered bool   `json:"delivered" example:"true"`
	SentAt    string `json:"sent_at" example:"2026-09-01T16:09:57+03:00"`
}

type FileResponseDTO struct {
	ID              int    `json:"id" example:"1"`
	OrderID         int    `json:"order_id" example:"1"`
	Filename        string `json:"filename" example:"work.pdf"`
	FileSize        int64  `json:"file_size" example:"1024"`
	FileType        string `json:"file_type" example:"pdf"`
	UploadedByAdmin bool   `json:"uploaded_by_admin" example:"true"`
	SentToUser      bool   `json:"sent_to_user" example:"false"`
	UploadedAt      string `json:"uploaded_at" example:"2026-09-01T16:09:57+03:00"`
}
