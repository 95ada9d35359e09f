package dto

type CreateOrderRequestDTO struct {
	UserID       int    `json:"user_id" example:"1"`
	WorkType     string `json:"work_type" example:"Курсовая работа"`
	Subject      string `json:"subject" example:"Информатика"`
	Topic        string `json:"topic" example:"Алгоритмы на графах"`
	Volume       string `json:"volume" example:"30 страниц"`
	Deadline     string `json:"deadline" example:"2026-09-15"`
	Requirements string `json:"requirements" example:"ГОСТ 7.32"`
}

type OrderResponseDTO struct {
	ID           int      `json:"id" example:"1"`
	UserID       int      `json:"user_id" example:"1"`
	WorkType     string   `json:"work_type" example:"Курсовая работа"`
	Subject      string   `json:"subject" example:"Информатика"`
	Topic        string   `json:"topic" example:"Алгоритмы на графах"`
	Volume       string   `json:"volume,omitempty" example:"30 страниц"`
	Deadline     string   `json:"deadline,omitempty" example:"2026-09-15"`
	Requirements string   `json:"requirements,omitempty" example:"ГОСТ 7.32"`
	Status       string   `json:"status" example:"IN_PROGRESS"`
	Price        *float64 `json:"price,omitempty" example:"1500"`
	CreatedAt    string   `json:"created_at" example:"2026-09-01T16:09:57+03:00"`
	UpdatedAt    string   `json:"updated_at" example:"2026-09-01T16:09:57+03:00"`
}

type UpdateStatusRequestDTO struct {
	Status   string `json:"status" example:"READY"`
	Note     string `json:"note,omitempty" example:"Работа готова"`
	Override bool   `json:"override,omitempty" example:"false"`
}

type SetPriceRequestDTO struct {
	Price float64 `json:"price" example:"1500"`
}

type StatusHistoryResponseDTO struct {
	OldStatus *string `json:"old_status" example:"NEW"`
	NewStatus string  `json:"new_status" example:"IN_PROGRESS"`
	Note      string  `json:"note,omitempty" example:"Взят в работу"`
	ChangedAt string  `json:"changed_at" example:"2026-09-01T16:09:57+03:00"`
}
