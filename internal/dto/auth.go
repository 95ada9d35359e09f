package dto

type LoginRequestDTO struct {
	Login    string `json:"login" example:"admin"`
	Password string `json:"password" example:"secret"`
}

type LoginResponseDTO struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
}
