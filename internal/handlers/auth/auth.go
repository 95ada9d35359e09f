package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GlebRadaev/orderdesk/internal/dto"
	"github.com/GlebRadaev/orderdesk/internal/service/staffservice"
	"github.com/GlebRadaev/orderdesk/pkg/utils"
)

type Service interface {
	Authenticate(ctx context.Context, login, password string) (string, error)
}

type AuthHandler struct {
	staffService Service
}

func New(staffService Service) *AuthHandler {
	return &AuthHandler{staffService: staffService}
}

// Login godoc
//
//	@Summary		Staff login
//	@Description	Authenticate the staff account and issue a bearer token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		dto.LoginRequestDTO	true	"Staff credentials"
//	@Success		200			{object}	dto.LoginResponseDTO
//	@Failure		400			{object}	utils.Response	"Invalid request payload"
//	@Failure		401			{object}	utils.Response	"Invalid credentials"
//	@Failure		500			{object}	utils.Response	"Internal server error"
//	@Router			/api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Login == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Login and password are required")
		return
	}

	token, err := h.staffService.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, staffservice.ErrInvalidCredentials) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	utils.RespondWithJSON(w, http.StatusOK, dto.LoginResponseDTO{Token: token})
}
