package staffservice

import (
	"context"
	"errors"
	"time"

	"github.com/GlebRadaev/orderdesk/pkg/auth"
	"go.uber.org/zap"
)

// Единственная staff-учётка задаётся конфигурацией; отдельной таблицы
// персонала нет, как и в исходной админке.
const staffID = 1

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	login        string
	passwordHash string
	hashService  auth.HashServiceInterface
	jwtService   auth.JWTServiceInterface
}

func New(login, password string, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface) (*Service, error) {
	passwordHash, err := hashService.HashPassword(password)
	if err != nil {
		zap.L().Error("can't hash staff password: ", zap.Error(err))
		return nil, err
	}
	return &Service{
		login:        login,
		passwordHash: passwordHash,
		hashService:  hashService,
		jwtService:   jwtService,
	}, nil
}

func (s *Service) Authenticate(_ context.Context, login, password string) (string, error) {
	if login != s.login || !s.hashService.ComparePassword(s.passwordHash, password) {
		zap.L().Warn("staff login failed", zap.String("login", login))
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateJWT(staffID, time.Now().Add(24*time.Hour))
	if err != nil {
		zap.L().Error("can't generate token: ", zap.Error(err))
		return "", err
	}
	return token, nil
}
