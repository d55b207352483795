// Package auth содержит логику регистрации и авторизации пользователей.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/retainvoice/voice-service/internal/lib/jwt"
	"github.com/retainvoice/voice-service/internal/lib/password"
	"github.com/retainvoice/voice-service/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// ReadUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	ReadUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию и авторизацию.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной ролью "user".
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		UID:          uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user",
		CreatedAt:    time.Now(),
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
// Неизвестное имя и неверный пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, error) {
	user, err := s.users.ReadUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
}
