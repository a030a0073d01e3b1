package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/pkg/auth"
)

// AuthService предоставляет регистрацию и вход пользователей
type AuthService struct {
	userRepo     repository.UserRepository
	jwtService   *auth.JWTService
	emailService EmailService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, emailService EmailService) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtService:   jwtService,
		emailService: emailService,
	}
}

// Register создает нового пользователя и отправляет приветственное письмо.
// Ошибка отправки письма не отменяет регистрацию.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || len(password) < 8 {
		return nil, fmt.Errorf("username, email and a password of at least 8 characters are required: %w", apperrors.ErrValidation)
	}

	user := &entity.User{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("username or email already taken: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.emailService.SendWelcome(ctx, user.Email, user.Username); err != nil {
		log.Printf("[AuthService] Не удалось отправить приветственное письмо %s: %v", user.Email, err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь ID=%d", user.ID)
	return user, nil
}

// Login проверяет учетные данные и выдает токен
func (s *AuthService) Login(email, password string) (string, *entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.ErrUnauthorized
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.CheckPassword(password) {
		return "", nil, apperrors.ErrUnauthorized
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, user, nil
}

// GetUserByID возвращает пользователя по ID
func (s *AuthService) GetUserByID(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}
