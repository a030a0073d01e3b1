package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/studyquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/internal/service"
)

// QuizHandler обрабатывает запросы генерации викторин и статуса квот
type QuizHandler struct {
	generationService *service.GenerationService
	sessionService    *service.SessionService
	rateLimitService  *service.RateLimitService
}

// NewQuizHandler создает новый обработчик генерации
func NewQuizHandler(
	generationService *service.GenerationService,
	sessionService *service.SessionService,
	rateLimitService *service.RateLimitService,
) *QuizHandler {
	return &QuizHandler{
		generationService: generationService,
		sessionService:    sessionService,
		rateLimitService:  rateLimitService,
	}
}

// identity возвращает идентичность квоты текущего запроса:
// ID пользователя, если он аутентифицирован, иначе хеш IP
func identity(c *gin.Context) (string, uint, error) {
	if userID, exists := c.Get("user_id"); exists {
		id := userID.(uint)
		return service.UserIdentity(id), id, nil
	}
	ident, err := service.IPIdentity(c.Request)
	return ident, 0, err
}

// GenerateInteractive обрабатывает генерацию из интерактивной формы
// и открывает сессию прохождения. Количество вопросов вне 3..50
// отклоняется валидацией запроса.
func (h *QuizHandler) GenerateInteractive(c *gin.Context) {
	var req dto.InteractiveGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, userID, err := identity(c)
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	session, quota, err := h.sessionService.StartSession(c.Request.Context(), userID, req.SessionID, service.GenerateInput{
		Mode:         req.Mode,
		Content:      req.Content,
		QuestionType: req.QuestionType,
		Difficulty:   req.Difficulty,
		Count:        req.Count,
		Identity:     ident,
	})
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	resp := dto.NewSessionResponse(session)
	resp.RateLimit = quota
	c.JSON(http.StatusOK, resp)
}

// GenerateProgrammatic обрабатывает генерацию программного API.
// Количество вопросов приводится к диапазону, викторина возвращается
// целиком вместе с ответами.
func (h *QuizHandler) GenerateProgrammatic(c *gin.Context) {
	var req dto.ProgrammaticGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, _, err := identity(c)
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	quiz, quota, err := h.generationService.Generate(c.Request.Context(), service.GenerateInput{
		Mode:         req.Mode,
		Content:      req.Content,
		QuestionType: req.QuestionType,
		Difficulty:   req.Difficulty,
		Count:        req.Count,
		Identity:     ident,
	})
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	resp := dto.NewQuizResponse(quiz)
	resp.RateLimit = quota
	c.JSON(http.StatusOK, resp)
}

// RateLimitStatus возвращает текущее потребление квоты без списания
func (h *QuizHandler) RateLimitStatus(c *gin.Context) {
	ident, _, err := identity(c)
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	status, err := h.rateLimitService.Status(ident, time.Now())
	if err != nil {
		h.handleGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *QuizHandler) handleGenerateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "rateLimitExceeded": true})
	case errors.Is(err, apperrors.ErrIPUnresolvable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this session"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUpstream),
		errors.Is(err, apperrors.ErrUpstreamParse),
		errors.Is(err, apperrors.ErrInvalidUpstreamFormat):
		log.Printf("ERROR: Upstream generation failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Quiz generation failed, please try again"})
	default:
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
