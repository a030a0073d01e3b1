package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/studyquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/internal/service"
)

// SessionHandler обрабатывает события прохождения викторины.
// Сессия адресуется по uuid; каждый запрос применяет одно событие.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// sessionCaller возвращает ID аутентифицированного пользователя
// или 0 для анонимного запроса
func sessionCaller(c *gin.Context) uint {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(uint)
	}
	return 0
}

// Get возвращает текущее состояние сессии
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// SelectRequest представляет выбор варианта
type SelectRequest struct {
	Option *int `json:"option" binding:"required"`
}

// Select фиксирует выбор варианта на текущем вопросе
func (h *SessionHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.Select(c.Param("id"), sessionCaller(c), *req.Option)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// SubmitRequest представляет подтверждение ответа.
// Вариант опционален: без него используется текущий выбор.
type SubmitRequest struct {
	Option *int `json:"option"`
}

// Submit подтверждает ответ и открывает правильный вариант
func (h *SessionHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.Submit(c.Param("id"), sessionCaller(c), req.Option)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// Next переходит к следующему вопросу или завершает сессию
func (h *SessionHandler) Next(c *gin.Context) {
	session, err := h.sessionService.Next(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// FiftyFifty применяет подсказку 50/50
func (h *SessionHandler) FiftyFifty(c *gin.Context) {
	session, err := h.sessionService.FiftyFifty(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// Hint открывает подсказку из объяснения
func (h *SessionHandler) Hint(c *gin.Context) {
	session, err := h.sessionService.Hint(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// RetryMissed открывает тренировочную сессию из ошибок завершенной
func (h *SessionHandler) RetryMissed(c *gin.Context) {
	session, err := h.sessionService.RetryMissed(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// Restart сбрасывает завершенную сессию к настройке
func (h *SessionHandler) Restart(c *gin.Context) {
	session, err := h.sessionService.Restart(c.Param("id"), sessionCaller(c))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this session"})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in SessionHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
