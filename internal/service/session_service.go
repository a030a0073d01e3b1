package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// SessionService управляет жизненным циклом сессий викторин.
// Сессия — единственный писатель своего состояния: каждый запрос
// загружает ее из Redis, применяет одно событие и сохраняет обратно.
type SessionService struct {
	sessionRepo       repository.SessionRepository
	historyService    *HistoryService
	generationService *GenerationService
	rng               *rand.Rand
}

// NewSessionService создает новый сервис сессий
func NewSessionService(sessionRepo repository.SessionRepository, historyService *HistoryService, generationService *GenerationService) *SessionService {
	return &SessionService{
		sessionRepo:       sessionRepo,
		historyService:    historyService,
		generationService: generationService,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession генерирует викторину и открывает на ней сессию.
// Пустой sessionID открывает новую сессию; непустой заполняет
// существующую сессию в состоянии configuring (путь после Restart).
// Ошибка генерации не оставляет после себя сессии и не меняет
// существующую. Вместе с сессией возвращается квота после списания.
func (s *SessionService) StartSession(ctx context.Context, userID uint, sessionID string, input GenerateInput) (*entity.QuizSession, *RateLimitStatus, error) {
	var session *entity.QuizSession
	if sessionID != "" {
		existing, err := s.load(sessionID, userID)
		if err != nil {
			return nil, nil, err
		}
		if existing.Status != entity.SessionStatusConfiguring {
			return nil, nil, fmt.Errorf("session %s is not awaiting configuration: %w", sessionID, apperrors.ErrConflict)
		}
		session = existing
	} else {
		session = entity.NewQuizSession(uuid.New().String(), userID)
	}

	quiz, quota, err := s.generationService.Generate(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	settings := entity.QuizSettings{
		Count:        ClampCount(input.Count),
		Mode:         input.Mode,
		QuestionType: input.QuestionType,
		Difficulty:   input.Difficulty,
	}
	if err := session.Start(quiz, settings, input.Content, time.Now()); err != nil {
		return nil, nil, err
	}

	if err := s.sessionRepo.Save(session); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}
	log.Printf("[SessionService] Открыта сессия %s: %d вопросов", session.ID, len(quiz.Questions))
	return session, quota, nil
}

// load возвращает сессию, проверяя право вызывающего на нее.
// Сессии с владельцем доступны только владельцу; анонимные — всем,
// кто знает их идентификатор.
func (s *SessionService) load(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.sessionRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if session.UserID != 0 && session.UserID != callerID {
		return nil, fmt.Errorf("session %s belongs to another user: %w", id, apperrors.ErrForbidden)
	}
	return session, nil
}

// GetSession возвращает сессию по ID
func (s *SessionService) GetSession(id string, callerID uint) (*entity.QuizSession, error) {
	return s.load(id, callerID)
}

// Select фиксирует выбор варианта на текущем вопросе
func (s *SessionService) Select(id string, callerID uint, option int) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	if err := session.Select(option); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Submit подтверждает ответ и открывает правильный вариант.
// Без выбора или при уже открытом ответе событие игнорируется.
func (s *SessionService) Submit(id string, callerID uint, option *int) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	session.Submit(option, time.Now())
	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Next переходит к следующему вопросу или завершает сессию.
// При завершении выполняется единственная запись в историю.
func (s *SessionService) Next(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	if err := session.Next(time.Now()); err != nil {
		return nil, err
	}

	if session.Status == entity.SessionStatusCompleted {
		s.saveToHistory(session)
	}

	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// saveToHistory выполняет запись завершенной сессии в историю.
// Гарантия save-once: флаг Saved на самой сессии. Тренировочные
// сессии и анонимные владельцы не сохраняются. Ошибка записи мягкая:
// сессия получает статус error, результаты не откатываются.
func (s *SessionService) saveToHistory(session *entity.QuizSession) {
	if session.Saved || session.PracticeMode || session.UserID == 0 {
		return
	}
	session.Saved = true
	session.SaveStatus = entity.SaveStatusSaving

	if err := s.historyService.RecordCompletion(session); err != nil {
		log.Printf("[SessionService] Ошибка записи сессии %s в историю: %v", session.ID, err)
		session.SaveStatus = entity.SaveStatusError
		return
	}
	session.SaveStatus = entity.SaveStatusSaved
}

// FiftyFifty применяет подсказку 50/50 на текущем вопросе
func (s *SessionService) FiftyFifty(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := session.UseFiftyFifty(s.rng); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Hint открывает подсказку из объяснения текущего вопроса
func (s *SessionService) Hint(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := session.UseHint(); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// RetryMissed собирает из ошибок завершенной сессии новую
// тренировочную сессию. Оригинальная сессия не изменяется.
func (s *SessionService) RetryMissed(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	practice, err := session.RetryMissed(uuid.New().String(), time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(practice); err != nil {
		return nil, fmt.Errorf("failed to save practice session: %w", err)
	}
	log.Printf("[SessionService] Тренировочная сессия %s из %s: %d вопросов",
		practice.ID, session.ID, len(practice.Quiz.Questions))
	return practice, nil
}

// Restart возвращает завершенную сессию к настройке с нуля.
// Повторная генерация в ту же сессию выполняется через StartSession
// с ее идентификатором.
func (s *SessionService) Restart(id string, callerID uint) (*entity.QuizSession, error) {
	session, err := s.load(id, callerID)
	if err != nil {
		return nil, err
	}
	if err := session.Restart(); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}
