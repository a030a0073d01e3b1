package service

import (
	"fmt"
	"time"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// HistoryService предоставляет доступ к истории завершенных викторин
type HistoryService struct {
	historyRepo repository.HistoryRepository
}

// NewHistoryService создает новый сервис истории
func NewHistoryService(historyRepo repository.HistoryRepository) *HistoryService {
	return &HistoryService{historyRepo: historyRepo}
}

// RecordCompletion записывает итог завершенной сессии одной строкой.
// Временная метка назначается сервером.
func (s *HistoryService) RecordCompletion(session *entity.QuizSession) error {
	if session.PracticeMode {
		return fmt.Errorf("practice sessions are never recorded: %w", apperrors.ErrValidation)
	}
	if session.UserID == 0 {
		return fmt.Errorf("anonymous sessions are not recorded: %w", apperrors.ErrValidation)
	}

	entry := &entity.HistoryEntry{
		UserID:              session.UserID,
		Title:               session.Quiz.Title,
		Topic:               session.Topic,
		Score:               session.Score,
		Total:               len(session.Quiz.Questions),
		Percent:             session.Percent(),
		QuestionCount:       session.Settings.Count,
		Mode:                session.Settings.Mode,
		QuestionType:        session.Settings.QuestionType,
		Difficulty:          session.Settings.Difficulty,
		AverageResponseTime: session.AverageResponseTime(),
		BestStreak:          session.BestStreak,
		CreatedAt:           time.Now(),
	}
	return s.historyRepo.Create(entry)
}

// List возвращает записи пользователя от новых к старым.
// limit <= 0 означает без ограничения.
func (s *HistoryService) List(userID uint, limit int) ([]entity.HistoryEntry, error) {
	return s.historyRepo.GetByUser(userID, limit)
}

// ListAll возвращает все записи пользователя для экспорта
func (s *HistoryService) ListAll(userID uint) ([]entity.HistoryEntry, error) {
	return s.historyRepo.GetAllByUser(userID)
}

// Delete удаляет запись после проверки владельца
func (s *HistoryService) Delete(userID, entryID uint) error {
	entry, err := s.historyRepo.GetByID(entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return apperrors.ErrForbidden
	}
	return s.historyRepo.Delete(entryID)
}

// DeleteAll удаляет всю историю пользователя, возвращает число удаленных
func (s *HistoryService) DeleteAll(userID uint) (int64, error) {
	return s.historyRepo.DeleteAllByUser(userID)
}
