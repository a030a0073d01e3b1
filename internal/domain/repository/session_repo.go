package repository

import (
	"github.com/yourusername/studyquiz-api/internal/domain/entity"
)

// SessionRepository определяет методы для хранения активных сессий викторин.
// Сессии короткоживущие: хранятся как JSON с TTL, одна сессия — один
// логический писатель (события применяются по одному).
type SessionRepository interface {
	Save(session *entity.QuizSession) error
	Get(id string) (*entity.QuizSession, error)
	Delete(id string) error
}
