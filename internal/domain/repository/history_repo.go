package repository

import (
	"github.com/yourusername/studyquiz-api/internal/domain/entity"
)

// HistoryRepository определяет методы для работы с историей завершенных сессий.
// История — append-only: записи создаются один раз и либо читаются,
// либо удаляются владельцем.
type HistoryRepository interface {
	Create(entry *entity.HistoryEntry) error
	GetByID(id uint) (*entity.HistoryEntry, error)
	// GetByUser возвращает записи пользователя от новых к старым
	GetByUser(userID uint, limit int) ([]entity.HistoryEntry, error)
	// GetAllByUser возвращает все записи пользователя (для экспорта)
	GetAllByUser(userID uint) ([]entity.HistoryEntry, error)
	Delete(id uint) error
	// DeleteAllByUser удаляет все записи владельца, возвращает количество удаленных
	DeleteAllByUser(userID uint) (int64, error)
}
