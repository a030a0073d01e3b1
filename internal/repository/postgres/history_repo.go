package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// HistoryRepo реализует repository.HistoryRepository
type HistoryRepo struct {
	db *gorm.DB
}

// NewHistoryRepo создает новый репозиторий истории
func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Create добавляет запись в историю
func (r *HistoryRepo) Create(entry *entity.HistoryEntry) error {
	return r.db.Create(entry).Error
}

// GetByID возвращает запись истории по ID
func (r *HistoryRepo) GetByID(id uint) (*entity.HistoryEntry, error) {
	var entry entity.HistoryEntry
	err := r.db.First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetByUser возвращает записи пользователя от новых к старым
func (r *HistoryRepo) GetByUser(userID uint, limit int) ([]entity.HistoryEntry, error) {
	var entries []entity.HistoryEntry
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	// Пустой слайс — валидный результат
	return entries, err
}

// GetAllByUser возвращает все записи пользователя (для экспорта)
func (r *HistoryRepo) GetAllByUser(userID uint) ([]entity.HistoryEntry, error) {
	return r.GetByUser(userID, 0)
}

// Delete удаляет запись истории
func (r *HistoryRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.HistoryEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteAllByUser удаляет все записи владельца, возвращает количество удаленных
func (r *HistoryRepo) DeleteAllByUser(userID uint) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&entity.HistoryEntry{})
	return result.RowsAffected, result.Error
}
