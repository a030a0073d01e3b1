package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// RateLimitRepo реализует repository.RateLimitRepository
type RateLimitRepo struct {
	db *gorm.DB
}

// NewRateLimitRepo создает новый репозиторий квот
func NewRateLimitRepo(db *gorm.DB) *RateLimitRepo {
	return &RateLimitRepo{db: db}
}

// Get возвращает запись по идентичности
func (r *RateLimitRepo) Get(identity string) (*entity.RateLimitRecord, error) {
	var record entity.RateLimitRecord
	err := r.db.Where("identity = ?", identity).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Create добавляет новую запись квоты
func (r *RateLimitRepo) Create(record *entity.RateLimitRecord) error {
	err := r.db.Create(record).Error
	if err != nil && isUniqueViolation(err) {
		// Параллельный первый запрос той же идентичности
		return apperrors.ErrConflict
	}
	return err
}

// Update сохраняет счетчики и маркеры периодов
func (r *RateLimitRepo) Update(record *entity.RateLimitRecord) error {
	return r.db.Save(record).Error
}
