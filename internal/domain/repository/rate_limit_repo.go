package repository

import (
	"github.com/yourusername/studyquiz-api/internal/domain/entity"
)

// RateLimitRepository определяет методы для работы со счетчиками квот.
// Обновление счетчика — read-then-write без транзакции: при конкурентных
// запросах одной личности возможен небольшой перерасход квоты
// (last-writer-wins), что приемлемо для защиты от злоупотреблений.
type RateLimitRepository interface {
	Get(identity string) (*entity.RateLimitRecord, error)
	Create(record *entity.RateLimitRecord) error
	Update(record *entity.RateLimitRecord) error
}
