package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// RateLimitStatus описывает текущее потребление квоты без ее изменения.
// Remaining-поля считаются как limit - count, не опускаясь ниже нуля.
type RateLimitStatus struct {
	Daily            int  `json:"daily"`
	DailyLimit       int  `json:"dailyLimit"`
	DailyRemaining   int  `json:"dailyRemaining"`
	Monthly          int  `json:"monthly,omitempty"`
	MonthlyLimit     int  `json:"monthlyLimit,omitempty"`
	MonthlyRemaining *int `json:"monthlyRemaining,omitempty"` // nil, когда месячный лимит отключен
}

// RateLimitService учитывает квоты генерации по идентичности.
// Дневной лимит действует всегда, месячный отключается нулем.
type RateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	dailyLimit    int
	monthlyLimit  int
}

// NewRateLimitService создает новый сервис квот
func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, dailyLimit, monthlyLimit int) *RateLimitService {
	return &RateLimitService{
		rateLimitRepo: rateLimitRepo,
		dailyLimit:    dailyLimit,
		monthlyLimit:  monthlyLimit,
	}
}

// CheckAndConsume проверяет квоту идентичности и списывает один запрос.
// Первый запрос идентичности создает запись со счетчиком 1.
// При отказе перенос периода сохраняется, но счетчик не увеличивается.
func (s *RateLimitService) CheckAndConsume(identity string, now time.Time) (*RateLimitStatus, error) {
	record, err := s.rateLimitRepo.Get(identity)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			record = entity.NewRateLimitRecord(identity, now)
			if createErr := s.rateLimitRepo.Create(record); createErr != nil {
				if errors.Is(createErr, apperrors.ErrConflict) {
					// Параллельный первый запрос успел раньше, перечитываем
					return s.consumeExisting(identity, now)
				}
				return nil, fmt.Errorf("failed to create rate limit record: %w", createErr)
			}
			return s.status(record), nil
		}
		return nil, fmt.Errorf("failed to read rate limit record: %w", err)
	}

	return s.consume(record, now)
}

func (s *RateLimitService) consumeExisting(identity string, now time.Time) (*RateLimitStatus, error) {
	record, err := s.rateLimitRepo.Get(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read rate limit record: %w", err)
	}
	return s.consume(record, now)
}

func (s *RateLimitService) consume(record *entity.RateLimitRecord, now time.Time) (*RateLimitStatus, error) {
	rolled := record.Rollover(now)

	if record.DailyCount >= s.dailyLimit {
		if rolled {
			if err := s.rateLimitRepo.Update(record); err != nil {
				log.Printf("[RateLimitService] Не удалось сохранить перенос периода для %s: %v", record.Identity, err)
			}
		}
		nextReset := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		return s.status(record), fmt.Errorf("daily limit of %d quizzes reached, resets at %s UTC: %w",
			s.dailyLimit, nextReset.Format("2006-01-02 15:04"), apperrors.ErrQuotaExceeded)
	}

	if s.monthlyLimit > 0 && record.MonthlyCount >= s.monthlyLimit {
		if rolled {
			if err := s.rateLimitRepo.Update(record); err != nil {
				log.Printf("[RateLimitService] Не удалось сохранить перенос периода для %s: %v", record.Identity, err)
			}
		}
		year, month, _ := now.UTC().Date()
		nextReset := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return s.status(record), fmt.Errorf("monthly limit of %d quizzes reached, resets at %s UTC: %w",
			s.monthlyLimit, nextReset.Format("2006-01-02"), apperrors.ErrQuotaExceeded)
	}

	record.DailyCount++
	record.MonthlyCount++
	if err := s.rateLimitRepo.Update(record); err != nil {
		return nil, fmt.Errorf("failed to update rate limit record: %w", err)
	}
	return s.status(record), nil
}

// Status возвращает текущее потребление с ленивым переносом периодов,
// ничего не сохраняя. Отсутствие записи означает нулевое потребление.
func (s *RateLimitService) Status(identity string, now time.Time) (*RateLimitStatus, error) {
	record, err := s.rateLimitRepo.Get(identity)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.status(&entity.RateLimitRecord{Identity: identity}), nil
		}
		return nil, fmt.Errorf("failed to read rate limit record: %w", err)
	}
	record.Rollover(now)
	return s.status(record), nil
}

func (s *RateLimitService) status(record *entity.RateLimitRecord) *RateLimitStatus {
	status := &RateLimitStatus{
		Daily:          record.DailyCount,
		DailyLimit:     s.dailyLimit,
		DailyRemaining: remaining(s.dailyLimit, record.DailyCount),
	}
	if s.monthlyLimit > 0 {
		monthlyRemaining := remaining(s.monthlyLimit, record.MonthlyCount)
		status.Monthly = record.MonthlyCount
		status.MonthlyLimit = s.monthlyLimit
		status.MonthlyRemaining = &monthlyRemaining
	}
	return status
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
