package entity

import (
	"time"
)

// Форматы маркеров периодов (UTC)
const (
	DailyPeriodLayout   = "2006-01-02"
	MonthlyPeriodLayout = "2006-01"
)

// RateLimitRecord хранит счетчики генераций для одной личности
// (хешированный IP или id пользователя). Запись создается при первом
// запросе и далее только мутируется; отдельного процесса очистки нет —
// счетчики лениво сбрасываются, когда сохраненный маркер периода
// перестает совпадать с текущим.
type RateLimitRecord struct {
	Identity         string    `gorm:"primaryKey;size:80" json:"identity"`
	DailyCount       int       `gorm:"not null;default:0" json:"daily_count"`
	LastDailyReset   string    `gorm:"size:10;not null" json:"last_daily_reset"` // YYYY-MM-DD, UTC
	MonthlyCount     int       `gorm:"not null;default:0" json:"monthly_count"`
	LastMonthlyReset string    `gorm:"size:7;not null" json:"last_monthly_reset"` // YYYY-MM, UTC
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (RateLimitRecord) TableName() string {
	return "rate_limit_records"
}

// Rollover сбрасывает счетчики, чьи маркеры периода не совпадают с текущим
// моментом. Чистая функция над записью: применяется перед любым чтением или
// мутацией; граница периода — факт, не зависящий от исхода текущего запроса,
// поэтому результат отката сохраняется даже для отклоненного вызова.
// Возвращает true, если запись изменилась.
func (r *RateLimitRecord) Rollover(now time.Time) bool {
	day := now.UTC().Format(DailyPeriodLayout)
	month := now.UTC().Format(MonthlyPeriodLayout)

	changed := false
	if r.LastDailyReset != day {
		r.DailyCount = 0
		r.LastDailyReset = day
		changed = true
	}
	if r.LastMonthlyReset != month {
		r.MonthlyCount = 0
		r.LastMonthlyReset = month
		changed = true
	}
	return changed
}

// NewRateLimitRecord создает запись для первого запроса личности:
// счетчики сразу равны 1, первый запрос всегда разрешен.
func NewRateLimitRecord(identity string, now time.Time) *RateLimitRecord {
	return &RateLimitRecord{
		Identity:         identity,
		DailyCount:       1,
		LastDailyReset:   now.UTC().Format(DailyPeriodLayout),
		MonthlyCount:     1,
		LastMonthlyReset: now.UTC().Format(MonthlyPeriodLayout),
	}
}
