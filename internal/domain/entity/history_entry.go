package entity

import (
	"time"
)

// HistoryEntry представляет одну завершенную (не практическую) сессию
// в истории пользователя. Создается один раз на завершенную сессию;
// удаляется владельцем по одной или все разом.
type HistoryEntry struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Topic   string `gorm:"size:500;not null;default:''" json:"topic"`
	Score   int    `gorm:"not null;default:0" json:"score"`
	Total   int    `gorm:"not null;default:0" json:"total"`
	Percent int    `gorm:"not null;default:0" json:"percent"`

	// Снимок настроек генерации
	QuestionCount int    `gorm:"not null;default:0" json:"question_count"`
	Mode          string `gorm:"size:20;not null" json:"mode"`
	QuestionType  string `gorm:"size:20;not null" json:"question_type"`
	Difficulty    string `gorm:"size:20;not null" json:"difficulty"`

	// Снимок аналитики сессии
	AverageResponseTime float64 `gorm:"not null;default:0" json:"average_response_time"`
	BestStreak          int     `gorm:"not null;default:0" json:"best_streak"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (HistoryEntry) TableName() string {
	return "history_entries"
}
