package dto

import (
	"time"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
)

// HistoryEntryResponse представляет запись истории в формате для клиента
type HistoryEntryResponse struct {
	ID                  uint      `json:"id"`
	Title               string    `json:"title"`
	Topic               string    `json:"topic,omitempty"`
	Score               int       `json:"score"`
	Total               int       `json:"total"`
	Percent             int       `json:"percent"`
	QuestionCount       int       `json:"questionCount"`
	Mode                string    `json:"mode"`
	QuestionType        string    `json:"questionType"`
	Difficulty          string    `json:"difficulty,omitempty"`
	AverageResponseTime float64   `json:"averageResponseTime"`
	BestStreak          int       `json:"bestStreak"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NewHistoryEntryResponse создает DTO для записи истории
func NewHistoryEntryResponse(entry *entity.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:                  entry.ID,
		Title:               entry.Title,
		Topic:               entry.Topic,
		Score:               entry.Score,
		Total:               entry.Total,
		Percent:             entry.Percent,
		QuestionCount:       entry.QuestionCount,
		Mode:                entry.Mode,
		QuestionType:        entry.QuestionType,
		Difficulty:          entry.Difficulty,
		AverageResponseTime: entry.AverageResponseTime,
		BestStreak:          entry.BestStreak,
		CreatedAt:           entry.CreatedAt,
	}
}

// NewHistoryListResponse создает список DTO для записей истории
func NewHistoryListResponse(entries []entity.HistoryEntry) []HistoryEntryResponse {
	responses := make([]HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, NewHistoryEntryResponse(&entries[i]))
	}
	return responses
}
