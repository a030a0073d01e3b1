package dto

import (
	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/service"
)

// InteractiveGenerateRequest — запрос генерации из интерактивной формы.
// Количество вопросов вне диапазона отклоняется на уровне binding.
// SessionID заполняет существующую сессию в состоянии configuring
// (после restart) вместо открытия новой.
type InteractiveGenerateRequest struct {
	Mode         string `json:"mode" binding:"required,oneof=topic studyGuide"`
	Content      string `json:"content" binding:"required"`
	QuestionType string `json:"questionType" binding:"required,oneof=multiple-choice true-false"`
	Difficulty   string `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced mixed"`
	Count        int    `json:"count" binding:"required,min=3,max=50"`
	SessionID    string `json:"sessionId" binding:"omitempty,uuid"`
}

// ProgrammaticGenerateRequest — запрос генерации программного API.
// Количество вопросов приводится к диапазону сервисом, не отклоняется.
type ProgrammaticGenerateRequest struct {
	Mode         string `json:"mode" binding:"required"`
	Content      string `json:"content" binding:"required"`
	QuestionType string `json:"questionType" binding:"required"`
	Difficulty   string `json:"difficulty"`
	Count        int    `json:"count"`
}

// QuestionResponse представляет вопрос с открытым ответом
type QuestionResponse struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation"`
}

// QuizResponse представляет сгенерированную викторину целиком.
// Используется программным API; интерактивный путь отдает сессию,
// скрывающую ответы до подтверждения.
type QuizResponse struct {
	Title     string                   `json:"title"`
	Questions []QuestionResponse       `json:"questions"`
	RateLimit *service.RateLimitStatus `json:"rateLimit,omitempty"`
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz) QuizResponse {
	questions := make([]QuestionResponse, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, QuestionResponse{
			Question:    q.Question,
			Options:     q.Options,
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
		})
	}
	return QuizResponse{Title: quiz.Title, Questions: questions}
}
