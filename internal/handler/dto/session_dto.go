package dto

import (
	"time"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/service"
)

// SessionQuestionView представляет текущий вопрос глазами игрока.
// Правильный ответ и объяснение скрыты до подтверждения.
type SessionQuestionView struct {
	Index       int      `json:"index"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Eliminated  []int    `json:"eliminated,omitempty"`
	Selected    *int     `json:"selected,omitempty"`
	Hint        string   `json:"hint,omitempty"`
	AnswerIndex *int     `json:"answerIndex,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// AnswerView представляет зафиксированный ответ
type AnswerView struct {
	Selected  *int `json:"selected"`
	Correct   int  `json:"correct"`
	TimeSpent int  `json:"timeSpent"`
}

// SessionSummaryView представляет итог завершенной сессии
type SessionSummaryView struct {
	Score               int          `json:"score"`
	Total               int          `json:"total"`
	Percent             int          `json:"percent"`
	BestStreak          int          `json:"bestStreak"`
	AverageResponseTime float64      `json:"averageResponseTime"`
	Answers             []AnswerView `json:"answers"`
	SaveStatus          string       `json:"saveStatus,omitempty"`
}

// SessionResponse представляет сессию в формате для ответа клиенту
type SessionResponse struct {
	ID              string               `json:"id"`
	Status          string               `json:"status"`
	SubState        string               `json:"subState,omitempty"`
	PracticeMode    bool                 `json:"practiceMode"`
	Title           string               `json:"title,omitempty"`
	Topic           string               `json:"topic,omitempty"`
	Settings        *entity.QuizSettings `json:"settings,omitempty"`
	CurrentIndex    int                  `json:"currentIndex"`
	TotalQuestions  int                  `json:"totalQuestions"`
	Score           int                  `json:"score"`
	CurrentStreak   int                  `json:"currentStreak"`
	UsedFiftyFifty  bool                 `json:"usedFiftyFifty"`
	UsedHint        bool                 `json:"usedHint"`
	CurrentQuestion *SessionQuestionView `json:"currentQuestion,omitempty"`
	Summary         *SessionSummaryView  `json:"summary,omitempty"`
	// RateLimit заполняется только в ответе на генерацию
	RateLimit *service.RateLimitStatus `json:"rateLimit,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
}

// NewSessionResponse создает DTO для сессии.
// Ответ на текущий вопрос открывается только в под-состоянии revealed;
// итоговая сводка — только по завершении.
func NewSessionResponse(session *entity.QuizSession) SessionResponse {
	resp := SessionResponse{
		ID:             session.ID,
		Status:         session.Status,
		SubState:       session.SubState,
		PracticeMode:   session.PracticeMode,
		Topic:          session.Topic,
		CurrentIndex:   session.CurrentIndex,
		Score:          session.Score,
		CurrentStreak:  session.CurrentStreak,
		UsedFiftyFifty: session.UsedFiftyFifty,
		UsedHint:       session.UsedHint,
		CreatedAt:      session.CreatedAt,
	}
	if session.Quiz != nil {
		resp.Title = session.Quiz.Title
		resp.TotalQuestions = len(session.Quiz.Questions)
		settings := session.Settings
		resp.Settings = &settings
	}

	if question := session.CurrentQuestion(); question != nil && session.Status == entity.SessionStatusInProgress {
		view := &SessionQuestionView{
			Index:      session.CurrentIndex,
			Question:   question.Question,
			Options:    question.Options,
			Eliminated: session.Eliminated,
			Selected:   session.Selected,
			Hint:       session.Hint,
		}
		if session.SubState == entity.SubStateRevealed {
			answer := question.AnswerIndex
			view.AnswerIndex = &answer
			view.Explanation = question.Explanation
		}
		resp.CurrentQuestion = view
	}

	if session.Status == entity.SessionStatusCompleted {
		answers := make([]AnswerView, 0, len(session.Answers))
		for _, a := range session.Answers {
			answers = append(answers, AnswerView{
				Selected:  a.Selected,
				Correct:   a.Correct,
				TimeSpent: a.TimeSpent,
			})
		}
		resp.Summary = &SessionSummaryView{
			Score:               session.Score,
			Total:               resp.TotalQuestions,
			Percent:             session.Percent(),
			BestStreak:          session.BestStreak,
			AverageResponseTime: session.AverageResponseTime(),
			Answers:             answers,
			SaveStatus:          session.SaveStatus,
		}
	}

	return resp
}
