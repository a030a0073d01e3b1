package entity

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// Статусы сессии викторины
const (
	SessionStatusConfiguring = "configuring"
	SessionStatusInProgress  = "in_progress"
	SessionStatusCompleted   = "completed"
)

// Под-состояния текущего вопроса внутри in_progress
const (
	SubStateAnswering = "answering"
	SubStateRevealed  = "revealed"
)

// Статусы записи завершенной сессии в историю
const (
	SaveStatusSaving = "saving"
	SaveStatusSaved  = "saved"
	SaveStatusError  = "error"
)

// Суффикс названия для сессии "работа над ошибками"
const practiceTitleSuffix = " (работа над ошибками)"

// Максимальная длина показываемой подсказки в символах
const maxHintRunes = 180

// AnswerRecord фиксирует один отвеченный вопрос.
// Создается при сабмите и далее не изменяется.
type AnswerRecord struct {
	Selected  *int `json:"selected"`   // выбранный индекс (nil, если вопрос не был отвечен)
	Correct   int  `json:"correct"`    // answerIndex вопроса
	TimeSpent int  `json:"time_spent"` // секунды, всегда >= 1
}

// QuizSession владеет проходом по списку вопросов: текущий ответ, счет,
// серия правильных ответов, время на вопрос, лайфлайны и переход в
// завершенное состояние. Одна сессия — один логический писатель:
// события применяются строго по одному, без конкурентных мутаций.
type QuizSession struct {
	ID           string       `json:"id"`
	UserID       uint         `json:"user_id"` // 0 — анонимная сессия
	Status       string       `json:"status"`
	SubState     string       `json:"sub_state,omitempty"`
	PracticeMode bool         `json:"practice_mode"`
	Quiz         *Quiz        `json:"quiz,omitempty"`
	Settings     QuizSettings `json:"settings"`
	Topic        string       `json:"topic,omitempty"` // исходная тема или краткое содержание материала

	CurrentIndex int    `json:"current_index"`
	Selected     *int   `json:"selected,omitempty"`
	Eliminated   []int  `json:"eliminated,omitempty"`
	Hint         string `json:"hint,omitempty"`

	UsedFiftyFifty bool `json:"used_fifty_fifty"`
	UsedHint       bool `json:"used_hint"`

	Score         int            `json:"score"`
	CurrentStreak int            `json:"current_streak"`
	BestStreak    int            `json:"best_streak"`
	Answers       []AnswerRecord `json:"answers"`
	ResponseTimes []int          `json:"response_times"`

	QuestionStartedAt time.Time `json:"question_started_at"`

	Saved      bool   `json:"saved"` // гарантия одной записи в историю на экземпляр сессии
	SaveStatus string `json:"save_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewQuizSession создает сессию в состоянии configuring
func NewQuizSession(id string, userID uint) *QuizSession {
	return &QuizSession{
		ID:        id,
		UserID:    userID,
		Status:    SessionStatusConfiguring,
		CreatedAt: time.Now().UTC(),
	}
}

// Start переводит сессию из configuring в in_progress на первом вопросе.
// Все счетчики сессии (пере)инициализируются.
func (s *QuizSession) Start(quiz *Quiz, settings QuizSettings, topic string, now time.Time) error {
	if s.Status == SessionStatusInProgress {
		return fmt.Errorf("session already in progress: %w", apperrors.ErrConflict)
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz has no questions: %w", apperrors.ErrValidation)
	}

	s.Quiz = quiz
	s.Settings = settings
	s.Topic = topic
	s.Status = SessionStatusInProgress
	s.SubState = SubStateAnswering
	s.CurrentIndex = 0
	s.Score = 0
	s.CurrentStreak = 0
	s.BestStreak = 0
	s.Answers = nil
	s.ResponseTimes = nil
	s.UsedFiftyFifty = false
	s.UsedHint = false
	s.Saved = false
	s.SaveStatus = ""
	s.resetQuestionState(now)
	return nil
}

// CurrentQuestion возвращает текущий вопрос или nil вне in_progress
func (s *QuizSession) CurrentQuestion() *QuizQuestion {
	if s.Status != SessionStatusInProgress || s.Quiz == nil || s.CurrentIndex >= len(s.Quiz.Questions) {
		return nil
	}
	return &s.Quiz.Questions[s.CurrentIndex]
}

// Select меняет текущий выбор. Выбор можно менять до сабмита;
// выбор исключенного лайфлайном варианта отклоняется.
func (s *QuizSession) Select(option int) error {
	if s.Status != SessionStatusInProgress || s.SubState != SubStateAnswering {
		return fmt.Errorf("selection is only allowed while answering: %w", apperrors.ErrConflict)
	}
	question := s.CurrentQuestion()
	if question == nil || !question.IsValidOption(option) {
		return fmt.Errorf("option %d is out of range: %w", option, apperrors.ErrValidation)
	}
	for _, e := range s.Eliminated {
		if e == option {
			return fmt.Errorf("option %d was eliminated: %w", option, apperrors.ErrValidation)
		}
	}
	s.Selected = &option
	return nil
}

// Submit фиксирует ответ на текущий вопрос и раскрывает правильный вариант.
// Без выбранного варианта (явного или текущего), а также повторно после
// раскрытия — no-op; возвращает true, если ответ был записан.
func (s *QuizSession) Submit(option *int, now time.Time) bool {
	if s.Status != SessionStatusInProgress || s.SubState != SubStateAnswering {
		return false
	}
	if option != nil {
		// Явно переданный индекс проходит ту же проверку, что и Select
		if err := s.Select(*option); err != nil {
			return false
		}
	}
	if s.Selected == nil {
		return false
	}

	question := s.CurrentQuestion()
	if question == nil {
		return false
	}

	elapsed := int(math.Round(now.Sub(s.QuestionStartedAt).Seconds()))
	if elapsed < 1 {
		elapsed = 1
	}

	selected := *s.Selected
	s.Answers = append(s.Answers, AnswerRecord{
		Selected:  s.Selected,
		Correct:   question.AnswerIndex,
		TimeSpent: elapsed,
	})
	s.ResponseTimes = append(s.ResponseTimes, elapsed)

	if question.IsCorrect(selected) {
		s.Score++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.CurrentStreak = 0
	}

	s.SubState = SubStateRevealed
	return true
}

// Next переходит к следующему вопросу либо завершает сессию,
// если вопросов больше не осталось
func (s *QuizSession) Next(now time.Time) error {
	if s.Status != SessionStatusInProgress || s.SubState != SubStateRevealed {
		return fmt.Errorf("next is only allowed after the answer is revealed: %w", apperrors.ErrConflict)
	}

	if s.CurrentIndex+1 < len(s.Quiz.Questions) {
		s.CurrentIndex++
		s.SubState = SubStateAnswering
		s.resetQuestionState(now)
		return nil
	}

	s.Status = SessionStatusCompleted
	s.SubState = ""
	return nil
}

// UseFiftyFifty исключает два неправильных варианта текущего вопроса,
// выбранных равновероятно. Доступен один раз за сессию, только во время
// ответа и только для вопросов с >= 4 вариантами. Если текущий выбор
// попал под исключение — выбор сбрасывается.
func (s *QuizSession) UseFiftyFifty(rng *rand.Rand) ([]int, error) {
	if s.Status != SessionStatusInProgress || s.SubState != SubStateAnswering {
		return nil, fmt.Errorf("fifty-fifty is only available while answering: %w", apperrors.ErrConflict)
	}
	if s.UsedFiftyFifty {
		return nil, fmt.Errorf("fifty-fifty already used in this session: %w", apperrors.ErrConflict)
	}
	question := s.CurrentQuestion()
	if question == nil || len(question.Options) < 4 {
		return nil, fmt.Errorf("fifty-fifty requires at least 4 options: %w", apperrors.ErrValidation)
	}

	incorrect := make([]int, 0, len(question.Options)-1)
	for i := range question.Options {
		if i != question.AnswerIndex {
			incorrect = append(incorrect, i)
		}
	}
	rng.Shuffle(len(incorrect), func(i, j int) {
		incorrect[i], incorrect[j] = incorrect[j], incorrect[i]
	})

	s.Eliminated = append([]int(nil), incorrect[:2]...)
	s.UsedFiftyFifty = true

	if s.Selected != nil {
		for _, e := range s.Eliminated {
			if *s.Selected == e {
				s.Selected = nil
				break
			}
		}
	}
	return s.Eliminated, nil
}

// UseHint раскрывает усеченный префикс объяснения текущего вопроса.
// Доступен один раз за сессию, только во время ответа.
func (s *QuizSession) UseHint() (string, error) {
	if s.Status != SessionStatusInProgress || s.SubState != SubStateAnswering {
		return "", fmt.Errorf("hint is only available while answering: %w", apperrors.ErrConflict)
	}
	if s.UsedHint {
		return "", fmt.Errorf("hint already used in this session: %w", apperrors.ErrConflict)
	}
	question := s.CurrentQuestion()
	if question == nil {
		return "", fmt.Errorf("no current question: %w", apperrors.ErrConflict)
	}

	s.Hint = truncateHint(question.Explanation)
	s.UsedHint = true
	return s.Hint, nil
}

// MissedQuestions возвращает вопросы, на которые дан неправильный ответ
// (или ответ отсутствует)
func (s *QuizSession) MissedQuestions() []QuizQuestion {
	if s.Quiz == nil {
		return nil
	}
	var missed []QuizQuestion
	for i, q := range s.Quiz.Questions {
		if i >= len(s.Answers) {
			missed = append(missed, q)
			continue
		}
		answer := s.Answers[i]
		if answer.Selected == nil || *answer.Selected != answer.Correct {
			missed = append(missed, q)
		}
	}
	return missed
}

// RetryMissed создает НОВУЮ сессию только из пропущенных вопросов.
// Новая сессия помечена practice_mode и никогда не сохраняется в историю.
func (s *QuizSession) RetryMissed(newID string, now time.Time) (*QuizSession, error) {
	if s.Status != SessionStatusCompleted {
		return nil, fmt.Errorf("retry-missed is only allowed from a completed session: %w", apperrors.ErrConflict)
	}
	missed := s.MissedQuestions()
	if len(missed) == 0 {
		return nil, fmt.Errorf("no missed questions to retry: %w", apperrors.ErrConflict)
	}

	retryQuiz := &Quiz{
		Title:     s.Quiz.Title + practiceTitleSuffix,
		Questions: missed,
	}

	retry := NewQuizSession(newID, s.UserID)
	retry.PracticeMode = true
	if err := retry.Start(retryQuiz, s.Settings, s.Topic, now); err != nil {
		return nil, err
	}
	return retry, nil
}

// Restart сбрасывает завершенную сессию обратно в configuring:
// входные данные генерации и все состояние прохода очищаются
func (s *QuizSession) Restart() error {
	if s.Status != SessionStatusCompleted {
		return fmt.Errorf("restart is only allowed from a completed session: %w", apperrors.ErrConflict)
	}

	s.Status = SessionStatusConfiguring
	s.SubState = ""
	s.PracticeMode = false
	s.Quiz = nil
	s.Settings = QuizSettings{}
	s.Topic = ""
	s.CurrentIndex = 0
	s.Score = 0
	s.CurrentStreak = 0
	s.BestStreak = 0
	s.Answers = nil
	s.ResponseTimes = nil
	s.UsedFiftyFifty = false
	s.UsedHint = false
	s.Saved = false
	s.SaveStatus = ""
	s.resetQuestionState(time.Time{})
	return nil
}

// Percent возвращает итоговый процент (округление до ближайшего целого,
// половина — вверх)
func (s *QuizSession) Percent() int {
	total := 0
	if s.Quiz != nil {
		total = len(s.Quiz.Questions)
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Score) / float64(total) * 100))
}

// AverageResponseTime возвращает среднее время ответа в секундах,
// округленное до одного знака. Для пустой последовательности — 0.
func (s *QuizSession) AverageResponseTime() float64 {
	if len(s.ResponseTimes) == 0 {
		return 0
	}
	sum := 0
	for _, t := range s.ResponseTimes {
		sum += t
	}
	return math.Round(float64(sum)/float64(len(s.ResponseTimes))*10) / 10
}

// resetQuestionState очищает пер-вопросное состояние и перезапускает таймер
func (s *QuizSession) resetQuestionState(now time.Time) {
	s.Selected = nil
	s.Eliminated = nil
	s.Hint = ""
	s.QuestionStartedAt = now
}

// truncateHint усекает объяснение до maxHintRunes символов, предпочитая
// границу предложения. Считаем в рунах для корректной работы с кириллицей.
func truncateHint(explanation string) string {
	runes := []rune(explanation)
	if len(runes) <= maxHintRunes {
		return explanation
	}

	prefix := runes[:maxHintRunes]
	for i := len(prefix) - 1; i > 0; i-- {
		switch prefix[i] {
		case '.', '!', '?':
			return string(prefix[:i+1])
		}
	}
	return string(prefix)
}
