package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Режимы входных данных для генерации
const (
	ModeTopic      = "topic"
	ModeStudyGuide = "studyGuide"
)

// Типы вопросов
const (
	QuestionTypeMultipleChoice = "multiple-choice"
	QuestionTypeTrueFalse      = "true-false"
)

// Уровни сложности
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyMixed        = "mixed"
)

// Литеральные метки вариантов для вопросов true/false
var TrueFalseOptions = []string{"True", "False"}

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// QuizQuestion представляет один сгенерированный вопрос викторины.
// Инвариант: 0 <= AnswerIndex < len(Options).
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation"`
}

// IsValidOption проверяет, является ли выбранный вариант допустимым индексом
func (q *QuizQuestion) IsValidOption(selected int) bool {
	return selected >= 0 && selected < len(q.Options)
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *QuizQuestion) IsCorrect(selected int) bool {
	return selected == q.AnswerIndex
}

// Validate проверяет структурные инварианты вопроса с учетом типа.
// Для true/false требуются ровно метки "True"/"False".
func (q *QuizQuestion) Validate(questionType string) error {
	if q.Question == "" {
		return errors.New("question text is empty")
	}
	switch questionType {
	case QuestionTypeTrueFalse:
		if len(q.Options) != 2 || q.Options[0] != TrueFalseOptions[0] || q.Options[1] != TrueFalseOptions[1] {
			return fmt.Errorf("true-false question must have options [\"True\", \"False\"], got %v", q.Options)
		}
	case QuestionTypeMultipleChoice:
		if len(q.Options) != 4 {
			return fmt.Errorf("multiple-choice question must have 4 options, got %d", len(q.Options))
		}
	default:
		return fmt.Errorf("unknown question type %q", questionType)
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return fmt.Errorf("answerIndex %d is out of range for %d options", q.AnswerIndex, len(q.Options))
	}
	return nil
}

// Quiz представляет сгенерированную викторину.
// После генерации не изменяется; производное подмножество для режима
// "работа над ошибками" создается отдельной сессией.
type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// QuestionCount возвращает количество вопросов
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

// QuizSettings содержит параметры генерации, выбранные пользователем
type QuizSettings struct {
	Count        int    `json:"count"`
	Mode         string `json:"mode"`
	QuestionType string `json:"questionType"`
	Difficulty   string `json:"difficulty"`
}

// IsValidMode проверяет режим входных данных
func IsValidMode(mode string) bool {
	return mode == ModeTopic || mode == ModeStudyGuide
}

// IsValidQuestionType проверяет тип вопросов
func IsValidQuestionType(questionType string) bool {
	return questionType == QuestionTypeMultipleChoice || questionType == QuestionTypeTrueFalse
}

// IsValidDifficulty проверяет уровень сложности
func IsValidDifficulty(difficulty string) bool {
	switch difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyMixed:
		return true
	}
	return false
}
