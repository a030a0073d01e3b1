package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// ExtractJSON вырезает из сырого текста подстроку между первой '{'
// и последней '}'. Генератор может оборачивать JSON в пояснения
// или markdown-блоки.
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in generator output: %w", apperrors.ErrUpstreamParse)
	}
	return raw[start : end+1], nil
}

// Normalize разбирает сырой ответ генератора в типизированный Quiz.
// Лишние вопросы с хвоста отбрасываются до запрошенного количества;
// короткий ответ пропускается как есть, добивка не выполняется.
func Normalize(raw, questionType string, count int) (*entity.Quiz, error) {
	span, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var quiz entity.Quiz
	if err := json.Unmarshal([]byte(span), &quiz); err != nil {
		return nil, fmt.Errorf("failed to parse generator output: %w", apperrors.ErrUpstreamParse)
	}

	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("generator output has no questions: %w", apperrors.ErrInvalidUpstreamFormat)
	}

	for i := range quiz.Questions {
		if err := quiz.Questions[i].Validate(questionType); err != nil {
			return nil, fmt.Errorf("question %d is malformed: %w", i+1, apperrors.ErrInvalidUpstreamFormat)
		}
	}

	if count > 0 && len(quiz.Questions) > count {
		quiz.Questions = quiz.Questions[:count]
	}

	if strings.TrimSpace(quiz.Title) == "" {
		quiz.Title = "Quiz"
	}

	return &quiz, nil
}
