package quizgen

import (
	"fmt"
	"strings"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
)

// Шаблоны инструкций для генератора. Формат ответа фиксирован:
// один JSON-объект { title, questions }, без обертки и пояснений.
const multipleChoiceTemplate = `You are a quiz generator. Respond with ONLY a single JSON object, no markdown fences, no commentary.
The object must have this exact shape:
{"title": string, "questions": [{"question": string, "options": [string, string, string, string], "answerIndex": number, "explanation": string}]}
Rules:
- every question has exactly 4 options;
- answerIndex is the 0-based index of the correct option;
- vary the position of the correct answer across questions, do not favor one index;
- explanation briefly states why the answer is correct.`

const trueFalseTemplate = `You are a quiz generator. Respond with ONLY a single JSON object, no markdown fences, no commentary.
The object must have this exact shape:
{"title": string, "questions": [{"question": string, "options": ["True", "False"], "answerIndex": number, "explanation": string}]}
Rules:
- every question has exactly the options ["True", "False"];
- answerIndex is 0 when the statement is true and 1 when it is false;
- vary which statements are true and which are false across the set;
- explanation briefly states why the statement is true or false.`

// difficultyGuidance возвращает дополнение к инструкции для уровня сложности
func difficultyGuidance(difficulty string) string {
	switch difficulty {
	case entity.DifficultyBeginner:
		return "Target beginners: test recall of fundamental facts and definitions."
	case entity.DifficultyIntermediate:
		return "Target intermediate learners: test understanding and application, not just recall."
	case entity.DifficultyAdvanced:
		return "Target advanced learners: test analysis, edge cases and subtle distinctions."
	case entity.DifficultyMixed:
		return "Mix difficulty levels across the set, from basic recall to advanced analysis."
	default:
		return ""
	}
}

// BuildSystemPrompt выбирает шаблон по типу вопросов и добавляет
// указание по сложности, если оно есть
func BuildSystemPrompt(questionType, difficulty string) string {
	template := multipleChoiceTemplate
	if questionType == entity.QuestionTypeTrueFalse {
		template = trueFalseTemplate
	}
	if guidance := difficultyGuidance(difficulty); guidance != "" {
		return template + "\n" + guidance
	}
	return template
}

// BuildUserPrompt строит пользовательскую часть запроса из режима и содержимого
func BuildUserPrompt(mode, content string, count int) string {
	content = strings.TrimSpace(content)
	if mode == entity.ModeStudyGuide {
		return fmt.Sprintf("Generate a quiz with exactly %d questions based on the following study material:\n\n%s", count, content)
	}
	return fmt.Sprintf("Generate a quiz with exactly %d questions about the topic: %s", count, content)
}
