package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/internal/service/quizgen"
)

const (
	// Границы количества вопросов. Программный путь приводит значение
	// к границам, интерактивный отклоняет на уровне DTO.
	MinQuestionCount = 3
	MaxQuestionCount = 50

	generationLockPrefix = "generation_lock:"
	generationLockTTL    = 2 * time.Minute
)

// GenerateInput описывает запрос на генерацию викторины
type GenerateInput struct {
	Mode         string
	Content      string
	QuestionType string
	Difficulty   string
	Count        int
	Identity     string
}

// QuizGenerator выполняет запрос к модели и возвращает сырой текст
type QuizGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenerationService строит запрос генератору, проверяет квоту
// и нормализует ответ в типизированную викторину
type GenerationService struct {
	generator        QuizGenerator
	rateLimitService *RateLimitService
	cacheRepo        repository.CacheRepository
}

// NewGenerationService создает новый сервис генерации
func NewGenerationService(generator QuizGenerator, rateLimitService *RateLimitService, cacheRepo repository.CacheRepository) *GenerationService {
	return &GenerationService{
		generator:        generator,
		rateLimitService: rateLimitService,
		cacheRepo:        cacheRepo,
	}
}

// ClampCount приводит количество вопросов к допустимому диапазону
func ClampCount(count int) int {
	if count < MinQuestionCount {
		return MinQuestionCount
	}
	if count > MaxQuestionCount {
		return MaxQuestionCount
	}
	return count
}

// Generate проверяет вход, списывает квоту и выполняет один запрос
// генератору. Порядок проверок фиксирован: режим, содержимое, количество,
// квота. Отказ квоты не доходит до генератора. Вместе с викториной
// возвращается состояние квоты после списания.
func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (*entity.Quiz, *RateLimitStatus, error) {
	if !entity.IsValidMode(input.Mode) {
		return nil, nil, fmt.Errorf("invalid mode %q: %w", input.Mode, apperrors.ErrValidation)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, nil, fmt.Errorf("missing content for mode %q: %w", input.Mode, apperrors.ErrValidation)
	}
	if !entity.IsValidQuestionType(input.QuestionType) {
		return nil, nil, fmt.Errorf("invalid question type %q: %w", input.QuestionType, apperrors.ErrValidation)
	}
	if input.Difficulty != "" && !entity.IsValidDifficulty(input.Difficulty) {
		return nil, nil, fmt.Errorf("invalid difficulty %q: %w", input.Difficulty, apperrors.ErrValidation)
	}
	count := ClampCount(input.Count)

	quota, err := s.rateLimitService.CheckAndConsume(input.Identity, time.Now())
	if err != nil {
		return nil, nil, err
	}

	// Одна незавершенная генерация на идентичность
	lockKey := generationLockPrefix + input.Identity
	acquired, err := s.cacheRepo.SetNX(lockKey, "1", generationLockTTL)
	if err != nil {
		log.Printf("[GenerationService] Ошибка блокировки генерации для %s: %v", input.Identity, err)
	} else if !acquired {
		return nil, nil, fmt.Errorf("generation already in progress: %w", apperrors.ErrConflict)
	}
	defer func() {
		if err := s.cacheRepo.Delete(lockKey); err != nil {
			log.Printf("[GenerationService] Не удалось снять блокировку %s: %v", lockKey, err)
		}
	}()

	systemPrompt := quizgen.BuildSystemPrompt(input.QuestionType, input.Difficulty)
	userPrompt := quizgen.BuildUserPrompt(input.Mode, input.Content, count)

	raw, err := s.generator.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		log.Printf("[GenerationService] Генератор вернул ошибку для %s: %v", input.Identity, err)
		return nil, nil, err
	}

	quiz, err := quizgen.Normalize(raw, input.QuestionType, count)
	if err != nil {
		log.Printf("[GenerationService] Ответ генератора не нормализуется для %s: %v", input.Identity, err)
		return nil, nil, err
	}

	log.Printf("[GenerationService] Сгенерирована викторина %q: %d вопросов (запрошено %d)",
		quiz.Title, len(quiz.Questions), count)
	return quiz, quota, nil
}
