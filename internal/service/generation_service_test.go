package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// ============================================================================
// Моки для GenerationService
// Используем MockRateLimitRepository из ratelimit_service_test.go
// ============================================================================

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// stubGenerator возвращает заготовленный ответ и считает вызовы
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (g *stubGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func generatorPayload(n int) string {
	questions := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			questions += ","
		}
		questions += fmt.Sprintf(`{"question":"Q%d","options":["A","B","C","D"],"answerIndex":0,"explanation":"E"}`, i+1)
	}
	return fmt.Sprintf(`{"title":"Generated","questions":[%s]}`, questions)
}

func newGenerationFixture(gen *stubGenerator) (*GenerationService, *MockRateLimitRepository, *MockCacheRepository) {
	rateRepo := new(MockRateLimitRepository)
	cacheRepo := new(MockCacheRepository)
	rateLimiter := NewRateLimitService(rateRepo, 20, 300)
	return NewGenerationService(gen, rateLimiter, cacheRepo), rateRepo, cacheRepo
}

func allowQuota(rateRepo *MockRateLimitRepository) {
	rateRepo.On("Get", mock.Anything).Return(nil, apperrors.ErrNotFound)
	rateRepo.On("Create", mock.Anything).Return(nil)
}

func allowLock(cacheRepo *MockCacheRepository) {
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	cacheRepo.On("Delete", mock.Anything).Return(nil)
}

func TestGenerationService_Success(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(5)}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	quiz, quota, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "photosynthesis",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Difficulty:   entity.DifficultyIntermediate,
		Count:        5,
		Identity:     "user:1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Generated", quiz.Title)
	assert.Len(t, quiz.Questions, 5)
	// Вместе с викториной возвращается квота после списания
	require.NotNil(t, quota)
	assert.Equal(t, 1, quota.Daily)
	assert.Equal(t, 19, quota.DailyRemaining)
	require.NotNil(t, quota.MonthlyRemaining)
	assert.Equal(t, 299, *quota.MonthlyRemaining)
	cacheRepo.AssertCalled(t, "Delete", "generation_lock:user:1")
}

func TestGenerationService_InvalidMode(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(5)}
	svc, _, _ := newGenerationFixture(gen)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         "freestyle",
		Content:      "x",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, gen.calls)
}

func TestGenerationService_MissingContent(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(5)}
	svc, _, _ := newGenerationFixture(gen)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeStudyGuide,
		Content:      "   \n ",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, gen.calls)
}

func TestGenerationService_CountClamped(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(MaxQuestionCount + 10)}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	quiz, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "history",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        500,
		Identity:     "user:1",
	})
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, MaxQuestionCount)
}

func TestGenerationService_QuotaDenialShortCircuits(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(5)}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)

	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       20,
		LastDailyReset:   time.Now().UTC().Format(entity.DailyPeriodLayout),
		MonthlyCount:     20,
		LastMonthlyReset: time.Now().UTC().Format(entity.MonthlyPeriodLayout),
	}
	rateRepo.On("Get", "user:1").Return(record, nil)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "history",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	assert.Zero(t, gen.calls)
	cacheRepo.AssertNotCalled(t, "SetNX", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerationService_InFlightLockRejectsSecondCall(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(5)}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)
	allowQuota(rateRepo)
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "history",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Zero(t, gen.calls)
	cacheRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestGenerationService_UpstreamErrorPropagates(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("boom: %w", apperrors.ErrUpstream)}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "history",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	cacheRepo.AssertCalled(t, "Delete", "generation_lock:user:1")
}

func TestGenerationService_MalformedUpstreamResponse(t *testing.T) {
	gen := &stubGenerator{response: "I cannot help with that"}
	svc, rateRepo, cacheRepo := newGenerationFixture(gen)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	_, _, err := svc.Generate(context.Background(), GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "history",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        5,
		Identity:     "user:1",
	})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamParse)
}
