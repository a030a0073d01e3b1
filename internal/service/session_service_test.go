package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// ============================================================================
// Моки для SessionService
// Хранилище сессий — in-memory, сервис читает и пишет на каждом событии
// ============================================================================

type fakeSessionRepo struct {
	sessions map[string]*entity.QuizSession
	saveErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.QuizSession)}
}

func (r *fakeSessionRepo) Save(session *entity.QuizSession) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Get(id string) (*entity.QuizSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Delete(id string) error {
	delete(r.sessions, id)
	return nil
}

// MockHistoryRepository реализует repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(entry *entity.HistoryEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByID(id uint) (*entity.HistoryEntry, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) GetByUser(userID uint, limit int) ([]entity.HistoryEntry, error) {
	args := m.Called(userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) GetAllByUser(userID uint) ([]entity.HistoryEntry, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockHistoryRepository) DeleteAllByUser(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func newSessionFixture(t *testing.T, userID uint, questionCount int) (*SessionService, *fakeSessionRepo, *MockHistoryRepository, *entity.QuizSession) {
	t.Helper()

	gen := &stubGenerator{response: generatorPayload(questionCount)}
	rateRepo := new(MockRateLimitRepository)
	cacheRepo := new(MockCacheRepository)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	sessionRepo := newFakeSessionRepo()
	historyRepo := new(MockHistoryRepository)
	svc := NewSessionService(
		sessionRepo,
		NewHistoryService(historyRepo),
		NewGenerationService(gen, NewRateLimitService(rateRepo, 20, 300), cacheRepo),
	)

	session, _, err := svc.StartSession(context.Background(), userID, "", GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "the solar system",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        questionCount,
		Identity:     "user:7",
	})
	require.NoError(t, err)
	return svc, sessionRepo, historyRepo, session
}

// completeSession отвечает на все вопросы от имени callerID:
// правильный вариант 0, correctPrefix первых ответов — верные
func completeSession(t *testing.T, svc *SessionService, id string, callerID uint, total, correctPrefix int) *entity.QuizSession {
	t.Helper()
	var session *entity.QuizSession
	var err error
	for i := 0; i < total; i++ {
		option := 0
		if i >= correctPrefix {
			option = 2
		}
		_, err = svc.Select(id, callerID, option)
		require.NoError(t, err)
		session, err = svc.Submit(id, callerID, nil)
		require.NoError(t, err)
		require.Equal(t, entity.SubStateRevealed, session.SubState)
		session, err = svc.Next(id, callerID)
		require.NoError(t, err)
	}
	return session
}

func TestSessionService_StartSession(t *testing.T) {
	_, repo, _, session := newSessionFixture(t, 7, 4)

	assert.Equal(t, entity.SessionStatusInProgress, session.Status)
	assert.Equal(t, entity.SubStateAnswering, session.SubState)
	assert.Equal(t, uint(7), session.UserID)
	assert.Len(t, session.Quiz.Questions, 4)

	stored, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
}

func TestSessionService_GenerationFailureLeavesNoSession(t *testing.T) {
	gen := &stubGenerator{response: "not json at all"}
	rateRepo := new(MockRateLimitRepository)
	cacheRepo := new(MockCacheRepository)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	sessionRepo := newFakeSessionRepo()
	svc := NewSessionService(
		sessionRepo,
		NewHistoryService(new(MockHistoryRepository)),
		NewGenerationService(gen, NewRateLimitService(rateRepo, 20, 300), cacheRepo),
	)

	_, _, err := svc.StartSession(context.Background(), 7, "", GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "anything",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        4,
		Identity:     "user:7",
	})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamParse)
	assert.Empty(t, sessionRepo.sessions)
}

func TestSessionService_CompletionWritesHistoryOnce(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 7, 4)

	historyRepo.On("Create", mock.MatchedBy(func(e *entity.HistoryEntry) bool {
		return e.UserID == 7 && e.Score == 3 && e.Total == 4 && e.Percent == 75
	})).Return(nil).Once()

	completed := completeSession(t, svc, session.ID, 7, 4, 3)
	assert.Equal(t, entity.SessionStatusCompleted, completed.Status)
	assert.True(t, completed.Saved)
	assert.Equal(t, entity.SaveStatusSaved, completed.SaveStatus)
	historyRepo.AssertExpectations(t)
}

func TestSessionService_AnonymousSessionNotSaved(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 0, 4)

	completed := completeSession(t, svc, session.ID, 0, 4, 4)
	assert.Equal(t, entity.SessionStatusCompleted, completed.Status)
	assert.False(t, completed.Saved)
	historyRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSessionService_HistorySaveErrorIsSoft(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 7, 4)

	historyRepo.On("Create", mock.Anything).Return(errors.New("db down"))

	completed := completeSession(t, svc, session.ID, 7, 4, 2)
	assert.Equal(t, entity.SessionStatusCompleted, completed.Status)
	assert.Equal(t, 2, completed.Score)
	assert.Equal(t, entity.SaveStatusError, completed.SaveStatus)
	// Saved установлен: повторной попытки записи не будет
	assert.True(t, completed.Saved)
}

func TestSessionService_RetryMissedCreatesPracticeSession(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 7, 5)

	historyRepo.On("Create", mock.Anything).Return(nil).Once()
	completeSession(t, svc, session.ID, 7, 5, 3)

	practice, err := svc.RetryMissed(session.ID, 7)
	require.NoError(t, err)
	assert.True(t, practice.PracticeMode)
	assert.NotEqual(t, session.ID, practice.ID)
	assert.Len(t, practice.Quiz.Questions, 2)
	assert.Equal(t, entity.SessionStatusInProgress, practice.Status)

	// Завершение тренировочной сессии не пишет историю
	completed := completeSession(t, svc, practice.ID, 7, 2, 2)
	assert.Equal(t, entity.SessionStatusCompleted, completed.Status)
	assert.False(t, completed.Saved)
	historyRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestSessionService_FiftyFiftyAndHintOncePerSession(t *testing.T) {
	svc, _, _, session := newSessionFixture(t, 7, 4)

	updated, err := svc.FiftyFifty(session.ID, 7)
	require.NoError(t, err)
	assert.Len(t, updated.Eliminated, 2)
	assert.True(t, updated.UsedFiftyFifty)

	_, err = svc.FiftyFifty(session.ID, 7)
	assert.Error(t, err)

	updated, err = svc.Hint(session.ID, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, updated.Hint)

	_, err = svc.Hint(session.ID, 7)
	assert.Error(t, err)
}

func TestSessionService_SelectEliminatedOptionRejected(t *testing.T) {
	svc, _, _, session := newSessionFixture(t, 7, 4)

	updated, err := svc.FiftyFifty(session.ID, 7)
	require.NoError(t, err)
	require.Len(t, updated.Eliminated, 2)

	_, err = svc.Select(session.ID, 7, updated.Eliminated[0])
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSessionService_RestartClearsSession(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 7, 4)
	historyRepo.On("Create", mock.Anything).Return(nil)
	completeSession(t, svc, session.ID, 7, 4, 4)

	restarted, err := svc.Restart(session.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusConfiguring, restarted.Status)
	assert.Nil(t, restarted.Quiz)
	assert.Zero(t, restarted.Score)
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t, 7, 4)

	_, err := svc.GetSession("missing", 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionService_ForeignCallerRejected(t *testing.T) {
	svc, repo, _, session := newSessionFixture(t, 7, 4)

	// Анонимный вызов не читает и не мутирует чужую сессию
	option := 1
	_, err := svc.Submit(session.ID, 0, &option)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	stored, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubStateAnswering, stored.SubState)
	assert.Empty(t, stored.Answers)

	// Другой пользователь тоже не имеет доступа
	_, err = svc.GetSession(session.ID, 9)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Владелец работает как обычно
	_, err = svc.GetSession(session.ID, 7)
	assert.NoError(t, err)
}

func TestSessionService_AnonymousSessionOpenToAnyCaller(t *testing.T) {
	svc, _, _, session := newSessionFixture(t, 0, 4)

	_, err := svc.GetSession(session.ID, 42)
	assert.NoError(t, err)
}

func TestSessionService_StartSessionReturnsQuota(t *testing.T) {
	gen := &stubGenerator{response: generatorPayload(4)}
	rateRepo := new(MockRateLimitRepository)
	cacheRepo := new(MockCacheRepository)
	allowQuota(rateRepo)
	allowLock(cacheRepo)

	svc := NewSessionService(
		newFakeSessionRepo(),
		NewHistoryService(new(MockHistoryRepository)),
		NewGenerationService(gen, NewRateLimitService(rateRepo, 20, 300), cacheRepo),
	)

	_, quota, err := svc.StartSession(context.Background(), 7, "", GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "the solar system",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        4,
		Identity:     "user:7",
	})
	require.NoError(t, err)
	require.NotNil(t, quota)
	assert.Equal(t, 1, quota.Daily)
	assert.Equal(t, 19, quota.DailyRemaining)
}

func TestSessionService_GenerateIntoRestartedSession(t *testing.T) {
	svc, _, historyRepo, session := newSessionFixture(t, 7, 4)
	historyRepo.On("Create", mock.Anything).Return(nil)
	completeSession(t, svc, session.ID, 7, 4, 4)

	_, err := svc.Restart(session.ID, 7)
	require.NoError(t, err)

	input := GenerateInput{
		Mode:         entity.ModeTopic,
		Content:      "the planets",
		QuestionType: entity.QuestionTypeMultipleChoice,
		Count:        4,
		Identity:     "user:7",
	}

	// Чужая сессия не заполняется
	_, _, err = svc.StartSession(context.Background(), 9, session.ID, input)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Владелец запускает новую викторину в той же сессии
	reused, _, err := svc.StartSession(context.Background(), 7, session.ID, input)
	require.NoError(t, err)
	assert.Equal(t, session.ID, reused.ID)
	assert.Equal(t, entity.SessionStatusInProgress, reused.Status)
	assert.Equal(t, "the planets", reused.Topic)
	assert.Len(t, reused.Quiz.Questions, 4)

	// Активная сессия не принимает повторную генерацию
	_, _, err = svc.StartSession(context.Background(), 7, session.ID, input)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
