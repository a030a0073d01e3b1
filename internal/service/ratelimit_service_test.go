package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// ============================================================================
// Моки для RateLimitService
// ============================================================================

// MockRateLimitRepository реализует repository.RateLimitRepository
type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) Get(identity string) (*entity.RateLimitRecord, error) {
	args := m.Called(identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RateLimitRecord), args.Error(1)
}

func (m *MockRateLimitRepository) Create(record *entity.RateLimitRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockRateLimitRepository) Update(record *entity.RateLimitRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestRateLimitService_FirstRequestCreatesRecord(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	repo.On("Get", "user:1").Return(nil, apperrors.ErrNotFound)
	repo.On("Create", mock.MatchedBy(func(r *entity.RateLimitRecord) bool {
		return r.Identity == "user:1" && r.DailyCount == 1 && r.MonthlyCount == 1
	})).Return(nil)

	status, err := svc.CheckAndConsume("user:1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Daily)
	assert.Equal(t, 20, status.DailyLimit)
	assert.Equal(t, 19, status.DailyRemaining)
	assert.Equal(t, 1, status.Monthly)
	require.NotNil(t, status.MonthlyRemaining)
	assert.Equal(t, 299, *status.MonthlyRemaining)
	repo.AssertExpectations(t)
}

func TestRateLimitService_IncrementsBothCounters(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       5,
		LastDailyReset:   testNow.Format(entity.DailyPeriodLayout),
		MonthlyCount:     40,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)
	repo.On("Update", mock.MatchedBy(func(r *entity.RateLimitRecord) bool {
		return r.DailyCount == 6 && r.MonthlyCount == 41
	})).Return(nil)

	status, err := svc.CheckAndConsume("user:1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 6, status.Daily)
	assert.Equal(t, 14, status.DailyRemaining)
	assert.Equal(t, 41, status.Monthly)
	repo.AssertExpectations(t)
}

func TestRateLimitService_DailyLimitRejects(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       20,
		LastDailyReset:   testNow.Format(entity.DailyPeriodLayout),
		MonthlyCount:     50,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)
	// Счетчик на лимите и период не менялся: записи в БД нет

	status, err := svc.CheckAndConsume("user:1", testNow)
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "daily limit of 20")
	assert.Equal(t, 20, status.Daily)
	assert.Zero(t, status.DailyRemaining)
	repo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestRateLimitService_RejectionPersistsRollover(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 0)

	// Дневной период перешел, месячный счетчик на лимите быть не может:
	// monthlyLimit = 0 отключает месячную проверку
	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       20,
		LastDailyReset:   testNow.AddDate(0, 0, -1).Format(entity.DailyPeriodLayout),
		MonthlyCount:     999,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)
	repo.On("Update", mock.MatchedBy(func(r *entity.RateLimitRecord) bool {
		// После переноса день обнулен и запрос списан
		return r.DailyCount == 1 && r.LastDailyReset == testNow.Format(entity.DailyPeriodLayout)
	})).Return(nil)

	status, err := svc.CheckAndConsume("user:1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Daily)
	repo.AssertExpectations(t)
}

func TestRateLimitService_MonthlyLimitRejects(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       3,
		LastDailyReset:   testNow.Format(entity.DailyPeriodLayout),
		MonthlyCount:     300,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)

	_, err := svc.CheckAndConsume("user:1", testNow)
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "monthly limit of 300")
	repo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestRateLimitService_MonthlyDisabledByZero(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 0)

	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       1,
		LastDailyReset:   testNow.Format(entity.DailyPeriodLayout),
		MonthlyCount:     100000,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)
	repo.On("Update", mock.Anything).Return(nil)

	status, err := svc.CheckAndConsume("user:1", testNow)
	require.NoError(t, err)
	assert.Zero(t, status.MonthlyLimit)
	assert.Nil(t, status.MonthlyRemaining)
}

func TestRateLimitService_ConcurrentFirstRequestFallsBack(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	existing := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       1,
		LastDailyReset:   testNow.Format(entity.DailyPeriodLayout),
		MonthlyCount:     1,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(nil, apperrors.ErrNotFound).Once()
	repo.On("Create", mock.Anything).Return(apperrors.ErrConflict)
	repo.On("Get", "user:1").Return(existing, nil).Once()
	repo.On("Update", mock.Anything).Return(nil)

	status, err := svc.CheckAndConsume("user:1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Daily)
	repo.AssertExpectations(t)
}

func TestRateLimitService_StatusDoesNotMutate(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	// Период перешел, но Status ничего не сохраняет
	record := &entity.RateLimitRecord{
		Identity:         "user:1",
		DailyCount:       15,
		LastDailyReset:   testNow.AddDate(0, 0, -1).Format(entity.DailyPeriodLayout),
		MonthlyCount:     120,
		LastMonthlyReset: testNow.Format(entity.MonthlyPeriodLayout),
	}
	repo.On("Get", "user:1").Return(record, nil)

	status, err := svc.Status("user:1", testNow)
	require.NoError(t, err)
	assert.Zero(t, status.Daily)
	assert.Equal(t, 120, status.Monthly)
	repo.AssertNotCalled(t, "Update", mock.Anything)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestRateLimitService_StatusUnknownIdentity(t *testing.T) {
	repo := new(MockRateLimitRepository)
	svc := NewRateLimitService(repo, 20, 300)

	repo.On("Get", "ip:abc").Return(nil, apperrors.ErrNotFound)

	status, err := svc.Status("ip:abc", testNow)
	require.NoError(t, err)
	assert.Zero(t, status.Daily)
	assert.Equal(t, 20, status.DailyLimit)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}
