package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

func TestHistoryService_RecordCompletionRejectsPractice(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo)

	session := entity.NewQuizSession("s1", 7)
	session.PracticeMode = true

	err := svc.RecordCompletion(session)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestHistoryService_RecordCompletionRejectsAnonymous(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo)

	err := svc.RecordCompletion(entity.NewQuizSession("s1", 0))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestHistoryService_DeleteChecksOwner(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo)

	repo.On("GetByID", uint(5)).Return(&entity.HistoryEntry{ID: 5, UserID: 9}, nil)

	err := svc.Delete(7, 5)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestHistoryService_DeleteByOwner(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo)

	repo.On("GetByID", uint(5)).Return(&entity.HistoryEntry{ID: 5, UserID: 7}, nil)
	repo.On("Delete", uint(5)).Return(nil)

	require.NoError(t, svc.Delete(7, 5))
	repo.AssertExpectations(t)
}

func TestHistoryService_DeleteAll(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo)

	repo.On("DeleteAllByUser", uint(7)).Return(int64(12), nil)

	deleted, err := svc.DeleteAll(7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
}
