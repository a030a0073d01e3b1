package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

const sessionKeyPrefix = "quiz_session:"

// SessionRepo реализует repository.SessionRepository поверх Redis.
// Сессия хранится как JSON с TTL, продлеваемым при каждом сохранении.
type SessionRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
	ctx    context.Context
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(client redis.UniversalClient, ttl time.Duration) (*SessionRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for SessionRepo")
	}
	return &SessionRepo{
		client: client,
		ttl:    ttl,
		ctx:    context.Background(),
	}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save сохраняет сессию и продлевает ее TTL
func (r *SessionRepo) Save(session *entity.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	return r.client.Set(r.ctx, sessionKey(session.ID), data, r.ttl).Err()
}

// Get возвращает сессию по ID
func (r *SessionRepo) Get(id string) (*entity.QuizSession, error) {
	data, err := r.client.Get(r.ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	var session entity.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

// Delete удаляет сессию
func (r *SessionRepo) Delete(id string) error {
	return r.client.Del(r.ctx, sessionKey(id)).Err()
}
