// Package mocks 提供 repository 接口的 testify Mock 实现，供 Service 层单元测试使用。
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// UserRepository 是 repository.UserRepository 的 Mock 实现
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// ProjectRepository 是 repository.ProjectRepository 的 Mock 实现
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if project, ok := args.Get(0).(*domain.Project); ok {
		return project, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) IsMember(ctx context.Context, projectID uuid.UUID, userID uint) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

// SessionRepository 是 repository.SessionRepository 的 Mock 实现
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) GetOrCreateActive(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error) {
	args := m.Called(ctx, projectID)
	if session, ok := args.Get(0).(*domain.CollaborationSession); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) FindActiveByProject(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error) {
	args := m.Called(ctx, projectID)
	if session, ok := args.Get(0).(*domain.CollaborationSession); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) AddParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *SessionRepository) RemoveParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *SessionRepository) CountParticipants(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) Deactivate(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *SessionRepository) SetActiveFile(ctx context.Context, sessionID uuid.UUID, filePath string) error {
	args := m.Called(ctx, sessionID, filePath)
	return args.Error(0)
}

func (m *SessionRepository) FindActiveByParticipant(ctx context.Context, userID uint) ([]domain.CollaborationSession, error) {
	args := m.Called(ctx, userID)
	if sessions, ok := args.Get(0).([]domain.CollaborationSession); ok {
		return sessions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) FindAllActive(ctx context.Context) ([]domain.CollaborationSession, error) {
	args := m.Called(ctx)
	if sessions, ok := args.Get(0).([]domain.CollaborationSession); ok {
		return sessions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) ClearParticipants(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// EditRepository 是 repository.EditRepository 的 Mock 实现
type EditRepository struct {
	mock.Mock
}

func (m *EditRepository) Save(ctx context.Context, edit *domain.RealtimeEdit) error {
	args := m.Called(ctx, edit)
	return args.Error(0)
}

func (m *EditRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.RealtimeEdit, error) {
	args := m.Called(ctx, sessionID)
	if edits, ok := args.Get(0).([]domain.RealtimeEdit); ok {
		return edits, args.Error(1)
	}
	return nil, args.Error(1)
}

// SuggestionRepository 是 repository.SuggestionRepository 的 Mock 实现
type SuggestionRepository struct {
	mock.Mock
}

func (m *SuggestionRepository) SaveBatch(ctx context.Context, suggestions []domain.CodeSuggestion) error {
	args := m.Called(ctx, suggestions)
	return args.Error(0)
}

func (m *SuggestionRepository) FindBySuggestionSession(ctx context.Context, sessionID string) ([]domain.CodeSuggestion, error) {
	args := m.Called(ctx, sessionID)
	if suggestions, ok := args.Get(0).([]domain.CodeSuggestion); ok {
		return suggestions, args.Error(1)
	}
	return nil, args.Error(1)
}

// CacheRepository 是 repository.CacheRepository 的 Mock 实现
type CacheRepository struct {
	mock.Mock
}

func (m *CacheRepository) GetSuggestionCache(ctx context.Context, sessionID string, contextHash string) ([]domain.CodeSuggestion, error) {
	args := m.Called(ctx, sessionID, contextHash)
	if suggestions, ok := args.Get(0).([]domain.CodeSuggestion); ok {
		return suggestions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CacheRepository) SetSuggestionCache(ctx context.Context, sessionID string, contextHash string, suggestions []domain.CodeSuggestion, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, contextHash, suggestions, ttl)
	return args.Error(0)
}

func (m *CacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, duration)
	return args.Bool(0), args.Error(1)
}
