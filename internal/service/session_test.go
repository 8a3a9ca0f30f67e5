package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository/mocks"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"
)

// --- 测试 Join 方法 ---

func TestSessionService_Join_Success(t *testing.T) {
	// Arrange
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()
	sessionID := uuid.New()
	userID := uint(1)

	session := &domain.CollaborationSession{ID: sessionID, ProjectID: projectID, IsActive: true}
	mockSessionRepo.On("GetOrCreateActive", ctx, projectID).Return(session, nil).Once()
	mockSessionRepo.On("AddParticipant", ctx, sessionID, userID).Return(nil).Once()

	// Act
	joined, err := sessionService.Join(ctx, projectID, userID)

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, joined)
	assert.Equal(t, sessionID, joined.ID)
	assert.True(t, joined.IsActive)

	mockSessionRepo.AssertExpectations(t)
}

func TestSessionService_Join_RepoFailure(t *testing.T) {
	// Arrange
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()

	mockSessionRepo.On("GetOrCreateActive", ctx, projectID).
		Return(nil, errors.New("db gone")).Once()

	// Act
	_, err := sessionService.Join(ctx, projectID, uint(1))

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInternalServer))
	mockSessionRepo.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

// --- 测试 Leave 方法 ---

func TestSessionService_Leave_LastParticipantDeactivates(t *testing.T) {
	// Arrange: 最后一个参与者离开时会话必须被停用
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()
	sessionID := uuid.New()
	userID := uint(7)

	session := &domain.CollaborationSession{ID: sessionID, ProjectID: projectID, IsActive: true}
	mockSessionRepo.On("FindActiveByProject", ctx, projectID).Return(session, nil).Once()
	mockSessionRepo.On("RemoveParticipant", ctx, sessionID, userID).Return(nil).Once()
	mockSessionRepo.On("CountParticipants", ctx, sessionID).Return(int64(0), nil).Once()
	mockSessionRepo.On("Deactivate", ctx, sessionID).Return(nil).Once()

	// Act
	err := sessionService.Leave(ctx, projectID, userID)

	// Assert
	assert.NoError(t, err)
	mockSessionRepo.AssertExpectations(t)
}

func TestSessionService_Leave_OthersRemainSessionStaysActive(t *testing.T) {
	// Arrange: 还有其他参与者时会话不能被停用
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()
	sessionID := uuid.New()

	session := &domain.CollaborationSession{ID: sessionID, ProjectID: projectID, IsActive: true}
	mockSessionRepo.On("FindActiveByProject", ctx, projectID).Return(session, nil).Once()
	mockSessionRepo.On("RemoveParticipant", ctx, sessionID, uint(1)).Return(nil).Once()
	mockSessionRepo.On("CountParticipants", ctx, sessionID).Return(int64(1), nil).Once()

	// Act
	err := sessionService.Leave(ctx, projectID, uint(1))

	// Assert
	assert.NoError(t, err)
	mockSessionRepo.AssertExpectations(t)
	mockSessionRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestSessionService_Leave_NoActiveSessionIsNoop(t *testing.T) {
	// Arrange: 没有活跃会话时 Leave 静默成功，断开清理路径绝不报错
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()

	mockSessionRepo.On("FindActiveByProject", ctx, projectID).
		Return(nil, repository.ErrSessionNotFound).Once()

	// Act
	err := sessionService.Leave(ctx, projectID, uint(1))

	// Assert
	assert.NoError(t, err)
	mockSessionRepo.AssertExpectations(t)
	mockSessionRepo.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)
}

// --- 测试完整的加入/离开场景 ---

func TestSessionService_JoinLeaveScenario(t *testing.T) {
	// 场景: A 加入 -> B 加入 (同一会话) -> A 离开 (会话仍活跃) -> B 离开 (会话停用)
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()
	sessionID := uuid.New()
	userA, userB := uint(1), uint(2)

	session := &domain.CollaborationSession{ID: sessionID, ProjectID: projectID, IsActive: true}

	// A 和 B 加入，拿到的是同一个会话
	mockSessionRepo.On("GetOrCreateActive", ctx, projectID).Return(session, nil).Twice()
	mockSessionRepo.On("AddParticipant", ctx, sessionID, userA).Return(nil).Once()
	mockSessionRepo.On("AddParticipant", ctx, sessionID, userB).Return(nil).Once()

	sessionA, err := sessionService.Join(ctx, projectID, userA)
	require.NoError(t, err)
	sessionB, err := sessionService.Join(ctx, projectID, userB)
	require.NoError(t, err)
	assert.Equal(t, sessionA.ID, sessionB.ID, "并发加入者必须落到同一个会话")

	// A 离开：还剩 B，会话保持活跃
	mockSessionRepo.On("FindActiveByProject", ctx, projectID).Return(session, nil).Twice()
	mockSessionRepo.On("RemoveParticipant", ctx, sessionID, userA).Return(nil).Once()
	mockSessionRepo.On("CountParticipants", ctx, sessionID).Return(int64(1), nil).Once()
	require.NoError(t, sessionService.Leave(ctx, projectID, userA))
	mockSessionRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)

	// B 离开：计数归零，会话停用
	mockSessionRepo.On("RemoveParticipant", ctx, sessionID, userB).Return(nil).Once()
	mockSessionRepo.On("CountParticipants", ctx, sessionID).Return(int64(0), nil).Once()
	mockSessionRepo.On("Deactivate", ctx, sessionID).Return(nil).Once()
	require.NoError(t, sessionService.Leave(ctx, projectID, userB))

	mockSessionRepo.AssertExpectations(t)
}

// --- 测试 GetActive 方法 ---

func TestSessionService_GetActive_NoSessionReturnsNil(t *testing.T) {
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()
	projectID := uuid.New()

	mockSessionRepo.On("FindActiveByProject", ctx, projectID).
		Return(nil, repository.ErrSessionNotFound).Once()

	session, err := sessionService.GetActive(ctx, projectID)

	assert.NoError(t, err, "没有活跃会话不是错误")
	assert.Nil(t, session)
	mockSessionRepo.AssertExpectations(t)
}

// --- 测试 ReconcileStale 方法 ---

func TestSessionService_ReconcileStale_DeactivatesOrphans(t *testing.T) {
	// Arrange: 两个活跃会话，一个项目有在线连接，另一个是孤儿
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()

	liveProject := uuid.New()
	staleProject := uuid.New()
	liveSession := domain.CollaborationSession{ID: uuid.New(), ProjectID: liveProject, IsActive: true}
	staleSession := domain.CollaborationSession{ID: uuid.New(), ProjectID: staleProject, IsActive: true}

	mockSessionRepo.On("FindAllActive", ctx).
		Return([]domain.CollaborationSession{liveSession, staleSession}, nil).Once()
	// 锁内重查只发生在孤儿会话上
	mockSessionRepo.On("FindActiveByProject", ctx, staleProject).Return(&staleSession, nil).Once()
	mockSessionRepo.On("ClearParticipants", ctx, staleSession.ID).Return(nil).Once()
	mockSessionRepo.On("Deactivate", ctx, staleSession.ID).Return(nil).Once()

	// Act
	reconciled, err := sessionService.ReconcileStale(ctx, map[uuid.UUID]bool{liveProject: true})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 1, reconciled)
	mockSessionRepo.AssertExpectations(t)
	mockSessionRepo.AssertNotCalled(t, "Deactivate", ctx, liveSession.ID)
}

func TestSessionService_ReconcileStale_SkipsReplacedSession(t *testing.T) {
	// Arrange: 对账期间有人重新加入并拿到了新会话，旧会话记录不能误伤新会话
	mockSessionRepo := new(mocks.SessionRepository)
	sessionService := service.NewSessionService(mockSessionRepo)
	ctx := context.Background()

	projectID := uuid.New()
	oldSession := domain.CollaborationSession{ID: uuid.New(), ProjectID: projectID, IsActive: true}
	newSession := domain.CollaborationSession{ID: uuid.New(), ProjectID: projectID, IsActive: true}

	mockSessionRepo.On("FindAllActive", ctx).
		Return([]domain.CollaborationSession{oldSession}, nil).Once()
	mockSessionRepo.On("FindActiveByProject", ctx, projectID).Return(&newSession, nil).Once()

	// Act
	reconciled, err := sessionService.ReconcileStale(ctx, map[uuid.UUID]bool{})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, reconciled)
	mockSessionRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
	mockSessionRepo.AssertNotCalled(t, "ClearParticipants", mock.Anything, mock.Anything)
}
