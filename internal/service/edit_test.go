package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository/mocks"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"
)

func TestEditService_Append_Success(t *testing.T) {
	// Arrange
	mockSessionRepo := new(mocks.SessionRepository)
	mockEditRepo := new(mocks.EditRepository)
	editService := service.NewEditService(mockSessionRepo, mockEditRepo)
	ctx := context.Background()
	projectID := uuid.New()
	sessionID := uuid.New()
	userID := uint(3)
	position := datatypes.JSON(`{"line":10,"column":4}`)

	session := &domain.CollaborationSession{ID: sessionID, ProjectID: projectID, IsActive: true}
	mockSessionRepo.On("FindActiveByProject", ctx, projectID).Return(session, nil).Once()
	mockEditRepo.On("Save", ctx, mock.MatchedBy(func(edit *domain.RealtimeEdit) bool {
		assert.Equal(t, sessionID, edit.SessionID)
		assert.Equal(t, userID, edit.UserID)
		assert.Equal(t, "src/main.go", edit.FilePath)
		assert.Equal(t, domain.OpInsert, edit.OperationType)
		return true
	})).Return(nil).Once()

	// Act
	edit, err := editService.Append(ctx, projectID, userID, "src/main.go", domain.OpInsert, position, "fmt.Println")

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, sessionID, edit.SessionID)

	mockSessionRepo.AssertExpectations(t)
	mockEditRepo.AssertExpectations(t)
}

func TestEditService_Append_NoActiveSession(t *testing.T) {
	// Arrange: 没有活跃会话时编辑不落库
	mockSessionRepo := new(mocks.SessionRepository)
	mockEditRepo := new(mocks.EditRepository)
	editService := service.NewEditService(mockSessionRepo, mockEditRepo)
	ctx := context.Background()
	projectID := uuid.New()

	mockSessionRepo.On("FindActiveByProject", ctx, projectID).
		Return(nil, repository.ErrSessionNotFound).Once()

	// Act
	edit, err := editService.Append(ctx, projectID, uint(1), "a.go", domain.OpDelete, nil, "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrSessionNotActive))
	assert.Nil(t, edit)
	mockEditRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestEditService_Append_UnknownOperationType(t *testing.T) {
	// Arrange: 未知操作类型直接拒绝，连会话都不用查
	mockSessionRepo := new(mocks.SessionRepository)
	mockEditRepo := new(mocks.EditRepository)
	editService := service.NewEditService(mockSessionRepo, mockEditRepo)

	// Act
	_, err := editService.Append(context.Background(), uuid.New(), uint(1), "a.go", "format_disk", nil, "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidOperation))
	mockSessionRepo.AssertNotCalled(t, "FindActiveByProject", mock.Anything, mock.Anything)
	mockEditRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestEditService_ListForSession_ReturnsChronologicalOrder(t *testing.T) {
	// Arrange: 存储层按时间升序返回，Service 原样透传
	mockSessionRepo := new(mocks.SessionRepository)
	mockEditRepo := new(mocks.EditRepository)
	editService := service.NewEditService(mockSessionRepo, mockEditRepo)
	ctx := context.Background()
	sessionID := uuid.New()

	base := time.Now().Add(-time.Minute)
	edits := []domain.RealtimeEdit{
		{ID: uuid.New(), SessionID: sessionID, Timestamp: base},
		{ID: uuid.New(), SessionID: sessionID, Timestamp: base.Add(10 * time.Second)},
		{ID: uuid.New(), SessionID: sessionID, Timestamp: base.Add(20 * time.Second)},
	}
	mockEditRepo.On("FindBySession", ctx, sessionID).Return(edits, nil).Once()

	// Act
	got, err := editService.ListForSession(ctx, sessionID)

	// Assert
	assert.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i].Timestamp.Before(got[i-1].Timestamp), "编辑记录必须按时间升序")
	}
	mockEditRepo.AssertExpectations(t)
}
