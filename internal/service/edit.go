package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// EditService 负责实时编辑日志：追加和按会话读取。
// 日志只用于持久化/审计，不做冲突合并。
type EditService struct {
	sessionRepo repository.SessionRepository
	editRepo    repository.EditRepository
}

// NewEditService 创建 EditService 实例。
func NewEditService(sessionRepo repository.SessionRepository, editRepo repository.EditRepository) *EditService {
	if sessionRepo == nil || editRepo == nil {
		panic("All repositories must be non-nil for EditService")
	}
	return &EditService{
		sessionRepo: sessionRepo,
		editRepo:    editRepo,
	}
}

// Append 为项目的活跃会话追加一条编辑记录。
// 没有活跃会话时返回 ErrSessionNotActive，未知操作类型返回
// ErrInvalidOperation —— 两种情况都不会写入任何记录，调用方 (连接处理器)
// 把失败当作 "这条编辑没有被记录" 静默丢弃，广播照常进行。
func (s *EditService) Append(ctx context.Context, projectID uuid.UUID, userID uint, filePath, operationType string, position datatypes.JSON, content string) (*domain.RealtimeEdit, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    userID,
		"file_path":  filePath,
		"operation":  operationType,
	})

	if !domain.IsValidOperationType(operationType) {
		logCtx.Warn("Append: unknown operation type, dropping edit")
		return nil, ErrInvalidOperation
	}

	session, err := s.sessionRepo.FindActiveByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.Debug("Append: no active session, edit not persisted")
			return nil, ErrSessionNotActive
		}
		logCtx.WithError(err).Error("Append: failed to look up active session")
		return nil, ErrInternalServer
	}

	edit := &domain.RealtimeEdit{
		SessionID:     session.ID,
		UserID:        userID,
		FilePath:      filePath,
		OperationType: operationType,
		Position:      position,
		Content:       content,
	}
	if err := s.editRepo.Save(ctx, edit); err != nil {
		logCtx.WithError(err).Error("Append: failed to save edit")
		return nil, ErrInternalServer
	}

	logCtx.WithField("edit_id", edit.ID).Debug("Edit appended to log")
	return edit, nil
}

// ListForSession 返回会话的全部编辑记录，按时间戳升序。
func (s *EditService) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]domain.RealtimeEdit, error) {
	edits, err := s.editRepo.FindBySession(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).
			Error("ListForSession: repository error")
		return nil, ErrInternalServer
	}
	return edits, nil
}
