package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// GormSessionRepository 是 SessionRepository 接口的 GORM 实现
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository 创建 GormSessionRepository 实例
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSessionRepository")
	}
	return &GormSessionRepository{db: db}
}

// GetOrCreateActive 实现项目活跃会话的原子 get-or-create。
// 在事务中执行 查找+创建；跨进程的并发创建由 (project_id, active_marker)
// 上的唯一索引拦截，后到的一方收到唯一约束冲突后重读已存在的会话。
func (r *GormSessionRepository) GetOrCreateActive(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error) {
	var session domain.CollaborationSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND is_active = ?", projectID, true).
			First(&session).Error
		if err == nil {
			return nil // 已有活跃会话，直接复用
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("gorm: find active session for project %s: %w", projectID, err)
		}

		session = domain.CollaborationSession{
			ProjectID:   projectID,
			SessionData: datatypes.JSONMap{},
			IsActive:    true,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("gorm: create session for project %s: %w", projectID, err)
		}
		return nil
	})
	if err != nil {
		// 并发创建冲突时重读已存在的会话
		if isDuplicateEntryError(err) {
			return r.FindActiveByProject(ctx, projectID)
		}
		return nil, err
	}
	return &session, nil
}

// FindActiveByProject 实现查找项目当前的活跃会话
func (r *GormSessionRepository) FindActiveByProject(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error) {
	var session domain.CollaborationSession
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find active session for project %s: %w", projectID, err)
	}
	return &session, nil
}

// AddParticipant 实现将用户加入参与者集合 (GORM 的 Append 对已存在关联是 no-op)
func (r *GormSessionRepository) AddParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error {
	session := domain.CollaborationSession{ID: sessionID}
	err := r.db.WithContext(ctx).Model(&session).
		Association("Participants").
		Append(&domain.User{ID: userID})
	if err != nil {
		return fmt.Errorf("gorm: add participant %d to session %s: %w", userID, sessionID, err)
	}
	return nil
}

// RemoveParticipant 实现将用户移出参与者集合
func (r *GormSessionRepository) RemoveParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error {
	session := domain.CollaborationSession{ID: sessionID}
	err := r.db.WithContext(ctx).Model(&session).
		Association("Participants").
		Delete(&domain.User{ID: userID})
	if err != nil {
		return fmt.Errorf("gorm: remove participant %d from session %s: %w", userID, sessionID, err)
	}
	return nil
}

// CountParticipants 实现参与者计数
func (r *GormSessionRepository) CountParticipants(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	session := domain.CollaborationSession{ID: sessionID}
	count := r.db.WithContext(ctx).Model(&session).Association("Participants").Count()
	return count, nil
}

// Deactivate 实现停用会话。active_marker 必须一并清空，
// 否则唯一索引会挡住该项目的下一个会话。
func (r *GormSessionRepository) Deactivate(ctx context.Context, sessionID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.CollaborationSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"is_active": false, "active_marker": nil})
	if result.Error != nil {
		return fmt.Errorf("gorm: deactivate session %s: %w", sessionID, result.Error)
	}
	return nil
}

// SetActiveFile 实现更新活跃文件路径 (后写者覆盖)
func (r *GormSessionRepository) SetActiveFile(ctx context.Context, sessionID uuid.UUID, filePath string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.CollaborationSession{}).
		Where("id = ?", sessionID).
		Update("active_file", filePath)
	if result.Error != nil {
		return fmt.Errorf("gorm: set active file for session %s: %w", sessionID, result.Error)
	}
	return nil
}

// FindActiveByParticipant 实现查询用户参与的所有活跃会话
func (r *GormSessionRepository) FindActiveByParticipant(ctx context.Context, userID uint) ([]domain.CollaborationSession, error) {
	var sessions []domain.CollaborationSession
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN session_participants sp ON sp.collaboration_session_id = collaboration_sessions.id").
		Where("sp.user_id = ? AND collaboration_sessions.is_active = ?", userID, true).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find active sessions for user %d: %w", userID, err)
	}
	return sessions, nil
}

// FindAllActive 实现返回所有活跃会话
func (r *GormSessionRepository) FindAllActive(ctx context.Context) ([]domain.CollaborationSession, error) {
	var sessions []domain.CollaborationSession
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all active sessions: %w", err)
	}
	return sessions, nil
}

// ClearParticipants 实现清空参与者集合
func (r *GormSessionRepository) ClearParticipants(ctx context.Context, sessionID uuid.UUID) error {
	session := domain.CollaborationSession{ID: sessionID}
	err := r.db.WithContext(ctx).Model(&session).Association("Participants").Clear()
	if err != nil {
		return fmt.Errorf("gorm: clear participants for session %s: %w", sessionID, err)
	}
	return nil
}
