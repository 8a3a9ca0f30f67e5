package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// SessionRepository 定义了协作会话的存储和检索操作。
// 参与者的增删与计数由 Service 层在每个项目的锁内组合调用，
// 以保证"计数归零即停用"检查的原子性。
type SessionRepository interface {
	// GetOrCreateActive 查找项目当前的活跃会话；不存在则创建一个
	// (空元数据, is_active=true)。必须是原子的 get-or-create，
	// 避免并发连接为同一项目创建两个活跃会话。
	GetOrCreateActive(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error)

	// FindActiveByProject 查找项目当前的活跃会话。
	// 不存在时返回 ErrSessionNotFound。
	FindActiveByProject(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error)

	// AddParticipant 将用户加入会话的参与者集合 (幂等，重复加入是 no-op)。
	AddParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error

	// RemoveParticipant 将用户移出会话的参与者集合 (用户不在集合中是 no-op)。
	RemoveParticipant(ctx context.Context, sessionID uuid.UUID, userID uint) error

	// CountParticipants 返回会话当前的参与者数量。
	CountParticipants(ctx context.Context, sessionID uuid.UUID) (int64, error)

	// Deactivate 将会话标记为不活跃 (会话只停用，不删除)。
	Deactivate(ctx context.Context, sessionID uuid.UUID) error

	// SetActiveFile 更新会话的活跃文件路径 (后写者覆盖)。
	SetActiveFile(ctx context.Context, sessionID uuid.UUID, filePath string) error

	// FindActiveByParticipant 查询用户参与的所有活跃会话 (含参与者预加载)。
	FindActiveByParticipant(ctx context.Context, userID uint) ([]domain.CollaborationSession, error)

	// FindAllActive 返回所有活跃会话，用于启动/周期性的僵尸会话清理。
	FindAllActive(ctx context.Context) ([]domain.CollaborationSession, error)

	// ClearParticipants 清空会话的参与者集合 (清理崩溃后残留的成员记录)。
	ClearParticipants(ctx context.Context, sessionID uuid.UUID) error
}
