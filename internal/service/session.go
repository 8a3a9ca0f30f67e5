package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// sessionLockStripes 是按项目分段的锁数量。
const sessionLockStripes = 64

// SessionService 负责协作会话的生命周期：加入、离开、活跃会话查询。
// 同一项目的 Join/Leave 通过分段锁串行执行，保证 "参与者计数归零即停用"
// 的检查是原子的：两个并发的 Leave 不会漏掉或重复执行停用。
type SessionService struct {
	sessionRepo repository.SessionRepository
	locks       [sessionLockStripes]sync.Mutex
}

// NewSessionService 创建 SessionService 实例。
func NewSessionService(sessionRepo repository.SessionRepository) *SessionService {
	if sessionRepo == nil {
		panic("SessionRepository cannot be nil for SessionService")
	}
	return &SessionService{sessionRepo: sessionRepo}
}

// projectLock 返回项目对应的分段锁。
func (s *SessionService) projectLock(projectID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(projectID[:])
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// Join 为项目查找 (或创建) 活跃会话并把用户加入参与者集合。
// 重复加入同一会话是 no-op。返回加入后的会话。
func (s *SessionService) Join(ctx context.Context, projectID uuid.UUID, userID uint) (*domain.CollaborationSession, error) {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": projectID, "user_id": userID})

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessionRepo.GetOrCreateActive(ctx, projectID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to get or create active session")
		return nil, ErrInternalServer
	}

	if err := s.sessionRepo.AddParticipant(ctx, session.ID, userID); err != nil {
		logCtx.WithError(err).Error("Failed to add participant to session")
		return nil, ErrInternalServer
	}

	logCtx.WithField("session_id", session.ID).Info("User joined collaboration session")
	return session, nil
}

// Leave 把用户移出项目活跃会话的参与者集合；计数归零时停用会话。
// 没有活跃会话或用户不是成员时静默返回 nil —— 断开连接的竞态不能让
// 连接处理器崩溃。
func (s *SessionService) Leave(ctx context.Context, projectID uuid.UUID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": projectID, "user_id": userID})

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessionRepo.FindActiveByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.Debug("Leave: no active session, nothing to do")
			return nil
		}
		logCtx.WithError(err).Error("Leave: failed to find active session")
		return ErrInternalServer
	}

	if err := s.sessionRepo.RemoveParticipant(ctx, session.ID, userID); err != nil {
		logCtx.WithError(err).Error("Leave: failed to remove participant")
		return ErrInternalServer
	}

	count, err := s.sessionRepo.CountParticipants(ctx, session.ID)
	if err != nil {
		logCtx.WithError(err).Error("Leave: failed to count participants")
		return ErrInternalServer
	}

	if count == 0 {
		if err := s.sessionRepo.Deactivate(ctx, session.ID); err != nil {
			logCtx.WithError(err).Error("Leave: failed to deactivate empty session")
			return ErrInternalServer
		}
		logCtx.WithField("session_id", session.ID).Info("Last participant left, session deactivated")
	} else {
		logCtx.WithFields(logrus.Fields{"session_id": session.ID, "participants": count}).
			Debug("User left collaboration session")
	}
	return nil
}

// GetActive 返回项目当前的活跃会话；不存在时返回 (nil, nil)。
func (s *SessionService) GetActive(ctx context.Context, projectID uuid.UUID) (*domain.CollaborationSession, error) {
	session, err := s.sessionRepo.FindActiveByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		logrus.WithError(err).WithField("project_id", projectID).
			Error("GetActive: repository error")
		return nil, ErrInternalServer
	}
	return session, nil
}

// ListForUser 返回用户参与的所有活跃会话。
func (s *SessionService) ListForUser(ctx context.Context, userID uint) ([]domain.CollaborationSession, error) {
	sessions, err := s.sessionRepo.FindActiveByParticipant(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).
			Error("ListForUser: repository error")
		return nil, ErrInternalServer
	}
	return sessions, nil
}

// SetActiveFile 更新项目活跃会话的活跃文件路径 (后写者覆盖)。
// 没有活跃会话时静默返回 nil。
func (s *SessionService) SetActiveFile(ctx context.Context, projectID uuid.UUID, filePath string) error {
	session, err := s.sessionRepo.FindActiveByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return ErrInternalServer
	}
	if err := s.sessionRepo.SetActiveFile(ctx, session.ID, filePath); err != nil {
		logrus.WithError(err).WithField("session_id", session.ID).
			Warn("SetActiveFile: failed to update active file")
		return ErrInternalServer
	}
	return nil
}

// ReconcileStale 停用没有对应在线房间的活跃会话并清空其残留的参与者记录。
// 进程异常退出时断开清理不会执行，持久化的参与者集合会与真实连接脱节；
// 该方法由周期性后台任务调用来收敛这种偏差。liveProjects 是当前进程中
// 有在线连接的项目 ID 集合。返回被停用的会话数量。
func (s *SessionService) ReconcileStale(ctx context.Context, liveProjects map[uuid.UUID]bool) (int, error) {
	sessions, err := s.sessionRepo.FindAllActive(ctx)
	if err != nil {
		logrus.WithError(err).Error("ReconcileStale: failed to list active sessions")
		return 0, ErrInternalServer
	}

	reconciled := 0
	for i := range sessions {
		session := &sessions[i]
		if liveProjects[session.ProjectID] {
			continue
		}

		lock := s.projectLock(session.ProjectID)
		lock.Lock()
		// 在锁内重新检查，避免和刚刚 Join 的用户竞争
		current, err := s.sessionRepo.FindActiveByProject(ctx, session.ProjectID)
		if err != nil || current == nil || current.ID != session.ID {
			lock.Unlock()
			continue
		}
		if err := s.sessionRepo.ClearParticipants(ctx, session.ID); err != nil {
			logrus.WithError(err).WithField("session_id", session.ID).
				Warn("ReconcileStale: failed to clear stale participants")
			lock.Unlock()
			continue
		}
		if err := s.sessionRepo.Deactivate(ctx, session.ID); err != nil {
			logrus.WithError(err).WithField("session_id", session.ID).
				Warn("ReconcileStale: failed to deactivate stale session")
			lock.Unlock()
			continue
		}
		lock.Unlock()
		reconciled++
		logrus.WithFields(logrus.Fields{
			"session_id": session.ID,
			"project_id": session.ProjectID,
		}).Info("Stale session reconciled")
	}
	return reconciled, nil
}
