package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/hub"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"
)

// SessionReconcileHandler 处理周期性的会话对账任务。
// 进程崩溃或连接清理失败会留下没有任何在线连接的 "活跃" 会话，
// 这里把数据库里的活跃会话和 Hub 的在线房间对一遍账，关掉孤儿会话。
type SessionReconcileHandler struct {
	hub            *hub.Hub                // 用于获取当前在线的协作项目
	sessionService *service.SessionService // 用于停用孤儿会话
}

// NewSessionReconcileHandler 创建 Handler 实例
func NewSessionReconcileHandler(h *hub.Hub, sessionService *service.SessionService) *SessionReconcileHandler {
	if h == nil {
		panic("Hub cannot be nil for SessionReconcileHandler")
	}
	if sessionService == nil {
		panic("SessionService cannot be nil for SessionReconcileHandler")
	}
	return &SessionReconcileHandler{
		hub:            h,
		sessionService: sessionService,
	}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *SessionReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
	})
	logCtx.Info("Processing periodic session reconcile task...")

	// 带超时的 context，避免任务卡死
	reconcileCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	liveProjects := h.hub.ActiveCollabProjects()
	deactivated, err := h.sessionService.ReconcileStale(reconcileCtx, liveProjects)
	if err != nil {
		logCtx.WithError(err).Error("Session reconcile failed")
		return err
	}

	if deactivated > 0 {
		logCtx.WithFields(logrus.Fields{
			"live_projects": len(liveProjects),
			"deactivated":   deactivated,
		}).Info("Stale collaboration sessions deactivated")
	} else {
		logCtx.Debug("Session reconcile complete, no stale sessions found")
	}
	return nil
}
