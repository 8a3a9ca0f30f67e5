package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// ProjectService 回答协作子系统关心的唯一项目问题：成员资格。
// 项目本身的 CRUD 属于 REST 层，不在这里。
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService 创建 ProjectService 实例。
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	if projectRepo == nil {
		panic("ProjectRepository cannot be nil for ProjectService")
	}
	return &ProjectService{projectRepo: projectRepo}
}

// Authorize 检查用户是否允许进入项目的协作房间。
// 非成员返回 ErrAccessDenied，项目不存在返回 ErrProjectNotFound。
func (s *ProjectService) Authorize(ctx context.Context, projectID uuid.UUID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": projectID, "user_id": userID})

	member, err := s.projectRepo.IsMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			logCtx.Warn("Authorize: project not found")
			return ErrProjectNotFound
		}
		logCtx.WithError(err).Error("Authorize: repository error")
		return ErrInternalServer
	}
	if !member {
		logCtx.Warn("Authorize: user is not a project member")
		return ErrAccessDenied
	}
	return nil
}
