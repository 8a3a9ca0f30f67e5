package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// ProjectRepository 定义了项目数据的检索操作。
// 项目的完整 CRUD 属于 REST 层的职责，这里只需要协作子系统用到的查询。
type ProjectRepository interface {
	// FindByID 根据项目 ID 查找项目。
	// 项目不存在时返回 ErrProjectNotFound。
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// IsMember 回答 "该用户是否允许进入这个项目的房间"：
	// 项目创建者或团队成员均视为成员。
	IsMember(ctx context.Context, projectID uuid.UUID, userID uint) (bool, error)
}
