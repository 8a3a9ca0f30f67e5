package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// GormProjectRepository 是 ProjectRepository 接口的 GORM 实现
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository 创建 GormProjectRepository 实例
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	if db == nil {
		panic("database connection cannot be nil for GormProjectRepository")
	}
	return &GormProjectRepository{db: db}
}

// FindByID 实现根据项目 ID 查找项目
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProjectNotFound
		}
		return nil, fmt.Errorf("gorm: find project by id %s: %w", id, err)
	}
	return &project, nil
}

// IsMember 实现项目成员资格检查：创建者或团队成员均视为成员。
func (r *GormProjectRepository) IsMember(ctx context.Context, projectID uuid.UUID, userID uint) (bool, error) {
	// 先检查项目是否存在以及是否是创建者
	project, err := r.FindByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	if project.OwnerID == userID {
		return true, nil
	}

	// 再检查团队成员关联表
	var count int64
	err = r.db.WithContext(ctx).
		Table("project_team_members").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check team membership (project %s, user %d): %w", projectID, userID, err)
	}
	return count > 0, nil
}
