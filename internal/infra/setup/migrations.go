package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// MigrateDB 使用传入的 GORM DB 实例执行全部数据库迁移。
// 返回错误以便调用者知道迁移是否成功。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	// AutoMigrate 按依赖顺序创建/更新表结构，
	// 多对多关联表 (project_team_members, session_participants) 由 GORM 自动处理。
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Project{},
		&domain.CollaborationSession{},
		&domain.RealtimeEdit{},
		&domain.CodeSuggestion{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
