package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project 表示一个 IDE 项目，是协作房间的宿主。
type Project struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`      // 项目唯一标识符 (UUID 主键)
	Name        string    `gorm:"type:varchar(191);not null"`    // 项目名称
	Description string    `gorm:"type:text"`                     // 项目描述
	OwnerID     uint      `gorm:"index;not null"`                // 项目创建者的用户 ID (外键关联 User.ID)
	TeamMembers []User    `gorm:"many2many:project_team_members"` // 项目团队成员 (多对多)
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// BeforeCreate 在创建前填充 UUID 主键 (MySQL 没有 gen_random_uuid 默认值)。
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
