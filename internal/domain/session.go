package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CollaborationSession 表示一个项目的实时协作会话。
// 一个项目随时间可以有多个会话记录，但同一时刻最多只有一个 is_active 的会话。
// 不变量：会话处于活跃状态当且仅当参与者数量 >= 1；最后一个参与者离开时会话被
// 标记为不活跃（只停用，不删除）。
type CollaborationSession struct {
	ID           uuid.UUID         `gorm:"type:char(36);primaryKey"`                                         // 会话唯一标识符 (UUID 主键)
	ProjectID    uuid.UUID         `gorm:"type:char(36);uniqueIndex:uniq_project_active,priority:1;not null"` // 所属项目 ID (外键关联 Project.ID)
	Participants []User            `gorm:"many2many:session_participants"`                                   // 当前参与者集合 (多对多，可增可减)
	ActiveFile   string            `gorm:"type:varchar(500)"`                                                // 当前活跃文件路径 (仅供参考，后写者覆盖)
	SessionData  datatypes.JSONMap `gorm:"type:json"`                                                        // 自由格式的会话元数据
	IsActive     bool              `gorm:"index"`                                                            // 活跃标志
	// ActiveMarker 在会话活跃时为 true，停用时置 NULL。
	// (project_id, active_marker) 上的唯一索引在数据库层强制
	// "每个项目同一时刻最多一个活跃会话"；NULL 不参与唯一约束，
	// 历史 (已停用) 会话可以有任意多条。
	ActiveMarker *bool     `gorm:"uniqueIndex:uniq_project_active,priority:2"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// BeforeCreate 在创建前填充 UUID 主键、空的元数据和活跃标记。
func (s *CollaborationSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SessionData == nil {
		s.SessionData = datatypes.JSONMap{}
	}
	if s.IsActive && s.ActiveMarker == nil {
		marker := true
		s.ActiveMarker = &marker
	}
	return nil
}
