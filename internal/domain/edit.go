package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 编辑操作类型。
const (
	OpInsert  = "insert"
	OpDelete  = "delete"
	OpReplace = "replace"
	OpCursor  = "cursor"
)

// IsValidOperationType 检查操作类型是否是已知的四种之一。
func IsValidOperationType(op string) bool {
	switch op {
	case OpInsert, OpDelete, OpReplace, OpCursor:
		return true
	}
	return false
}

// Position 表示编辑操作发生的位置。Extra 保留原始 JSON 中的其他字段，
// 作为真正需要扩展时的逃生通道。
type Position struct {
	Line   int                    `json:"line"`
	Column int                    `json:"column"`
	Extra  map[string]interface{} `json:"-"`
}

// UnmarshalJSON 除了标准的 line/column 外，把其余字段收进 Extra。
func (p *Position) UnmarshalJSON(data []byte) error {
	type plain Position
	var parsed plain
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "line")
	delete(raw, "column")
	if len(raw) > 0 {
		parsed.Extra = raw
	}
	*p = Position(parsed)
	return nil
}

// RealtimeEdit 表示一条实时编辑操作记录。
// 日志是 append-only 的：按持久化时间戳排序，写入后永不修改或重排；
// 只有级联删除所属会话时才会被删除（正常流程只停用会话，不删除）。
type RealtimeEdit struct {
	ID            uuid.UUID            `gorm:"type:char(36);primaryKey"`     // 操作记录的唯一标识符
	SessionID     uuid.UUID            `gorm:"type:char(36);index;not null"` // 所属会话 ID (外键，级联删除)
	Session       CollaborationSession `gorm:"constraint:OnDelete:CASCADE"`
	UserID        uint                 `gorm:"index;not null"`             // 执行操作的用户 ID
	FilePath      string               `gorm:"type:varchar(500);not null"` // 操作的文件路径
	OperationType string               `gorm:"type:varchar(10);not null"`  // insert | delete | replace | cursor
	Position      datatypes.JSON       `gorm:"type:json"`                  // 位置信息 {line, column, ...}，对日志本身不透明
	Content       string               `gorm:"type:text"`                  // 内容载荷，delete/cursor 可为空
	Timestamp     time.Time            `gorm:"index;not null"`             // 操作时间戳，日志的排序依据
}

// BeforeCreate 在创建前填充 UUID 主键和时间戳。
func (e *RealtimeEdit) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// ParsePosition 将 Position 字段 (JSON) 解析为结构化的 Position。
func (e *RealtimeEdit) ParsePosition() (Position, error) {
	var pos Position
	if len(e.Position) == 0 {
		return pos, nil
	}
	if err := json.Unmarshal(e.Position, &pos); err != nil {
		return pos, fmt.Errorf("failed to unmarshal edit position: %w", err)
	}
	return pos, nil
}
