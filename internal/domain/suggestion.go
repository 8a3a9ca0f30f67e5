package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AI 建议类型。
const (
	SuggestionCompletion = "completion"
	SuggestionAdvice     = "suggestion"
)

// CodeSuggestion 表示一条持久化的 AI 代码建议记录。
type CodeSuggestion struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey"`         // 建议记录的唯一标识符
	SuggestionSession string    `gorm:"type:varchar(191);index;not null"` // 建议频道的会话 ID
	UserID            uint      `gorm:"index;not null"`                   // 请求建议的用户 ID
	SuggestionType    string    `gorm:"type:varchar(20);not null"`        // completion | suggestion
	Context           string    `gorm:"type:text"`                        // 请求时的代码上下文
	Text              string    `gorm:"type:text;not null"`               // 建议内容
	Confidence        float64   `gorm:"not null"`                         // 模型置信度 (0~1)
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}

// BeforeCreate 在创建前填充 UUID 主键。
func (s *CodeSuggestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
