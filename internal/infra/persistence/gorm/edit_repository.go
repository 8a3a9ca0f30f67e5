package gormpersistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// GormEditRepository 是 EditRepository 接口的 GORM 实现
type GormEditRepository struct {
	db *gorm.DB
}

// NewGormEditRepository 创建 GormEditRepository 实例
func NewGormEditRepository(db *gorm.DB) *GormEditRepository {
	if db == nil {
		panic("database connection cannot be nil for GormEditRepository")
	}
	return &GormEditRepository{db: db}
}

// Save 实现追加一条编辑记录
func (r *GormEditRepository) Save(ctx context.Context, edit *domain.RealtimeEdit) error {
	err := r.db.WithContext(ctx).Create(edit).Error
	if err != nil {
		return fmt.Errorf("gorm: save edit (session %s, user %d): %w", edit.SessionID, edit.UserID, err)
	}
	return nil
}

// FindBySession 实现按时间戳升序返回会话的全部编辑记录。
// timestamp 是毫秒精度，同一毫秒写入的记录按 id 决出稳定顺序。
func (r *GormEditRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.RealtimeEdit, error) {
	var edits []domain.RealtimeEdit
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp asc").
		Order("id asc").
		Find(&edits).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find edits for session %s: %w", sessionID, err)
	}
	return edits, nil
}
