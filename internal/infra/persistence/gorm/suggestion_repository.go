package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// GormSuggestionRepository 是 SuggestionRepository 接口的 GORM 实现
type GormSuggestionRepository struct {
	db *gorm.DB
}

// NewGormSuggestionRepository 创建 GormSuggestionRepository 实例
func NewGormSuggestionRepository(db *gorm.DB) *GormSuggestionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSuggestionRepository")
	}
	return &GormSuggestionRepository{db: db}
}

// SaveBatch 实现批量保存建议记录
// GORM 的 Create 方法支持传入切片进行批量插入
func (r *GormSuggestionRepository) SaveBatch(ctx context.Context, suggestions []domain.CodeSuggestion) error {
	if len(suggestions) == 0 {
		return nil // 没有需要保存的记录，直接返回
	}
	err := r.db.WithContext(ctx).Create(&suggestions).Error
	if err != nil {
		return fmt.Errorf("gorm: failed to save suggestion batch (size %d): %w", len(suggestions), err)
	}
	return nil
}

// FindBySuggestionSession 实现按创建时间降序返回某个建议频道会话的记录
func (r *GormSuggestionRepository) FindBySuggestionSession(ctx context.Context, sessionID string) ([]domain.CodeSuggestion, error) {
	var suggestions []domain.CodeSuggestion
	err := r.db.WithContext(ctx).
		Where("suggestion_session = ?", sessionID).
		Order("created_at desc").
		Find(&suggestions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find suggestions for session '%s': %w", sessionID, err)
	}
	return suggestions, nil
}
