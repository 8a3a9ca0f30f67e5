package repository

import (
	"context"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// SuggestionRepository 定义了 AI 代码建议记录的存储和查询。
type SuggestionRepository interface {
	// SaveBatch 批量保存建议记录 (由后台任务调用，不在热路径上)。
	SaveBatch(ctx context.Context, suggestions []domain.CodeSuggestion) error

	// FindBySuggestionSession 返回某个建议频道会话的全部记录，按创建时间降序。
	FindBySuggestionSession(ctx context.Context, sessionID string) ([]domain.CodeSuggestion, error)
}
