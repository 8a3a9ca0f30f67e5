package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// EditRepository 定义了实时编辑日志的存储和查询。
// 日志是 append-only 的：不暴露任何更新或删除操作。
type EditRepository interface {
	// Save 追加一条编辑记录。
	Save(ctx context.Context, edit *domain.RealtimeEdit) error

	// FindBySession 返回会话的全部编辑记录，按时间戳升序。
	// 本层不做分页，调用方按需截断。
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.RealtimeEdit, error)
}
