package repository

import (
	"context"
	"time"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// CacheRepository 定义了与实时状态/缓存相关的操作，通常由 Redis 实现。
type CacheRepository interface {
	// === AI Suggestion Cache ===

	// GetSuggestionCache 尝试从缓存中获取某段上下文的建议结果。
	// 缓存未命中时返回 ErrNotFound。
	GetSuggestionCache(ctx context.Context, sessionID string, contextHash string) ([]domain.CodeSuggestion, error)

	// SetSuggestionCache 将建议结果写入缓存。ttl 为 0 表示不过期。
	SetSuggestionCache(ctx context.Context, sessionID string, contextHash string, suggestions []domain.CodeSuggestion, ttl time.Duration) error

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error)
}
