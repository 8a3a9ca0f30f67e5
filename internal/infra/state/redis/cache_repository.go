package redisstate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// RedisCacheRepository 是 CacheRepository 接口的 Redis 实现
type RedisCacheRepository struct {
	client *redis.Client // 依赖 Redis 客户端
	// Redis key 的前缀，方便管理
	keyPrefix string
}

// NewRedisCacheRepository 创建 RedisCacheRepository 实例
func NewRedisCacheRepository(client *redis.Client, keyPrefix string) *RedisCacheRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisCacheRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "fside:" // 默认前缀
	}
	return &RedisCacheRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisCacheRepository) suggestionCacheKey(sessionID, contextHash string) string {
	return fmt.Sprintf("%ssuggest:%s:%s", r.keyPrefix, sessionID, contextHash)
}

// HashContext 将代码上下文归一为固定长度的缓存 key 片段。
func HashContext(codeContext string) string {
	sum := sha256.Sum256([]byte(codeContext))
	return hex.EncodeToString(sum[:16])
}

// --- CacheRepository Interface Implementation ---

// GetSuggestionCache 尝试从 Redis 缓存中获取建议结果。
func (r *RedisCacheRepository) GetSuggestionCache(ctx context.Context, sessionID string, contextHash string) ([]domain.CodeSuggestion, error) {
	key := r.suggestionCacheKey(sessionID, contextHash)
	payload, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// 映射为仓库定义的未找到错误
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get suggestion cache from %s: %w", key, err)
	}
	var suggestions []domain.CodeSuggestion
	if err := json.Unmarshal([]byte(payload), &suggestions); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal suggestion cache from %s: %w", key, err)
	}
	return suggestions, nil
}

// SetSuggestionCache 将建议结果存入 Redis 缓存。ttl 为 0 表示永不过期。
func (r *RedisCacheRepository) SetSuggestionCache(ctx context.Context, sessionID string, contextHash string, suggestions []domain.CodeSuggestion, ttl time.Duration) error {
	key := r.suggestionCacheKey(sessionID, contextHash)
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal suggestions for cache (session %s): %w", sessionID, err)
	}
	if err := r.client.Set(ctx, key, string(payload), ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set suggestion cache on key %s: %w", key, err)
	}
	return nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
func (r *RedisCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	// 使用 Pipeline 减少网络往返
	pipe := r.client.Pipeline()
	// INCR 命令原子地增加计数器并返回新值
	incrCmd := pipe.Incr(ctx, key)
	// 设置或刷新过期时间
	pipe.Expire(ctx, key, duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	// 计数大于限制即超限
	return count > int64(limit), nil
}
