package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
)

// RateLimit 返回按客户端 IP 限流的 Gin 中间件。
// 计数器通过 CacheRepository 存放在 Redis，多实例部署时共享同一份额度。
// 计数器不可用时放行请求 (fail-open)。
func RateLimit(cache repository.CacheRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if cache == nil {
		panic("CacheRepository cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 || window <= 0 {
		panic("RateLimit requires a positive maxRequests and window")
	}

	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()
		limited, err := cache.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logrus.WithError(err).Error("RateLimit: counter unavailable, letting request through")
			c.Next()
			return
		}
		if limited {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
