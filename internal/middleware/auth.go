package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

var errMissingBearer = errors.New("authorization header missing bearer token")

// Auth 返回校验 JWT 的 Gin 中间件。校验通过后把 user_id 写入请求上下文，
// HTTP 处理器和 WebSocket 升级前的项目鉴权都从这个值取请求者身份。
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}
	secret := []byte(jwtSecret)

	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c)
		if err != nil {
			logrus.WithError(err).Warn("Auth: request rejected, no usable bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		userID, err := userIDFromToken(tokenStr, secret)
		if err != nil {
			logrus.WithError(err).Warn("Auth: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// bearerToken 从 Authorization 头提取 Bearer token，scheme 大小写不敏感。
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingBearer
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

// userIDFromToken 校验签名和有效期并提取 user_id claim。
// 签名算法固定为 HMAC，与 AuthService 签发的 HS256 token 对应。
func userIDFromToken(tokenStr string, secret []byte) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("token validation failed: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("token claims are not usable")
	}

	// JSON 数字 claim 解码为 float64，必须是正整数
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 || raw != float64(uint(raw)) {
		return 0, fmt.Errorf("user_id claim is not a positive integer: %v", claims["user_id"])
	}
	return uint(raw), nil
}
