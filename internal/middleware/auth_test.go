package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIRI-bit-tech/FSIDE/internal/middleware"
)

const testSecret = "middleware-test-secret"

// newAuthRouter 搭一条带 Auth 中间件的测试路由，把上下文里的 user_id 回显出来。
func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", middleware.Auth(testSecret), func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

// signTestToken 用给定密钥和 claims 签发 HS256 token。
func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidTokenSetsUserID(t *testing.T) {
	router := newAuthRouter()
	token := signTestToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rec := protectedRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 42}`, rec.Body.String())
}

func TestAuth_BearerSchemeIsCaseInsensitive(t *testing.T) {
	router := newAuthRouter()
	token := signTestToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rec := protectedRequest(router, "bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingHeaderRejected(t *testing.T) {
	router := newAuthRouter()

	rec := protectedRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MalformedHeaderRejected(t *testing.T) {
	router := newAuthRouter()

	for _, header := range []string{"Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "garbage"} {
		rec := protectedRequest(router, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q should be rejected", header)
	}
}

func TestAuth_ExpiredTokenRejected(t *testing.T) {
	router := newAuthRouter()
	token := signTestToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	rec := protectedRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSignatureRejected(t *testing.T) {
	router := newAuthRouter()
	token := signTestToken(t, "some-other-secret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rec := protectedRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidUserIDClaimRejected(t *testing.T) {
	router := newAuthRouter()

	// 缺失、非数字、非正数的 user_id 都不能放行
	for name, claims := range map[string]jwt.MapClaims{
		"missing":      {"exp": time.Now().Add(time.Hour).Unix()},
		"non-numeric":  {"user_id": "42", "exp": time.Now().Add(time.Hour).Unix()},
		"zero":         {"user_id": 0, "exp": time.Now().Add(time.Hour).Unix()},
		"negative":     {"user_id": -3, "exp": time.Now().Add(time.Hour).Unix()},
		"non-integral": {"user_id": 1.5, "exp": time.Now().Add(time.Hour).Unix()},
	} {
		token := signTestToken(t, testSecret, claims)
		rec := protectedRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "claim case %q should be rejected", name)
	}
}
