package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository/mocks"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"
)

// --- 测试 Register 方法 ---

func TestAuthService_Register_HashesPasswordAndClearsHash(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "test-secret", 1)
	require.NoError(t, err)
	ctx := context.Background()
	password := "StrongPass123"

	mockUserRepo.On("FindByUsername", ctx, "newbie").
		Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		// 入库的必须是 bcrypt 哈希，不能是明文
		return user.Username == "newbie" &&
			user.Email == "newbie@example.com" &&
			bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 5
		}).
		Return(nil).Once()

	// Act
	user, err := authService.Register(ctx, "newbie", password, "newbie@example.com")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, uint(5), user.ID)
	assert.Empty(t, user.Password, "返回的用户对象不应携带密码哈希")

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_RequiresValidEmail(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 1)
	ctx := context.Background()

	// Act: 缺邮箱和坏邮箱都在触达仓库之前被拒绝
	_, errMissing := authService.Register(ctx, "alice", "password1", "")
	_, errInvalid := authService.Register(ctx, "alice", "password1", "not-an-email")

	// Assert
	assert.True(t, errors.Is(errMissing, service.ErrRegistrationFailed))
	assert.True(t, errors.Is(errInvalid, service.ErrRegistrationFailed))
	mockUserRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "existing").
		Return(&domain.User{ID: 10, Username: "existing"}, nil).Once()

	// Act
	_, err := authService.Register(ctx, "existing", "password1", "existing@example.com")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_DuplicateOnSave(t *testing.T) {
	// Arrange: 预检查通过，但 Save 撞上数据库唯一约束 (并发注册或邮箱重复)
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "bob").
		Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()

	// Act
	_, err := authService.Register(ctx, "bob", "password1", "bob@example.com")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
}

// --- 测试 Login 方法 ---

func TestAuthService_Login_IssuesVerifiableToken(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 7, Username: "alice", Password: string(hash)}, nil).Once()

	// Act
	tokenStr, err := authService.Login(ctx, "alice", "password123")

	// Assert: token 能用同一密钥验证，且携带正确的 user_id 和未过期的 exp
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(7), claims["user_id"])
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Greater(t, exp, float64(time.Now().Unix()))

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "ghost").
		Return(nil, repository.ErrUserNotFound).Once()

	// Act
	token, err := authService.Login(ctx, "ghost", "password")

	// Assert
	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 7, Username: "alice", Password: string(hash)}, nil).Once()

	// Act
	token, err := authService.Login(ctx, "alice", "wrong-password")

	// Assert: 与未知用户的返回不可区分
	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertExpectations(t)
}
