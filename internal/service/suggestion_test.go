package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository/mocks"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"
)

// stubInference 是测试用的 InferenceClient 实现
type stubInference struct {
	enabled bool
	text    string
	err     error
}

func (s *stubInference) Complete(ctx context.Context, codeContext string) (string, error) {
	return s.text, s.err
}

func (s *stubInference) Enabled() bool { return s.enabled }

func TestSuggestionService_Suggest_InferenceSuccess(t *testing.T) {
	// Arrange
	mockCacheRepo := new(mocks.CacheRepository)
	inference := &stubInference{enabled: true, text: "return nil"}
	suggestionService := service.NewSuggestionService(mockCacheRepo, inference, nil, time.Hour)
	ctx := context.Background()

	mockCacheRepo.On("GetSuggestionCache", ctx, "sess-1", mock.AnythingOfType("string")).
		Return(nil, repository.ErrNotFound).Once()
	mockCacheRepo.On("SetSuggestionCache", ctx, "sess-1", mock.AnythingOfType("string"),
		mock.AnythingOfType("[]domain.CodeSuggestion"), time.Hour).Return(nil).Once()

	// Act
	suggestions, err := suggestionService.Suggest(ctx, "sess-1", uint(1), "func main() {")

	// Assert
	assert.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, domain.SuggestionCompletion, suggestions[0].SuggestionType)
	assert.Equal(t, "return nil", suggestions[0].Text)
	assert.Equal(t, domain.SuggestionAdvice, suggestions[1].SuggestionType)
	mockCacheRepo.AssertExpectations(t)
}

func TestSuggestionService_Suggest_InferenceFailureFallsBack(t *testing.T) {
	// Arrange: 推理服务失败不向上传播，退回静态建议
	mockCacheRepo := new(mocks.CacheRepository)
	inference := &stubInference{enabled: true, err: errors.New("inference timeout")}
	suggestionService := service.NewSuggestionService(mockCacheRepo, inference, nil, time.Hour)
	ctx := context.Background()

	mockCacheRepo.On("GetSuggestionCache", ctx, "sess-2", mock.AnythingOfType("string")).
		Return(nil, repository.ErrNotFound).Once()
	mockCacheRepo.On("SetSuggestionCache", ctx, "sess-2", mock.AnythingOfType("string"),
		mock.AnythingOfType("[]domain.CodeSuggestion"), time.Hour).Return(nil).Once()

	// Act
	suggestions, err := suggestionService.Suggest(ctx, "sess-2", uint(1), "some context")

	// Assert
	assert.NoError(t, err, "推理失败不是调用方的错误")
	require.Len(t, suggestions, 2)
	assert.Equal(t, "const [state, setState] = useState()", suggestions[0].Text)
	assert.InDelta(t, 0.9, suggestions[0].Confidence, 1e-9)
	assert.Equal(t, "Add error handling", suggestions[1].Text)
	assert.InDelta(t, 0.8, suggestions[1].Confidence, 1e-9)
}

func TestSuggestionService_Suggest_DisabledProviderUsesFallback(t *testing.T) {
	// Arrange: 未配置推理服务时直接使用静态建议，Complete 不应被触碰
	mockCacheRepo := new(mocks.CacheRepository)
	inference := &stubInference{enabled: false, err: errors.New("should never be called")}
	suggestionService := service.NewSuggestionService(mockCacheRepo, inference, nil, time.Hour)
	ctx := context.Background()

	mockCacheRepo.On("GetSuggestionCache", ctx, "sess-3", mock.AnythingOfType("string")).
		Return(nil, repository.ErrNotFound).Once()
	mockCacheRepo.On("SetSuggestionCache", ctx, "sess-3", mock.AnythingOfType("string"),
		mock.AnythingOfType("[]domain.CodeSuggestion"), time.Hour).Return(nil).Once()

	// Act
	suggestions, err := suggestionService.Suggest(ctx, "sess-3", uint(9), "ctx")

	// Assert
	assert.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, domain.SuggestionCompletion, suggestions[0].SuggestionType)
	assert.Equal(t, uint(9), suggestions[0].UserID)
}

func TestSuggestionService_Suggest_CacheHitSkipsInference(t *testing.T) {
	// Arrange: 缓存命中时推理服务和缓存写入都不发生
	mockCacheRepo := new(mocks.CacheRepository)
	inference := &stubInference{enabled: true, err: errors.New("should never be called")}
	suggestionService := service.NewSuggestionService(mockCacheRepo, inference, nil, time.Hour)
	ctx := context.Background()

	cached := []domain.CodeSuggestion{
		{SuggestionSession: "sess-4", SuggestionType: domain.SuggestionCompletion, Text: "cached", Confidence: 0.9},
	}
	mockCacheRepo.On("GetSuggestionCache", ctx, "sess-4", mock.AnythingOfType("string")).
		Return(cached, nil).Once()

	// Act
	suggestions, err := suggestionService.Suggest(ctx, "sess-4", uint(1), "same context")

	// Assert
	assert.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "cached", suggestions[0].Text)
	mockCacheRepo.AssertExpectations(t)
	mockCacheRepo.AssertNotCalled(t, "SetSuggestionCache",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggestionService_Suggest_CacheWriteFailureIsNonFatal(t *testing.T) {
	// Arrange: 缓存写入失败只记录，建议照常返回
	mockCacheRepo := new(mocks.CacheRepository)
	inference := &stubInference{enabled: false}
	suggestionService := service.NewSuggestionService(mockCacheRepo, inference, nil, time.Hour)
	ctx := context.Background()

	mockCacheRepo.On("GetSuggestionCache", ctx, "sess-5", mock.AnythingOfType("string")).
		Return(nil, repository.ErrNotFound).Once()
	mockCacheRepo.On("SetSuggestionCache", ctx, "sess-5", mock.AnythingOfType("string"),
		mock.AnythingOfType("[]domain.CodeSuggestion"), time.Hour).
		Return(errors.New("redis down")).Once()

	// Act
	suggestions, err := suggestionService.Suggest(ctx, "sess-5", uint(1), "ctx")

	// Assert
	assert.NoError(t, err)
	assert.Len(t, suggestions, 2)
}
