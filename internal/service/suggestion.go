package service

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	redisstate "github.com/SIRI-bit-tech/FSIDE/internal/infra/state/redis"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/tasks"
)

// InferenceClient 是外部托管模型推理服务的抽象：
// 输入代码上下文，输出补全文本或失败。对可用性和延迟不做任何假设。
type InferenceClient interface {
	Complete(ctx context.Context, codeContext string) (string, error)
	Enabled() bool
}

// TaskEnqueuer 抽象了后台任务的入队操作 (*asynq.Client 满足该接口)。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SuggestionService 负责 AI 代码建议：缓存查询、调用推理服务、
// 降级为静态建议、以及通过后台任务持久化结果。
type SuggestionService struct {
	cacheRepo repository.CacheRepository
	inference InferenceClient
	enqueuer  TaskEnqueuer
	cacheTTL  time.Duration
}

// NewSuggestionService 创建 SuggestionService 实例。
// enqueuer 可以为 nil (例如在测试中)，此时跳过后台持久化。
func NewSuggestionService(cacheRepo repository.CacheRepository, inference InferenceClient, enqueuer TaskEnqueuer, cacheTTL time.Duration) *SuggestionService {
	if cacheRepo == nil {
		panic("CacheRepository cannot be nil for SuggestionService")
	}
	if inference == nil {
		panic("InferenceClient cannot be nil for SuggestionService")
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SuggestionService{
		cacheRepo: cacheRepo,
		inference: inference,
		enqueuer:  enqueuer,
		cacheTTL:  cacheTTL,
	}
}

// Suggest 为一次 request_suggestions 请求生成建议列表。
// 顺序：缓存 -> 推理服务 -> 静态降级。推理服务失败从不向上传播错误，
// 只会让结果退回静态建议 —— 回复永远有内容，连接不会因此出错。
func (s *SuggestionService) Suggest(ctx context.Context, sessionID string, userID uint, codeContext string) ([]domain.CodeSuggestion, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"suggestion_session": sessionID,
		"user_id":            userID,
	})

	contextHash := redisstate.HashContext(codeContext)

	// 1. 缓存命中直接返回，不再打扰推理服务
	cached, err := s.cacheRepo.GetSuggestionCache(ctx, sessionID, contextHash)
	if err == nil {
		logCtx.Debug("Suggestion cache hit")
		return cached, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Warn("Suggestion cache lookup failed, continuing without cache")
	}

	// 2. 调用推理服务 (已配置时)
	suggestions := s.generate(ctx, sessionID, userID, codeContext, logCtx)

	// 3. 写缓存，失败只记录
	if err := s.cacheRepo.SetSuggestionCache(ctx, sessionID, contextHash, suggestions, s.cacheTTL); err != nil {
		logCtx.WithError(err).Warn("Failed to cache suggestions")
	}

	// 4. 后台持久化，不在热路径上等待
	s.enqueuePersistence(suggestions, logCtx)

	return suggestions, nil
}

// generate 组装建议列表：推理服务的补全 + 静态建议，失败时整体降级。
func (s *SuggestionService) generate(ctx context.Context, sessionID string, userID uint, codeContext string, logCtx *logrus.Entry) []domain.CodeSuggestion {
	if s.inference.Enabled() {
		text, err := s.inference.Complete(ctx, codeContext)
		if err != nil {
			logCtx.WithError(err).Warn("Inference provider failed, falling back to static suggestions")
		} else if text != "" {
			return []domain.CodeSuggestion{
				{
					SuggestionSession: sessionID,
					UserID:            userID,
					SuggestionType:    domain.SuggestionCompletion,
					Context:           codeContext,
					Text:              text,
					Confidence:        0.9,
				},
				staticAdviceSuggestion(sessionID, userID, codeContext),
			}
		}
	}
	return fallbackSuggestions(sessionID, userID, codeContext)
}

// fallbackSuggestions 返回推理服务不可用时的静态建议集。
func fallbackSuggestions(sessionID string, userID uint, codeContext string) []domain.CodeSuggestion {
	return []domain.CodeSuggestion{
		{
			SuggestionSession: sessionID,
			UserID:            userID,
			SuggestionType:    domain.SuggestionCompletion,
			Context:           codeContext,
			Text:              "const [state, setState] = useState()",
			Confidence:        0.9,
		},
		staticAdviceSuggestion(sessionID, userID, codeContext),
	}
}

func staticAdviceSuggestion(sessionID string, userID uint, codeContext string) domain.CodeSuggestion {
	return domain.CodeSuggestion{
		SuggestionSession: sessionID,
		UserID:            userID,
		SuggestionType:    domain.SuggestionAdvice,
		Context:           codeContext,
		Text:              "Add error handling",
		Confidence:        0.8,
	}
}

// enqueuePersistence 将建议批量持久化任务放入后台队列。
func (s *SuggestionService) enqueuePersistence(suggestions []domain.CodeSuggestion, logCtx *logrus.Entry) {
	if s.enqueuer == nil || len(suggestions) == 0 {
		return
	}
	payload, err := tasks.NewSuggestionPersistenceTask(suggestions)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to build suggestion persistence payload")
		return
	}
	task := asynq.NewTask(tasks.TypeSuggestionPersistence, payload)
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue("low")); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue suggestion persistence task")
	}
}
