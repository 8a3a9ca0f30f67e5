package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/tasks"
)

// SuggestionPersistenceHandler 处理 AI 建议的异步持久化任务。
// 建议先从缓存/推理返回给用户，落库放在低优先级队列里慢慢做。
type SuggestionPersistenceHandler struct {
	suggestionRepo repository.SuggestionRepository
}

// NewSuggestionPersistenceHandler 创建 Handler 实例
func NewSuggestionPersistenceHandler(suggestionRepo repository.SuggestionRepository) *SuggestionPersistenceHandler {
	if suggestionRepo == nil {
		panic("SuggestionRepository cannot be nil for SuggestionPersistenceHandler")
	}
	return &SuggestionPersistenceHandler{suggestionRepo: suggestionRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *SuggestionPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
	logCtx.Info("Processing suggestion persistence task...")

	var payload tasks.SuggestionPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if len(payload.Suggestions) == 0 {
		logCtx.Debug("Empty suggestion batch, nothing to persist")
		return nil
	}

	if err := h.suggestionRepo.SaveBatch(ctx, payload.Suggestions); err != nil {
		logCtx.WithError(err).Errorf("Failed to save suggestion batch (size %d)", len(payload.Suggestions))
		return fmt.Errorf("failed to save suggestion batch: %w", err)
	}

	logCtx.WithField("batch_size", len(payload.Suggestions)).Info("Suggestion persistence task processed successfully")
	return nil
}
