package tasks

import (
	"encoding/json"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

// 定义任务类型常量
const (
	TypeSuggestionPersistence = "suggestion:persist"  // AI 建议持久化任务
	TypeSessionReconcile      = "session:reconcile"   // 僵尸会话清理任务 (周期性)
)

// SuggestionPersistencePayload 定义了建议持久化任务的数据结构
type SuggestionPersistencePayload struct {
	Suggestions []domain.CodeSuggestion
}

// NewSuggestionPersistenceTask 创建建议持久化任务的 payload。
func NewSuggestionPersistenceTask(suggestions []domain.CodeSuggestion) ([]byte, error) {
	payload := SuggestionPersistencePayload{Suggestions: suggestions}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}

// NewSessionReconcileTask 创建僵尸会话清理任务的 payload (无参数)。
func NewSessionReconcileTask() ([]byte, error) {
	return json.Marshal(struct{}{})
}
