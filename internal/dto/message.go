// Package dto 定义了 WebSocket 消息信封 (入站和出站) 的数据结构。
package dto

import "encoding/json"

// 入站消息类型。
const (
	TypeEditOperation      = "edit_operation"
	TypeCursorPosition     = "cursor_position"
	TypeFileChange         = "file_change"
	TypeRequestSuggestions = "request_suggestions"
)

// 出站消息类型。
const (
	TypeAISuggestions = "ai_suggestions"
)

// IncomingMessage 表示客户端发来的带类型标签的消息信封。
// 除 Type 外的字段按消息类型选用；未知字段被忽略。
type IncomingMessage struct {
	Type          string          `json:"type"`
	FilePath      string          `json:"file_path,omitempty"`
	OperationType string          `json:"operation_type,omitempty"` // insert | delete | replace | cursor
	Position      json.RawMessage `json:"position,omitempty"`       // {line, column, ...}
	Content       string          `json:"content,omitempty"`
	Context       string          `json:"context,omitempty"` // request_suggestions 的代码上下文
}

// OutgoingMessage 表示广播给房间成员的消息信封。
// Data 原样携带触发广播的入站消息，客户端按 User 区分来源。
type OutgoingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	User string          `json:"user"`
}

// Suggestion 表示回复给请求方的单条 AI 建议。
type Suggestion struct {
	Type       string  `json:"type"` // completion | suggestion
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SuggestionsReply 表示只发给请求方的 AI 建议回复 (不广播)。
type SuggestionsReply struct {
	Type        string       `json:"type"` // 恒为 ai_suggestions
	Suggestions []Suggestion `json:"suggestions"`
	Context     string       `json:"context"`
}
