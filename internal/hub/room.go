package hub

import "github.com/google/uuid"

// RoomKind 区分两个互不相交的房间命名空间。
type RoomKind string

const (
	// RoomCollaboration 协作房间，按项目 ID 组织。
	RoomCollaboration RoomKind = "collaboration"
	// RoomSuggestions AI 建议房间，按建议会话 ID 组织。
	RoomSuggestions RoomKind = "ai_suggestions"
)

// RoomID 是房间的复合键。两个命名空间的房间永不交互。
type RoomID struct {
	Kind RoomKind
	Key  string
}

// CollaborationRoom 返回项目协作房间的 RoomID。
func CollaborationRoom(projectID uuid.UUID) RoomID {
	return RoomID{Kind: RoomCollaboration, Key: projectID.String()}
}

// SuggestionsRoom 返回 AI 建议房间的 RoomID。
func SuggestionsRoom(sessionID string) RoomID {
	return RoomID{Kind: RoomSuggestions, Key: sessionID}
}
