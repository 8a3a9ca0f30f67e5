package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/dto"
	"gorm.io/datatypes"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// SessionRegistry 是 Hub 依赖的会话注册表 (由 service.SessionService 实现)。
type SessionRegistry interface {
	Join(ctx context.Context, projectID uuid.UUID, userID uint) (*domain.CollaborationSession, error)
	Leave(ctx context.Context, projectID uuid.UUID, userID uint) error
	SetActiveFile(ctx context.Context, projectID uuid.UUID, filePath string) error
}

// EditLog 是 Hub 依赖的编辑日志 (由 service.EditService 实现)。
type EditLog interface {
	Append(ctx context.Context, projectID uuid.UUID, userID uint, filePath, operationType string, position datatypes.JSON, content string) (*domain.RealtimeEdit, error)
}

// SuggestionProvider 是 Hub 依赖的 AI 建议服务 (由 service.SuggestionService 实现)。
type SuggestionProvider interface {
	Suggest(ctx context.Context, sessionID string, userID uint, codeContext string) ([]domain.CodeSuggestion, error)
}

// Hub 维护活跃客户端集合 (按房间组织) 并负责消息的分类处理和广播扇出。
// 房间成员关系只存在于进程内存中，进程重启后从零重建 —— 它和持久化的
// 会话参与者集合不是一回事。
type Hub struct {
	// 客户端集合，按 RoomID 组织
	// map[RoomID]map[*Client]bool
	rooms map[RoomID]map[*Client]bool
	// 保护 rooms map 的读写锁
	roomsMu sync.RWMutex

	// 注入的依赖，用于处理业务逻辑
	registry    SessionRegistry
	editLog     EditLog
	suggestions SuggestionProvider
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(registry SessionRegistry, editLog EditLog, suggestions SuggestionProvider) *Hub {
	// 启动时检查依赖注入是否有效
	if registry == nil {
		panic("SessionRegistry cannot be nil for Hub")
	}
	if editLog == nil {
		panic("EditLog cannot be nil for Hub")
	}
	if suggestions == nil {
		panic("SuggestionProvider cannot be nil for Hub")
	}
	return &Hub{
		rooms:       make(map[RoomID]map[*Client]bool),
		registry:    registry,
		editLog:     editLog,
		suggestions: suggestions,
	}
}

// Attach 将客户端注册到其房间 (房间在第一次注册时惰性创建)，
// 协作房间的客户端同时加入持久化的会话注册表。
// 注册表失败不阻止进入房间：广播依然工作，只是会话记录缺失。
func (h *Hub) Attach(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to attach a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_kind": client.room.Kind,
		"room_key":  client.room.Key,
		"user_id":   client.userID,
	})

	h.roomsMu.Lock()
	if _, ok := h.rooms[client.room]; !ok {
		h.rooms[client.room] = make(map[*Client]bool)
		logCtx.Info("Client list created for new room")
	}
	h.rooms[client.room][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	if client.room.Kind == RoomCollaboration {
		if _, err := h.registry.Join(context.Background(), client.projectID, client.userID); err != nil {
			logCtx.WithError(err).Error("Failed to join collaboration session, client stays in room")
		}
	}
}

// Detach 将客户端从其房间移除；房间变空时被回收。
// 协作房间的客户端同时离开持久化的会话注册表。
// 该方法是幂等的：重复调用对已经移除的客户端是 no-op。
func (h *Hub) Detach(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to detach a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_kind": client.room.Kind,
		"room_key":  client.room.Key,
		"user_id":   client.userID,
	})

	removed := false
	h.roomsMu.Lock()
	if roomClients, roomExists := h.rooms[client.room]; roomExists {
		if _, clientExists := roomClients[client]; clientExists {
			delete(roomClients, client)
			removed = true

			// 关闭此客户端的 send 通道，这将导致其 WritePump 退出。
			// 成员表保证了每个客户端只走到这里一次。
			close(client.send)

			// 房间变空则从 Hub 中删除记录，避免无限增长
			if len(roomClients) == 0 {
				delete(h.rooms, client.room)
				logCtx.Info("Room empty, removed from Hub")
			}
		}
	}
	h.roomsMu.Unlock()

	if !removed {
		logCtx.Debug("Client already detached, nothing to do")
		return
	}
	logCtx.Info("Client unregistered from Hub")

	if client.room.Kind == RoomCollaboration {
		if err := h.registry.Leave(context.Background(), client.projectID, client.userID); err != nil {
			logCtx.WithError(err).Error("Failed to leave collaboration session during detach")
		}
	}
}

// Broadcast 将消息发送给指定房间的所有客户端，排除 exclude (可为 nil)。
// 对单个接收者使用非阻塞发送：慢的或已断开的客户端被跳过，
// 绝不阻塞对其他成员的投递，也绝不报为致命错误。
func (h *Hub) Broadcast(room RoomID, message []byte, exclude *Client) {
	// 发送期间持有读锁：Detach 在写锁内关闭 send 通道，
	// 读锁保证这里的非阻塞发送不会碰到已关闭的通道。
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	roomClients, ok := h.rooms[room]
	if !ok || len(roomClients) == 0 {
		return
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"room_kind":       room.Kind,
		"room_key":        room.Key,
		"message_size":    len(message),
		"recipient_count": len(roomClients),
	})
	logCtx.Debug("Broadcasting message to clients")

	for client := range roomClients {
		if client == exclude {
			continue
		}
		select {
		case client.send <- message:
			// 消息成功放入该客户端的发送队列
		default:
			// 发送通道已满，跳过该客户端，由其 WritePump 或清理任务善后
			logCtx.WithField("receiver_user_id", client.userID).
				Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// trySend 在确认客户端仍在房间内的前提下非阻塞发送一条消息。
// 客户端已断开时返回 false，发送被静默丢弃。
func (h *Hub) trySend(client *Client, message []byte) bool {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	clients, ok := h.rooms[client.room]
	if !ok || !clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ActiveCollabProjects 返回当前有在线连接的项目 ID 集合，
// 供周期性的僵尸会话清理任务使用。
func (h *Hub) ActiveCollabProjects() map[uuid.UUID]bool {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	live := make(map[uuid.UUID]bool)
	for room, clients := range h.rooms {
		if room.Kind != RoomCollaboration || len(clients) == 0 {
			continue
		}
		projectID, err := uuid.Parse(room.Key)
		if err != nil {
			continue
		}
		live[projectID] = true
	}
	return live
}

// Dispatch 处理一个客户端的单条入站消息。
// 它在客户端的 ReadPump goroutine 中同步执行：同一连接的消息严格按
// 到达顺序处理，不同连接之间并发互不干扰。任何失败都被限制在这一条
// 消息内，绝不影响共享房间的其他连接。
func (h *Hub) Dispatch(client *Client, raw []byte) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_kind": client.room.Kind,
		"room_key":  client.room.Key,
		"user_id":   client.userID,
	})

	var msg dto.IncomingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// 无法解析的消息直接丢弃，连接保持打开
		logCtx.WithError(err).Warn("Dropping malformed message")
		return
	}
	if msg.Type == "" {
		logCtx.Warn("Dropping message without type")
		return
	}

	switch client.room.Kind {
	case RoomCollaboration:
		h.dispatchCollaboration(client, &msg, raw, logCtx)
	case RoomSuggestions:
		if msg.Type == dto.TypeRequestSuggestions {
			// 推理服务可能很慢，放到独立 goroutine，只回复请求方
			go h.handleSuggestionRequest(client, &msg)
		} else {
			logCtx.WithField("type", msg.Type).Debug("Ignoring unknown message type in suggestions room")
		}
	}
}

// dispatchCollaboration 按消息类型分发协作房间的消息。
func (h *Hub) dispatchCollaboration(client *Client, msg *dto.IncomingMessage, raw []byte, logCtx *logrus.Entry) {
	switch msg.Type {
	case dto.TypeEditOperation:
		h.handleEditOperation(client, msg, raw, logCtx)
	case dto.TypeCursorPosition:
		// 光标位置只广播，不持久化
		h.broadcastEnvelope(client, dto.TypeCursorPosition, raw)
	case dto.TypeFileChange:
		h.handleFileChange(client, msg, raw, logCtx)
	default:
		// 未知类型是 no-op，绝不让连接出错
		logCtx.WithField("type", msg.Type).Debug("Ignoring unknown message type")
	}
}

// handleEditOperation 先持久化编辑操作，再广播给整个房间 (含发送者)。
// 持久化失败被吞掉：用户可见的后果只是这条编辑没有进日志，
// 广播照常进行，在线协作者保持同步。
func (h *Hub) handleEditOperation(client *Client, msg *dto.IncomingMessage, raw []byte, logCtx *logrus.Entry) {
	_, err := h.editLog.Append(
		context.Background(),
		client.projectID,
		client.userID,
		msg.FilePath,
		msg.OperationType,
		datatypes.JSON(msg.Position),
		msg.Content,
	)
	if err != nil {
		logCtx.WithError(err).Debug("Edit not persisted, broadcasting anyway")
	}
	h.broadcastEnvelope(client, dto.TypeEditOperation, raw)
}

// handleFileChange 更新会话的活跃文件 (仅供参考，失败被吞掉)，然后广播。
func (h *Hub) handleFileChange(client *Client, msg *dto.IncomingMessage, raw []byte, logCtx *logrus.Entry) {
	if msg.FilePath != "" {
		if err := h.registry.SetActiveFile(context.Background(), client.projectID, msg.FilePath); err != nil {
			logCtx.WithError(err).Debug("Failed to update active file")
		}
	}
	h.broadcastEnvelope(client, dto.TypeFileChange, raw)
}

// broadcastEnvelope 将入站消息包装为出站信封后广播给整个房间。
// 注意 exclude 传 nil：发送者也会收到自己的广播，客户端自行去重。
func (h *Hub) broadcastEnvelope(client *Client, msgType string, raw []byte) {
	envelope := dto.OutgoingMessage{
		Type: msgType,
		Data: json.RawMessage(raw),
		User: client.username,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal broadcast envelope")
		return
	}
	h.Broadcast(client.room, payload, nil)
}

// handleSuggestionRequest 请求 AI 建议并只回复给请求方，不广播。
// 推理服务失败时回复空建议列表，连接不受影响。
func (h *Hub) handleSuggestionRequest(client *Client, msg *dto.IncomingMessage) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_key": client.room.Key,
		"user_id":  client.userID,
	})

	suggestions, err := h.suggestions.Suggest(context.Background(), client.room.Key, client.userID, msg.Context)
	if err != nil {
		logCtx.WithError(err).Warn("Suggestion provider failed, replying with empty list")
		suggestions = nil
	}

	reply := dto.SuggestionsReply{
		Type:        dto.TypeAISuggestions,
		Suggestions: make([]dto.Suggestion, 0, len(suggestions)),
		Context:     msg.Context,
	}
	for _, s := range suggestions {
		reply.Suggestions = append(reply.Suggestions, dto.Suggestion{
			Type:       s.SuggestionType,
			Text:       s.Text,
			Confidence: s.Confidence,
		})
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal suggestions reply")
		return
	}

	// 请求方可能已经断开，此时回复被静默丢弃
	if h.trySend(client, payload) {
		logCtx.WithField("count", len(reply.Suggestions)).Debug("Suggestions reply sent to client channel")
	} else {
		logCtx.Warn("Client disconnected or channel full when replying suggestions, message dropped")
	}
}
