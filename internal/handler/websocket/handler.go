package websocket

import (
	"errors"
	"net/http"

	"github.com/SIRI-bit-tech/FSIDE/internal/hub"
	"github.com/SIRI-bit-tech/FSIDE/internal/repository"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
// 权限校验在升级之前完成：被拒绝的连接收到普通 HTTP 错误响应。
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	projectService *service.ProjectService // 升级前验证项目访问权限
	userRepo       repository.UserRepository
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, projectService *service.ProjectService, userRepo repository.UserRepository) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if projectService == nil {
		panic("ProjectService cannot be nil for WebSocketHandler")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:       upgrader,
		hub:            h,
		projectService: projectService,
		userRepo:       userRepo,
	}
}

// HandleCollaboration 处理协作房间的 WebSocket 连接请求。
// URL 预期格式: /ws/collaboration/{projectId}
func (h *WebSocketHandler) HandleCollaboration(c *gin.Context) {
	userID, username, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 获取并验证项目 ID (从 URL 参数)
	projectIDStr := c.Param("projectId")
	projectID, err := uuid.Parse(projectIDStr)
	if err != nil {
		logCtx.WithError(err).Warnf("WS Handler: Invalid project ID format: %s", projectIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID format"})
		return
	}
	logCtx = logCtx.WithField("project_id", projectID)

	// 验证用户对该项目的访问权限，未授权的连接在升级前被拒绝
	if err := h.projectService.Authorize(c.Request.Context(), projectID, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			logCtx.WithError(err).Warn("WS Handler: Project not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		case errors.Is(err, service.ErrAccessDenied):
			logCtx.Warn("WS Handler: Access to project denied")
			c.JSON(http.StatusForbidden, gin.H{"error": "Access to project denied"})
		default:
			logCtx.WithError(err).Error("WS Handler: Error checking project access")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate project access"})
		}
		return
	}
	logCtx.Debug("WS Handler: Project access validated")

	h.upgradeAndRun(c, hub.CollaborationRoom(projectID), projectID, userID, username, logCtx)
}

// HandleSuggestions 处理 AI 建议房间的 WebSocket 连接请求。
// URL 预期格式: /ws/ai-suggestions/{sessionId}
func (h *WebSocketHandler) HandleSuggestions(c *gin.Context) {
	userID, username, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	sessionID := c.Param("sessionId")
	if sessionID == "" {
		logCtx.Warn("WS Handler: Empty suggestion session ID")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}
	logCtx = logCtx.WithField("suggestion_session", sessionID)

	h.upgradeAndRun(c, hub.SuggestionsRoom(sessionID), uuid.Nil, userID, username, logCtx)
}

// authenticatedUser 从 gin 上下文取出 Auth 中间件设置的用户身份，
// 并查出用户名 (广播信封需要)。失败时已写好 HTTP 响应。
func (h *WebSocketHandler) authenticatedUser(c *gin.Context) (uint, string, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, "", false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return 0, "", false
	}

	user, err := h.userRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("WS Handler: Authenticated user no longer exists")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		} else {
			logrus.WithField("user_id", userID).WithError(err).Error("WS Handler: Failed to load user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return 0, "", false
	}
	return userID, user.Username, true
}

// upgradeAndRun 升级连接、注册客户端到 Hub 并启动读写泵。
func (h *WebSocketHandler) upgradeAndRun(c *gin.Context, room hub.RoomID, projectID uuid.UUID, userID uint, username string, logCtx *logrus.Entry) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 方法会自动发送 HTTP 错误响应，所以这里只需要记录日志
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, room, projectID, userID, username)
	h.hub.Attach(client)
	client.Run()

	logCtx.Info("WS Handler: Client read/write pumps started")
	// 后续的 WebSocket 通信由 client 的 ReadPump 和 WritePump 处理。
}
