package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
	"github.com/SIRI-bit-tech/FSIDE/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CollaborationHandler 封装了协作会话与编辑历史的只读 HTTP 查询逻辑。
// 实时路径走 WebSocket，这里只提供会话状态和历史的快照。
type CollaborationHandler struct {
	sessionService *service.SessionService
	editService    *service.EditService
	projectService *service.ProjectService
}

// NewCollaborationHandler 创建 CollaborationHandler 实例
func NewCollaborationHandler(sessionService *service.SessionService, editService *service.EditService, projectService *service.ProjectService) *CollaborationHandler {
	return &CollaborationHandler{
		sessionService: sessionService,
		editService:    editService,
		projectService: projectService,
	}
}

// ParticipantResponse 会话参与者的公开信息
type ParticipantResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// SessionResponse 协作会话的响应结构体
type SessionResponse struct {
	ID           uuid.UUID             `json:"id"`
	ProjectID    uuid.UUID             `json:"project_id"`
	IsActive     bool                  `json:"is_active"`
	ActiveFile   string                `json:"active_file,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// EditResponse 单条编辑记录的响应结构体
type EditResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uint            `json:"user_id"`
	FilePath      string          `json:"file_path"`
	OperationType string          `json:"operation_type"`
	Position      json.RawMessage `json:"position"`
	Content       string          `json:"content"`
	Timestamp     time.Time       `json:"timestamp"`
}

func toSessionResponse(s *domain.CollaborationSession) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		ProjectID:    s.ProjectID,
		IsActive:     s.IsActive,
		ActiveFile:   s.ActiveFile,
		Participants: make([]ParticipantResponse, 0, len(s.Participants)),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	for _, p := range s.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{ID: p.ID, Username: p.Username})
	}
	return resp
}

// ListSessions 返回当前用户参与的所有活跃协作会话。
// GET /api/collaboration/sessions
func (h *CollaborationHandler) ListSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	sessions, err := h.sessionService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.ListSessions: Failed to list sessions")
		HandleServiceError(c, err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, toSessionResponse(&sessions[i]))
	}
	SuccessResponse(c, http.StatusOK, gin.H{"sessions": resp})
}

// GetProjectSession 返回某个项目当前的活跃会话；没有则返回 404。
// GET /api/collaboration/:projectId/session
func (h *CollaborationHandler) GetProjectSession(c *gin.Context) {
	userID, projectID, ok := h.authorizedProject(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "project_id": projectID})

	session, err := h.sessionService.GetActive(c.Request.Context(), projectID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.GetProjectSession: Failed to fetch session")
		HandleServiceError(c, err)
		return
	}
	if session == nil {
		ErrorResponse(c, http.StatusNotFound, "No active collaboration session for this project")
		return
	}
	SuccessResponse(c, http.StatusOK, toSessionResponse(session))
}

// ListProjectEdits 返回某个项目活跃会话的编辑历史，按时间升序。
// GET /api/collaboration/:projectId/edits
func (h *CollaborationHandler) ListProjectEdits(c *gin.Context) {
	userID, projectID, ok := h.authorizedProject(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "project_id": projectID})

	session, err := h.sessionService.GetActive(c.Request.Context(), projectID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.ListProjectEdits: Failed to fetch session")
		HandleServiceError(c, err)
		return
	}
	if session == nil {
		// 无会话时返回空历史而不是 404，客户端总能安全地渲染
		SuccessResponse(c, http.StatusOK, gin.H{"edits": []EditResponse{}})
		return
	}

	edits, err := h.editService.ListForSession(c.Request.Context(), session.ID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.ListProjectEdits: Failed to list edits")
		HandleServiceError(c, err)
		return
	}

	resp := make([]EditResponse, 0, len(edits))
	for _, e := range edits {
		resp = append(resp, EditResponse{
			ID:            e.ID,
			UserID:        e.UserID,
			FilePath:      e.FilePath,
			OperationType: e.OperationType,
			Position:      json.RawMessage(e.Position),
			Content:       e.Content,
			Timestamp:     e.Timestamp,
		})
	}
	SuccessResponse(c, http.StatusOK, gin.H{"edits": resp})
}

// authorizedProject 解析 URL 中的项目 ID 并校验当前用户的访问权限。
func (h *CollaborationHandler) authorizedProject(c *gin.Context) (uint, uuid.UUID, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return 0, uuid.Nil, false
	}

	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid project ID format")
		return 0, uuid.Nil, false
	}

	if err := h.projectService.Authorize(c.Request.Context(), projectID, userID); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) || errors.Is(err, service.ErrAccessDenied) {
			HandleServiceError(c, err)
		} else {
			logrus.WithFields(logrus.Fields{"user_id": userID, "project_id": projectID}).
				WithError(err).Error("Handler: Error checking project access")
			HandleServiceError(c, err)
		}
		return 0, uuid.Nil, false
	}
	return userID, projectID, true
}

// currentUserID 从 gin 上下文取出 Auth 中间件设置的用户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: User ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: User ID in context is not uint")
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error processing user ID")
		return 0, false
	}
	return userID, true
}
