package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 每个客户端属于且只属于一个房间，由连接建立时的 URL 决定。
type Client struct {
	hub       *Hub            // 指向其所属的 Hub
	conn      *websocket.Conn // WebSocket 连接
	room      RoomID          // 客户端所在的房间
	projectID uuid.UUID       // 协作房间对应的项目 ID (建议房间为零值)
	userID    uint            // 客户端的用户 ID
	username  string          // 广播信封中携带的用户名
	send      chan []byte     // 用于向此客户端发送消息的缓冲通道

	closeOnce sync.Once // 保证 Detach + conn.Close 只执行一次
}

// NewClient 创建一个新的 Client 实例。
func NewClient(hub *Hub, conn *websocket.Conn, room RoomID, projectID uuid.UUID, userID uint, username string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		room:      room,
		projectID: projectID,
		userID:    userID,
		username:  username,
		// send 通道缓冲区大小 256，写满时广播方直接跳过该客户端
		send: make(chan []byte, 256),
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// close 从 Hub 注销并关闭底层连接。幂等，读写两侧谁先退出谁触发。
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Detach(c)
		c.conn.Close()
	})
}

// ReadPump 从 WebSocket 连接读取消息并交给 Hub 分发。
// Dispatch 在这里同步调用，保证同一连接的消息按到达顺序处理。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		c.close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).Info("readPump exited, client detached")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	// 设置初始读取超时和 Pong 处理程序
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) // 收到 Pong 后重置读取超时
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break // 退出循环，触发 defer 中的注销
		}

		// 只处理文本消息
		if messageType == websocket.TextMessage {
			c.hub.Dispatch(c, message)
		} else {
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).Debugf("Received non-text message type: %d", messageType)
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	// 定时器用于定期发送 Ping 消息
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭了（通常在注销时）
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).Info("Hub closed send channel")
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			// 定时器触发，发送 Ping 消息以保持连接活跃并检测断开
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_key": c.room.Key}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) Room() RoomID         { return c.room }
func (c *Client) ProjectID() uuid.UUID { return c.projectID }
func (c *Client) UserID() uint         { return c.userID }
func (c *Client) Username() string     { return c.username }
