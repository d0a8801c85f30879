// Package websocket 提供会话级的"该拉取了"提示推送
// 连接上只下发提示，不下发消息内容，客户端收到后仍通过轮询接口拉取
package websocket

import (
	"net/http"
	"time"

	"support_chat_server/pkg/constants"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 gin cors 中间件控制
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 一条观察连接
type Client struct {
	Conn      *websocket.Conn
	SessionId string
	UserId    string
	SendBack  chan []byte // 给前端，只由 Hub 关闭
	hub       *Hub
}

// Read 读协程，只处理控制帧，连接断开时注销
func (c *Client) Read() {
	defer func() {
		c.hub.unregister(c)
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws read closed", zap.String("session_id", c.SessionId), zap.Error(err))
			}
			return
		}
	}
}

// Write 写协程，下发提示并定时 ping
func (c *Client) Write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.SendBack:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				zap.L().Debug("ws write failed", zap.String("session_id", c.SessionId), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve 升级连接并注册到 Hub
// 调用方负责在此之前完成身份与会话权限校验
func (h *Hub) Serve(c *gin.Context, sessionId, userId string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已写回 HTTP 错误
		zap.L().Warn("ws upgrade failed", zap.String("session_id", sessionId), zap.Error(err))
		return
	}
	client := &Client{
		Conn:      conn,
		SessionId: sessionId,
		UserId:    userId,
		SendBack:  make(chan []byte, constants.CHANNEL_SIZE),
		hub:       h,
	}
	if !h.register(client) {
		_ = conn.Close()
		return
	}
	go client.Read()
	go client.Write()
	zap.L().Debug("ws watch connected", zap.String("session_id", sessionId), zap.String("user_id", userId))
}
