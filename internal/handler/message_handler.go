package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	messageSvc service.MessageService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// SendMessage 发送消息
// POST /session/send
// 请求体: request.SendMessageRequest
// 响应: respond.MessageRespond
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messageSvc.Append(c.Request.Context(), callerOf(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMessages 增量拉取消息
// GET /session/messages/:session_id?since_id=
// 响应: respond.MessageListRespond
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var req request.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messageSvc.List(c.Request.Context(), callerOf(c), c.Param("session_id"), req.SinceId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
