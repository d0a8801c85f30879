package websocket

import (
	"encoding/json"

	"support_chat_server/pkg/constants"

	"go.uber.org/zap"
)

// Hint 下发给观察连接的提示
type Hint struct {
	Event     string `json:"event"`
	SessionId string `json:"session_id"`
	LastId    int64  `json:"last_id"`
}

// Hub 维护 session_id -> 观察连接 的映射
// 映射只在 Start 协程内读写
type Hub struct {
	clients map[string]map[*Client]struct{}
	login   chan *Client
	logout  chan *Client
	hints   chan Hint
	done    chan struct{}
}

// NewHub 创建 Hub，需要调用 Start 才开始工作
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		login:   make(chan *Client, constants.CHANNEL_SIZE),
		logout:  make(chan *Client, constants.CHANNEL_SIZE),
		hints:   make(chan Hint, constants.CHANNEL_SIZE),
		done:    make(chan struct{}),
	}
}

// Start 主循环
func (h *Hub) Start() {
	for {
		select {
		case client := <-h.login:
			set, ok := h.clients[client.SessionId]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.SessionId] = set
			}
			set[client] = struct{}{}

		case client := <-h.logout:
			h.remove(client)

		case hint := <-h.hints:
			h.dispatch(hint)

		case <-h.done:
			for _, set := range h.clients {
				for client := range set {
					close(client.SendBack)
				}
			}
			h.clients = map[string]map[*Client]struct{}{}
			return
		}
	}
}

// Close 停止主循环并断开所有连接
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Notify 投递提示，Hub 繁忙时丢弃，客户端靠下一次轮询兜底
func (h *Hub) Notify(sessionId, event string, lastId int64) {
	select {
	case h.hints <- Hint{Event: event, SessionId: sessionId, LastId: lastId}:
	default:
		zap.L().Warn("ws hint dropped", zap.String("session_id", sessionId), zap.String("event", event))
	}
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.login <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.logout <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.SessionId]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.SendBack)
	if len(set) == 0 {
		delete(h.clients, client.SessionId)
	}
}

func (h *Hub) dispatch(hint Hint) {
	set := h.clients[hint.SessionId]
	if len(set) == 0 {
		return
	}
	payload, err := json.Marshal(hint)
	if err != nil {
		zap.L().Error("marshal ws hint", zap.Error(err))
		return
	}
	for client := range set {
		select {
		case client.SendBack <- payload:
		default:
			// 慢连接直接断开，重连后重新轮询
			h.remove(client)
		}
	}
	if hint.Event == constants.HINT_EVENT_ENDED {
		for client := range h.clients[hint.SessionId] {
			h.remove(client)
		}
	}
}
