package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 依赖的连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 存活检查
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler 创建存活检查处理器，值为 nil 的依赖会被忽略
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	checked := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checked[name] = p
		}
	}
	return &HealthHandler{deps: checked}
}

// Healthz 依赖全部可用返回 200，否则返回 503 与失败原因
// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{}
	healthy := true
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"healthy": healthy, "deps": status})
}
