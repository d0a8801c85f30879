package middleware

import (
	"net"
	"strconv"

	"support_chat_server/internal/config"
	"support_chat_server/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 明文请求重定向到 HTTPS，仅在 mainConfig.tlsRedirect 开启时挂载
// 前置代理已终止 TLS 时以 X-Forwarded-Proto 为准；/healthz 供探针走明文，不重定向
func TlsHandler(cfg config.MainConfig) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        true,
		SSLHost:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:         31536000,
		FrameDeny:          true,
		ContentTypeNosniff: true,
	})

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			zap.L().Debug("redirected to https",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(logger.RequestIDKey)),
			)
			c.Abort()
			return
		}
		c.Next()
	}
}
