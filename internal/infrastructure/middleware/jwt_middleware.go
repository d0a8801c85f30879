package middleware

import (
	"net/http"
	"strings"

	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// 上下文中的身份键
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth JWT 认证中间件
// 验证 Access Token 并将 user_id 与 role 存入上下文，只接受 Authorization Header
func JWTAuth() gin.HandlerFunc {
	return jwtAuth(false)
}

// JWTAuthWS 观察连接使用的认证中间件
// 浏览器发起 WebSocket 握手无法设置 Header，额外接受 query 参数 token
func JWTAuthWS() gin.HandlerFunc {
	return jwtAuth(true)
}

func jwtAuth(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 获取 Token
		token := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				abortUnauthorized(c, "Token 格式错误，请使用 Bearer Token")
				return
			}
			token = parts[1]
		} else if allowQuery {
			token = c.Query("token")
		}
		if token == "" {
			abortUnauthorized(c, "缺少身份凭证")
			return
		}

		// 2. 验证 Token
		claims, err := jwt.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "Token 已过期或无效")
			return
		}
		if claims.Subject != "access_token" {
			abortUnauthorized(c, "请使用 Access Token 访问此接口")
			return
		}
		if claims.UserID == "" || !role_enum.Valid(claims.Role) {
			abortUnauthorized(c, "Token 缺少有效身份")
			return
		}

		// 3. 将身份存入上下文，供后续 Handler 使用
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole 限定接口可访问的角色
// 必须挂在 JWTAuth 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(CtxRole)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": errorx.CodeForbidden,
				"msg":  "当前角色无权访问该接口",
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}
