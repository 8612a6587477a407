package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatResume/internal/auth"
)

const sessionIDKey = "sessionID"

// SessionMiddleware 解析可选的 Bearer 会话令牌。有效令牌恢复既有会话；
// 没有携带令牌时铸造一个全新的会话 ID。伪造或过期的令牌直接拒绝，
// 不会悄悄降级成新会话。
func SessionMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(sessionIDKey, uuid.NewString())
			c.Next()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sessionID, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// SessionIDFromContext 返回上下文中的会话 ID。
func SessionIDFromContext(c *gin.Context) (string, bool) {
	value, ok := c.Get(sessionIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
