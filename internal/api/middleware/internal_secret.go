package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const InternalSecretHeader = "X-Internal-Secret"

// InternalSecretMiddleware 保护 /metrics 等内部端点。
// 密钥可放在 X-Internal-Secret 头中，也可作为 Bearer 令牌（对应 Prometheus 的 authorization 配置）。
// secret 为空表示端点只在内网暴露，不做校验。
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		presented := strings.TrimSpace(c.GetHeader(InternalSecretHeader))
		if presented == "" {
			presented, _ = BearerToken(c.GetHeader("Authorization"))
		}
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
