package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDFromGin 取当前请求的用户 ID：
// 优先 JWT 解析结果；鉴权关闭的环境（本地/联调）回退到 X-User-ID 头。
func UserIDFromGin(c *gin.Context) string {
	if ai, ok := AuthFromContext(c.Request.Context()); ok && ai.Subject != "" {
		return ai.Subject
	}
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}
