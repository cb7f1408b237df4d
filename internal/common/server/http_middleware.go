package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/auth"
	"github.com/RoadRescue/RoadRescue/internal/common/config"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/gin-gonic/gin"
)

// GinAccessLog 记录每个 HTTP 请求的耗时/状态码。
func GinAccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		fields := map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"cost":   time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
			log.WithFields(fields).Warn("http request failed")
		} else {
			log.WithFields(fields).Info("http request ok")
		}
	}
}

// GinJWTAuth gin 版 JWT 鉴权，与 gRPC 拦截器同一套规则：
// - `Authorization: Bearer <token>`
// - 命中 PublicMethods（按 FullPath 匹配）则放行
// - 解析结果写入 request ctx，业务侧用 AuthFromContext 取
func GinJWTAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		if isPublicMethod(cfg.PublicMethods, c.FullPath()) {
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		tokenStr := raw
		if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
			tokenStr = strings.TrimSpace(tokenStr[len("bearer "):])
		}

		claims, err := auth.ParseAccessToken(cfg, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		required := cfg.RBAC[c.FullPath()]
		if len(required) > 0 && !hasAnyRole(claims.Roles, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		ctx := ContextWithAuth(c.Request.Context(), AuthInfo{
			Subject: claims.Subject,
			Roles:   claims.Roles,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
