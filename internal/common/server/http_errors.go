package server

import (
	"net/http"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// WriteError 统一的领域错误 -> HTTP 状态码映射
// （与 gRPC 侧 codes 的映射口径保持一致）。
func WriteError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsInvalidTransition(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case domain.IsConnectivity(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	_ = c.Error(err)
}
