package directory

import (
	"net/http"
	"strings"

	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler 技师目录 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。
func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.GET("/mechanics", h.listAvailable)
	g.PUT("/mechanics/:id/availability", h.setAvailability)
	g.POST("/mechanics/:id/rating", h.rate)
}

func (h *Handler) listAvailable(c *gin.Context) {
	mechanics, err := h.svc.AvailableSnapshot(c.Request.Context())
	if err != nil {
		server.WriteError(c, err)
		return
	}
	if mechanics == nil {
		mechanics = []Mechanic{}
	}
	c.JSON(http.StatusOK, gin.H{"mechanics": mechanics, "total": len(mechanics)})
}

type setAvailabilityRequest struct {
	Available *bool `json:"available"`
}

func (h *Handler) setAvailability(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		server.WriteError(c, domain.ValidationError{Field: "id", Msg: "required"})
		return
	}

	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		server.WriteError(c, domain.ValidationError{Field: "available", Msg: "required"})
		return
	}

	if err := h.svc.SetAvailability(c.Request.Context(), id, *req.Available); err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "available": *req.Available})
}

type rateRequest struct {
	Stars int `json:"stars"`
}

func (h *Handler) rate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		server.WriteError(c, domain.ValidationError{Field: "id", Msg: "required"})
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	if err := h.svc.RateMechanic(c.Request.Context(), id, req.Stars); err != nil {
		server.WriteError(c, err)
		return
	}

	m, err := h.svc.GetMechanic(c.Request.Context(), id)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "rating": m.Rating, "total_ratings": m.TotalRatings})
}
