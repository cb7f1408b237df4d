package vehicle

import (
	"net/http"
	"strings"

	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler 车辆 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。
func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.GET("/vehicles", h.list)
	g.POST("/vehicles", h.create)
	g.PUT("/vehicles/:id/primary", h.setPrimary)
	g.DELETE("/vehicles/:id", h.remove)
}

type createVehicleRequest struct {
	VehicleType        string  `json:"vehicle_type"`
	Brand              string  `json:"brand"`
	Model              string  `json:"model"`
	RegistrationNumber string  `json:"registration_number"`
	Color              *string `json:"color"`
	Year               *int    `json:"year"`
}

func (h *Handler) create(c *gin.Context) {
	ownerID := server.UserIDFromGin(c)
	if ownerID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}

	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	v, err := h.svc.Create(c.Request.Context(), CreateVehicleInput{
		OwnerID:            ownerID,
		VehicleType:        req.VehicleType,
		Brand:              req.Brand,
		Model:              req.Model,
		RegistrationNumber: req.RegistrationNumber,
		Color:              req.Color,
		Year:               req.Year,
	})
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) list(c *gin.Context) {
	ownerID := server.UserIDFromGin(c)
	if ownerID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}
	vehicles, err := h.svc.List(c.Request.Context(), ownerID)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	if vehicles == nil {
		vehicles = []Vehicle{}
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) setPrimary(c *gin.Context) {
	ownerID := server.UserIDFromGin(c)
	id := strings.TrimSpace(c.Param("id"))
	if ownerID == "" || id == "" {
		server.WriteError(c, domain.ValidationError{Msg: "missing identity or id"})
		return
	}
	if err := h.svc.SetPrimary(c.Request.Context(), id, ownerID); err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_primary": true})
}

func (h *Handler) remove(c *gin.Context) {
	ownerID := server.UserIDFromGin(c)
	id := strings.TrimSpace(c.Param("id"))
	if ownerID == "" || id == "" {
		server.WriteError(c, domain.ValidationError{Msg: "missing identity or id"})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, ownerID); err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
