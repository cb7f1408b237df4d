package session

import (
	"net/http"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler 会话 HTTP 接口：面向客户端的订单槽位视图。
// 与 /api/v1/bookings 的区别在于读路径走会话内存态（事件合并结果），
// 不打存储。
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

// Register 挂载路由。
func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/session")
	g.POST("/bookings", h.create)
	g.GET("/bookings/current", h.current)
	g.POST("/bookings/resume", h.resume)
	g.POST("/bookings/cancel", h.cancel)
}

type createRequest struct {
	MechanicID     string   `json:"mechanic_id"`
	VehicleID      *string  `json:"vehicle_id"`
	ServiceType    string   `json:"service_type"`
	PickupLocation string   `json:"pickup_location"`
	PickupLat      *float64 `json:"pickup_lat"`
	PickupLng      *float64 `json:"pickup_lng"`
	Notes          string   `json:"notes"`
}

func (h *Handler) create(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	b, err := h.mgr.Get(userID).Create(c.Request.Context(), booking.CreateInput{
		MechanicID:     req.MechanicID,
		VehicleID:      req.VehicleID,
		ServiceType:    req.ServiceType,
		PickupLocation: req.PickupLocation,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		Notes:          req.Notes,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) current(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}
	s := h.mgr.Get(userID)
	c.JSON(http.StatusOK, gin.H{
		"booking": s.Current(),
		"last":    s.Last(),
	})
}

// resume 重连后接管服务端的活跃订单。
func (h *Handler) resume(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}
	b, err := h.mgr.Get(userID).Resume(c.Request.Context())
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.mgr.Get(userID).Cancel(c.Request.Context(), req.Reason)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
