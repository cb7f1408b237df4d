package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// EventSubscription 单个订单的事件订阅句柄。
type EventSubscription interface {
	C() <-chan Event
	Unsubscribe()
}

// EventSource 按订单 ID 订阅变更事件（由 feed 包实现）。
type EventSource interface {
	Subscribe(ctx context.Context, bookingID string) (EventSubscription, error)
}

// Handler 订单 HTTP 接口。
type Handler struct {
	svc  *Service
	feed EventSource
}

func NewHandler(svc *Service, feed EventSource) *Handler {
	return &Handler{svc: svc, feed: feed}
}

// Register 挂载路由。
func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.POST("/bookings", h.create)
	g.GET("/bookings", h.history)
	g.GET("/bookings/current", h.current)
	g.GET("/bookings/:id", h.get)
	g.POST("/bookings/:id/status", h.transition)
	g.POST("/bookings/:id/cancel", h.cancel)
	g.POST("/bookings/:id/location", h.updateLocation)
	g.GET("/bookings/:id/events", h.streamEvents)
}

type createBookingRequest struct {
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

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	b, err := h.svc.Create(c.Request.Context(), CreateInput{
		UserID:         userID,
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

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) current(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}
	b, err := h.svc.Active(c.Request.Context(), userID)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	if b == nil {
		c.JSON(http.StatusOK, gin.H{"booking": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) history(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		server.WriteError(c, domain.ValidationError{Field: "user", Msg: "missing identity"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	bookings, total, spent, err := h.svc.History(c.Request.Context(), userID, (page-1)*pageSize, pageSize)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings":    bookings,
		"total":       total,
		"total_spent": spent,
		"page":        page,
		"page_size":   pageSize,
	})
}

type transitionRequest struct {
	Status      string   `json:"status"`
	Price       *int64   `json:"price"`
	MechanicLat *float64 `json:"mechanic_lat"`
	MechanicLng *float64 `json:"mechanic_lng"`
}

func (h *Handler) transition(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	b, err := h.svc.Transition(c.Request.Context(), id, Status(strings.TrimSpace(req.Status)), TransitionInput{
		Price:       req.Price,
		MechanicLat: req.MechanicLat,
		MechanicLng: req.MechanicLng,
	})
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req cancelRequest
	// 取消可以不带 body
	_ = c.ShouldBindJSON(&req)

	b, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *Handler) updateLocation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}

	b, err := h.svc.UpdateMechanicPosition(c.Request.Context(), id, req.Lat, req.Lng)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// streamEvents 以 SSE 推送单个订单的变更事件流，
// 连接时先推一帧权威快照，终态事件后结束流。
func (h *Handler) streamEvents(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if h.feed == nil {
		server.WriteError(c, domain.ConnectivityError{Op: "event stream", Err: fmt.Errorf("feed not configured")})
		return
	}

	// 先订阅再取快照：反过来的话，Get 和 Subscribe 之间提交的流转
	// 既不在快照里也不会投递到订阅，终态事件丢在窗口里流就挂死了
	sub, err := h.feed.Subscribe(c.Request.Context(), id)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	defer sub.Unsubscribe()

	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		server.WriteError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 快照帧兜底订阅建立之前的历史，之后的流转都在订阅里
	writeSSE(c, NewEvent(b))
	if IsTerminal(b.Status) {
		return
	}

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			writeSSE(c, evt)
			if IsTerminal(evt.Status) {
				return
			}
		}
	}
}

func writeSSE(c *gin.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: booking\ndata: %s\n\n", data)
	c.Writer.Flush()
}
