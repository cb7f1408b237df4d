package user

import (
	"net/http"

	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler 用户 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由；register/login 需要配置为免鉴权路径。
func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.POST("/users/register", h.register)
	g.POST("/users/login", h.login)
	g.GET("/users/profile", h.profile)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}
	u, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, domain.ValidationError{Msg: "invalid json body"})
		return
	}
	u, token, exp, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_at":   exp.Unix(),
		"user":         u,
	})
}

func (h *Handler) profile(c *gin.Context) {
	userID := server.UserIDFromGin(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth"})
		return
	}
	u, err := h.svc.Profile(c.Request.Context(), userID)
	if err != nil {
		server.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
