package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/config"
	"github.com/RoadRescue/RoadRescue/internal/common/discovery"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HTTPRegisterFunc 用于挂载业务路由。
type HTTPRegisterFunc func(r *gin.Engine)

// HTTPServer 统一的 HTTP(gin) 服务模板，与 gRPC 模板共用
// 配置 / 日志 / Consul 注册的约定。
type HTTPServer struct {
	cfg      *config.Config
	log      logger.Logger
	engine   *gin.Engine
	srv      *http.Server
	registry *discovery.ServiceRegistry
}

// NewHTTPServer 创建 HTTP 服务：
// - gin recovery + 访问日志 + CORS
// - /healthz 健康检查（供 Consul HTTP check 探测）
func NewHTTPServer(cfg *config.Config, log logger.Logger, register HTTPRegisterFunc) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg is nil")
	}
	if log == nil {
		return nil, fmt.Errorf("log is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(GinAccessLog(log))
	engine.Use(cors.Default())

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	if register != nil {
		register(engine)
	}

	return &HTTPServer{
		cfg:    cfg,
		log:    log,
		engine: engine,
	}, nil
}

// Engine 暴露底层 gin.Engine（测试用）。
func (h *HTTPServer) Engine() *gin.Engine {
	return h.engine
}

// Start 启动监听并注册到 Consul（非阻塞）。
func (h *HTTPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", h.cfg.Server.Host, h.cfg.Server.HTTPPort)
	h.srv = &http.Server{
		Addr:              addr,
		Handler:           h.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Consul 注册失败不阻塞启动
	if consulClient, err := discovery.NewConsulClient(h.cfg.Consul.Host, h.cfg.Consul.Port); err == nil {
		serviceID := fmt.Sprintf("%s-http-%s", h.cfg.Server.Name, uuid.New().String())
		h.registry = discovery.NewHTTPServiceRegistry(
			consulClient,
			serviceID,
			h.cfg.Server.Name,
			h.cfg.Server.Host,
			h.cfg.Server.HTTPPort,
			[]string{"http"},
		)
		if err := h.registry.Register(); err != nil {
			h.log.Warnf("failed to register http service to Consul: %v", err)
			h.registry = nil
		} else {
			h.log.Infof("HTTP service registered to Consul: %s", serviceID)
		}
	} else {
		h.log.Warnf("failed to connect to Consul: %v", err)
	}

	go func() {
		h.log.Infof("%s http listening on %s", h.cfg.Server.Name, addr)
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.Errorf("http serve failed: %v", err)
		}
	}()

	return nil
}

// Shutdown 优雅关闭并注销 Consul。
func (h *HTTPServer) Shutdown(ctx context.Context) {
	if h.registry != nil {
		if err := h.registry.Deregister(); err != nil {
			h.log.Warnf("failed to deregister http service from Consul: %v", err)
		}
	}
	if h.srv != nil {
		if err := h.srv.Shutdown(ctx); err != nil {
			h.log.Warnf("http shutdown: %v", err)
		}
	}
}
