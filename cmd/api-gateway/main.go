package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/config"
	"github.com/RoadRescue/RoadRescue/internal/common/discovery"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/common/middleware"
	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/gin-gonic/gin"
	consulapi "github.com/hashicorp/consul/api"
)

var (
	configPath = flag.String("config", "configs/api-gateway.json", "配置文件路径")
)

// routeTable 路径前缀 -> 后端服务名（Consul 注册名）。
var routeTable = []struct {
	prefix  string
	service string
}{
	{"/api/v1/users", "user-service"},
	{"/api/v1/vehicles", "user-service"},
	{"/api/v1/mechanics", "directory-service"},
	{"/api/v1/bookings", "booking-service"},
	{"/api/v1/session", "booking-service"},
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Fatalf("failed to connect to Consul: %v", err)
	}

	// 全局令牌桶：1000 容量 / 每秒补 500
	limiter := middleware.NewTokenBucket(1000, 500)

	httpSrv, err := server.NewHTTPServer(cfg, log, func(r *gin.Engine) {
		r.Use(middleware.GinRateLimit(limiter))
		r.NoRoute(proxyHandler(consulClient, log))
	})
	if err != nil {
		log.Fatalf("failed to init http server: %v", err)
	}
	if err := httpSrv.Start(); err != nil {
		log.Fatalf("failed to start http server: %v", err)
	}

	waitForSignal(log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(ctx)
}

// proxyHandler 按路由表把请求转发到 Consul 解析出的健康实例。
func proxyHandler(client *consulapi.Client, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceName := resolveRoute(c.Request.URL.Path)
		if serviceName == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no route"})
			return
		}

		addr, err := discovery.ResolveHTTPService(client, serviceName)
		if err != nil {
			log.Warnf("failed to resolve %s: %v", serviceName, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}

		target := &url.URL{Scheme: "http", Host: addr}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warnf("proxy to %s failed: %v", addr, err)
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"bad gateway"}`))
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func waitForSignal(log logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infof("received signal %v, shutting down...", sig)
}

func resolveRoute(path string) string {
	for _, rt := range routeTable {
		if strings.HasPrefix(path, rt.prefix) {
			return rt.service
		}
	}
	return ""
}
