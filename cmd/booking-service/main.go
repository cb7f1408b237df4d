package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/common/config"
	"github.com/RoadRescue/RoadRescue/internal/common/db"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/common/server"
	"github.com/RoadRescue/RoadRescue/internal/common/tracing"
	"github.com/RoadRescue/RoadRescue/internal/directory"
	"github.com/RoadRescue/RoadRescue/internal/feed"
	"github.com/RoadRescue/RoadRescue/internal/session"
	"github.com/RoadRescue/RoadRescue/internal/vehicle"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/booking-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// MySQL
	gormDB, err := db.NewMySQL(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Database,
		cfg.Database.MaxIdle, cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&booking.Booking{}, &directory.Mechanic{}, &vehicle.Vehicle{}); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Redis：变更事件通道 + 技师目录缓存
	rdb, err := db.NewRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	changeFeed := feed.NewRedisFeed(rdb, log)

	dirSvc := directory.NewService(directory.NewGormRepo(gormDB), rdb, log)
	vehSvc := vehicle.NewService(vehicle.NewGormRepo(gormDB))

	bookingSvc := booking.NewService(
		booking.NewGormRepo(gormDB),
		dirSvc,
		vehSvc,
		changeFeed,
		booking.NewBoundedRandomETA(5, 15),
		log,
	)

	sessions := session.NewManager(bookingSvc, changeFeed, log)
	defer sessions.Close()

	bookingHandler := booking.NewHandler(bookingSvc, changeFeed)
	sessionHandler := session.NewHandler(sessions)

	httpSrv, err := server.NewHTTPServer(cfg, log, func(r *gin.Engine) {
		r.Use(server.GinJWTAuth(cfg.Auth))
		bookingHandler.Register(r)
		sessionHandler.Register(r)
	})
	if err != nil {
		log.Fatalf("failed to init http server: %v", err)
	}
	if err := httpSrv.Start(); err != nil {
		log.Fatalf("failed to start http server: %v", err)
	}

	// gRPC 模板（health / reflection / Consul），阻塞到收到退出信号
	if err := server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
		return nil
	}); err != nil {
		log.Errorf("booking-service exited with error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(ctx)
}
