package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"securewave_server/internal/config"
	"securewave_server/internal/dao/mysql"
	redisdao "securewave_server/internal/dao/redis"
	"securewave_server/internal/handler"
	"securewave_server/internal/https_server"
	"securewave_server/internal/infrastructure/logger"
	"securewave_server/internal/service"
	"securewave_server/internal/service/hub"
	"securewave_server/pkg/util/jwt"
	"securewave_server/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	if err := config.LoadConfig(); err != nil {
		fmt.Printf("load config failed: %v\n", err)
		os.Exit(1)
	}
	cfg := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&cfg.LogConfig, cfg.MainConfig.Mode); err != nil {
		fmt.Printf("init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = zap.L().Sync()
	}()

	if cfg.MainConfig.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 初始化基础组件
	jwt.Init(cfg.JWTConfig.Secret, cfg.JWTConfig.ExpireDays)
	snowflake.Init()
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("init validator translator failed", zap.Error(err))
	}

	// 4. 初始化存储层
	repos := mysql.Init()
	cache := redisdao.Init()

	// 5. 组装信令中心和业务层
	signalHub := hub.NewHub(repos, cache)
	services := service.NewServices(repos)
	handlers := handler.NewHandlers(services, signalHub)

	// 6. 启动 HTTP 服务
	engine := https_server.Init(handlers)
	addr := fmt.Sprintf("%s:%d", cfg.MainConfig.Host, cfg.MainConfig.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		zap.L().Info("服务启动", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("收到退出信号，开始关闭")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("服务关闭异常", zap.Error(err))
	}
	zap.L().Info("服务已退出")
}
