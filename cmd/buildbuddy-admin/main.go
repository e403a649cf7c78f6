package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"buildbuddy-admin/internal/adapter/notification"
	"buildbuddy-admin/internal/api/router"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/database"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/internal/scheduler"
	"buildbuddy-admin/internal/service"

	_ "buildbuddy-admin/docs" // Swagger docs
)

// @title BuildBuddy Admin API
// @version 1.0
// @description 施工项目管理后台 API 文档
// @description 提供组织、项目、外包方邀请、计划、预算与工时等功能

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion = "1.0.0"
	appName    = "buildbuddy-admin"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// init config logger
	var cfg *config.Config
	{
		// 优先级: 命令行参数 > 环境变量 > 默认路径
		configPath := getConfigPath()

		c, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("加载配置失败: %v\n", err)
			fmt.Println("\n使用方式:")
			fmt.Println("  1. 命令行参数指定: ./buildbuddy-admin -config=configs/config.yaml")
			fmt.Println("  2. 环境变量指定: CONFIG_FILE=configs/config.yaml ./buildbuddy-admin")
			os.Exit(1)
		}
		cfg = c

		if err := logger.Init(&cfg.Log); err != nil {
			fmt.Printf("初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))

		defer func() {
			_ = logger.Close()
		}()
	}

	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		_ = database.Close()
	}()
	logger.Info(fmt.Sprintf("数据库连接成功 %s:%v", cfg.Database.Host, cfg.Database.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.String("database", cfg.Database.Database))

	// 变更推送
	broker, err := realtime.NewBroker(&cfg.Realtime, logger.L())
	if err != nil {
		logger.Fatal("初始化realtime失败", zap.Error(err))
	}
	defer func() {
		_ = broker.Close()
	}()

	notifier, err := notification.New(&cfg.Notification, logger.L())
	if err != nil {
		logger.Fatal("初始化通知失败", zap.Error(err))
	}

	svcs := service.NewServices(cfg, repository.NewStore(database.GetDB()), broker, notifier, logger.L())

	// 定时任务
	taskScheduler := scheduler.NewScheduler(svcs.Invite, logger.L())
	if err := taskScheduler.Start(&cfg.Scheduler); err != nil {
		logger.Warn("定时任务调度器启动失败", zap.Error(err))
	}

	r := router.Setup(cfg, svcs, broker, logger.L())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	taskScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// SSE 长连接会阻塞 Shutdown, 先关闭 broker 让订阅结束
	_ = broker.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务已关闭")
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	if *configFile != "" {
		return *configFile
	}
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}
	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
