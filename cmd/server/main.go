package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sqtracker/tracker-backend/api"
	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"github.com/sqtracker/tracker-backend/internal/platform/shutdown"
	"github.com/sqtracker/tracker-backend/internal/platform/startup"
	"github.com/sqtracker/tracker-backend/internal/tracker"
	"github.com/sqtracker/tracker-backend/pkg/lifecycle"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败，无法启动: %v", err))
	}

	// 2. 初始化存储
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	// 3. 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 4. 启动后台的失效peer清扫器
	manager := lifecycle.NewManager()
	reaperHandle, err := manager.NewServiceHandle("stale-peer-reaper")
	if err != nil {
		panic(fmt.Sprintf("注册清扫器失败: %v", err))
	}
	go tracker.StartReaper(reaperHandle)

	// 5. 组装HTTP服务器
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 6. 阻塞等待停机信号
	shutdown.NewCoordinator(manager).ListenForSignalsAndShutdown(server)
}
