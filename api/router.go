package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sqtracker/tracker-backend/internal/tracker"
)

// SetupRoutes 注册项目的所有路由
func SetupRoutes(router *gin.Engine) {
	// BT客户端的announce端点，passkey嵌在路径里
	router.GET("/tracker/:passkey/announce", tracker.HandleAnnounce)

	api := router.Group("/api")
	{
		// 账户页和管理面板消费的统计接口
		users := api.Group("/users")
		{
			users.GET("/:id/stats", tracker.GetUserStats)
			users.GET("/:id/sessions", tracker.GetUserSessions)
		}
	}
}
