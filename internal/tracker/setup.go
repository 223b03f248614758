package tracker

import (
	"fmt"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&Progress{}); err != nil {
		return fmt.Errorf("无法迁移progress表: %w", err)
	}
	fmt.Println("Progress数据库表迁移成功。")
	return nil
}

// PrimeDB 是tracker模块的初始化总入口。
// swarm成员不做预热：会话记录里没有peer的地址信息，
// 客户端会在一个announce周期内自己把swarm填回来。
func PrimeDB() error {
	return migrateDB()
}
