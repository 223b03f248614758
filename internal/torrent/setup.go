package torrent

import (
	"fmt"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&Torrent{}, &ProtectedDownload{}); err != nil {
		return fmt.Errorf("无法迁移torrent表: %w", err)
	}
	fmt.Println("Torrent数据库表迁移成功。")
	return nil
}

// PrimeDB 是torrent模块的初始化总入口
func PrimeDB() error {
	return migrateDB()
}
