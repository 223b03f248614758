package user

import (
	"fmt"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移user表: %w", err)
	}
	fmt.Println("User数据库表迁移成功。")
	return nil
}

// seedAdminUser 在用户表为空时创建初始管理员账户。
// 私有tracker没有开放注册，首次启动必须有一个能announce的账户；
// 生成的passkey打印到启动日志，由运营者保存。
func seedAdminUser() error {
	var count int64
	if err := database.DB.Model(&User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("统计用户数失败: %w", err)
	}
	if count > 0 {
		return nil
	}

	passkey, err := CreatePasskey()
	if err != nil {
		return err
	}
	admin := User{
		Username:      "admin",
		Passkey:       passkey,
		EmailVerified: true,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("创建初始管理员失败: %w", err)
	}
	fmt.Printf("已创建初始管理员账户 [admin]，passkey: %s\n", passkey)
	return nil
}

// PrimeDB 是user模块的初始化总入口
func PrimeDB() error {
	if err := migrateDB(); err != nil {
		return err
	}
	return seedAdminUser()
}
