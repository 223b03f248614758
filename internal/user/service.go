package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"gorm.io/gorm"
)

// ErrNotFound 表示给定的passkey没有对应的注册用户。
var ErrNotFound = errors.New("用户不存在")

// CreatePasskey 生成一个新的announce令牌。
// UUID v7自带时间前缀，方便在数据库里按注册时间排查。
func CreatePasskey() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// ResolveByPasskey 根据announce URL中的令牌查找用户。
// 找不到时返回ErrNotFound；封禁/未验证的判断由调用方完成。
func ResolveByPasskey(passkey string) (*User, error) {
	var u User
	err := database.DB.Where("passkey = ?", passkey).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// IncrementCounters 以原子自增的方式调整用户的流量汇总和积分。
// 在给定的事务句柄上执行，供账本和清扫器在各自的事务内复用。
func IncrementCounters(tx *gorm.DB, id uint, uploaded, downloaded, bonusPoints int64) error {
	updates := map[string]interface{}{}
	if uploaded != 0 {
		updates["uploaded"] = gorm.Expr("uploaded + ?", uploaded)
	}
	if downloaded != 0 {
		updates["downloaded"] = gorm.Expr("downloaded + ?", downloaded)
	}
	if bonusPoints != 0 {
		updates["bonus_points"] = gorm.Expr("bonus_points + ?", bonusPoints)
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&User{}).Where("id = ?", id).UpdateColumns(updates).Error
}

// IncrementReapedTotals 将被清扫的会话记录的total折算进用户的流量基线。
// 必须和删除会话记录发生在同一个事务里，否则有重复折算的风险。
func IncrementReapedTotals(tx *gorm.DB, id uint, uploaded, downloaded int64) error {
	if uploaded == 0 && downloaded == 0 {
		return nil
	}
	return tx.Model(&User{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"reaped_uploaded":   gorm.Expr("reaped_uploaded + ?", uploaded),
		"reaped_downloaded": gorm.Expr("reaped_downloaded + ?", downloaded),
	}).Error
}

// TouchLastSeen 更新用户的最后活跃时间。
func TouchLastSeen(tx *gorm.DB, id uint, now time.Time) error {
	return tx.Model(&User{}).Where("id = ?", id).UpdateColumn("last_seen", now).Error
}
