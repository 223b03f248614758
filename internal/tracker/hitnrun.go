package tracker

import (
	"fmt"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

// GetHitNRunCount 统计一个用户的hit'n'run数量。
// 判定条件：下载已完成（bytes_left=0且有下载量）、早已停止announce
// （超出保留窗口）、且在该种子上的上传量没有回到1:1。
// 策略引擎只消费这个整数。
func GetHitNRunCount(userID uint, now time.Time) (int, error) {
	cutoff := now.Add(-config.Cfg.Tracker.PeerRetention())

	var count int64
	err := database.DB.Model(&Progress{}).
		Where("user_id = ? AND bytes_left = 0 AND downloaded_total > 0 AND uploaded_total < downloaded_total AND last_seen < ?",
			userID, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计hit'n'run失败: %w", err)
	}
	return int(count), nil
}
