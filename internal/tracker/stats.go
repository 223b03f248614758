package tracker

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"github.com/sqtracker/tracker-backend/internal/user"
)

// UserTotals 是账本对外暴露的用户流量视图，
// 供账户页和管理面板的统计接口消费。
type UserTotals struct {
	Uploaded   int64   `json:"uploaded"`
	Downloaded int64   `json:"downloaded"`
	Ratio      float64 `json:"ratio"`
}

// GetUserTotals 汇总一个用户的上传/下载总量并计算分享率。
// 总量 = 已清扫基线 + 所有现存会话记录的total之和；
// 下载量为0时分享率取哨兵值RatioUndefined。
func GetUserTotals(userID uint) (*UserTotals, error) {
	var u user.User
	if err := database.DB.Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	totals, err := sumProgressTotals(database.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("聚合用户流量失败: %w", err)
	}

	uploaded := u.ReapedUploaded + totals.Up
	downloaded := u.ReapedDownloaded + totals.Down

	ratio := RatioUndefined
	if downloaded > 0 {
		// 保留两位小数，与站点展示一致
		ratio = math.Round(float64(uploaded)/float64(downloaded)*100) / 100
	}

	return &UserTotals{
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Ratio:      ratio,
	}, nil
}

// GetUserSessionCount 返回一个用户现存的peer会话记录数。
func GetUserSessionCount(userID uint) (int64, error) {
	var count int64
	err := database.DB.Model(&Progress{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计会话记录失败: %w", err)
	}
	return count, nil
}

// GetUserStats 处理 GET /api/users/:id/stats
func GetUserStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户ID"})
		return
	}

	totals, err := GetUserTotals(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取用户统计失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, totals)
}

// GetUserSessions 处理 GET /api/users/:id/sessions
func GetUserSessions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户ID"})
		return
	}

	count, err := GetUserSessionCount(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取会话数失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": count})
}
