package torrent

import (
	"errors"
	"fmt"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"gorm.io/gorm"
)

// ErrNotFound 表示tracker没有索引过给定info hash的种子。
var ErrNotFound = errors.New("种子不存在")

// ResolveByInfoHash 根据十六进制info hash查找种子。
func ResolveByInfoHash(infoHash string) (*Torrent, error) {
	var t Torrent
	err := database.DB.Where("info_hash = ?", infoHash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询种子失败: %w", err)
	}
	return &t, nil
}

// IncrementDownloadCounter 在completed事件时累加种子的下载完成计数。
// 受保护种子计入CompletedDownloads并留下审计记录，普通种子计入Downloads。
// 在给定的事务句柄上执行，与announce记账处于同一个事务边界内。
func IncrementDownloadCounter(tx *gorm.DB, t *Torrent, userID uint, username string, now time.Time) error {
	column := "downloads"
	if t.IsProtected {
		column = "completed_downloads"
	}
	err := tx.Model(&Torrent{}).Where("info_hash = ?", t.InfoHash).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("更新下载计数失败: %w", err)
	}

	if t.IsProtected {
		audit := ProtectedDownload{
			TorrentInfoHash: t.InfoHash,
			UserID:          userID,
			Username:        username,
			TorrentName:     t.Name,
			DownloadedAt:    now,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("写入受保护下载审计记录失败: %w", err)
		}
	}
	return nil
}
