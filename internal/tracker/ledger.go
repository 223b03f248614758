package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"github.com/sqtracker/tracker-backend/internal/torrent"
	"github.com/sqtracker/tracker-backend/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnnounceSummary 汇报一次announce实际入账的结果。
type AnnounceSummary struct {
	// UploadDelta / DownloadDelta 是本次announce新入账的字节数。
	UploadDelta   int64
	DownloadDelta int64

	// BonusCredited 是本次announce结算的奖励积分（通常为0）。
	BonusCredited int64

	// UserUploaded / UserDownloaded 是入账后该用户的流量汇总。
	UserUploaded   int64
	UserDownloaded int64
}

type aggregateRow struct {
	Up   int64
	Down int64
}

// sumProgressTotals 统计一个用户所有现存会话记录的total之和。
func sumProgressTotals(tx *gorm.DB, userID uint) (aggregateRow, error) {
	var row aggregateRow
	err := tx.Model(&Progress{}).
		Select("COALESCE(SUM(uploaded_total), 0) AS up, COALESCE(SUM(downloaded_total), 0) AS down").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row, err
}

// ApplyAnnounce 是每次announce的记账状态机，整体运行在一个数据库事务里：
//
//  1. 锁定用户行，把同一用户多个peer的并发announce串行化，
//     保证GB积分水位线的前后读取是稳定的一对；
//  2. 锁定并读取该 (用户,种子,peer) 的上一条会话记录；
//  3. 以上一条session计数为基线算增量，负增量一律按0处理——
//     客户端计数器归零只会少记、绝不伪造字节，这是既定的保守策略；
//  4. freeleech（种子级或全站）时下载量的session和total都钉在0；
//  5. 以复合键upsert会话记录；
//  6. 重新聚合该用户全部会话的total，连同已清扫基线写回用户汇总，
//     即使某次写回被跳过，下一次announce也会自愈；
//  7. 跨过GB水位线时一次性结算积分；
//  8. completed事件累加种子的下载完成计数。
//
// 事务中任何一步失败都整体回滚，不会留下半截状态。
func ApplyAnnounce(req *AnnounceRequest, now time.Time) (*AnnounceSummary, *AnnounceFailure) {
	cfg := &config.Cfg.Tracker
	freeleech := req.Torrent.Freeleech || cfg.SiteWideFreeleech

	summary := &AnnounceSummary{}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 锁定用户行，作为本用户记账的串行化点
		var u user.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.User.ID).First(&u).Error; err != nil {
			return fmt.Errorf("锁定用户行失败: %w", err)
		}

		// 2. 读取上一条会话记录，不存在时基线为0
		var prev Progress
		prevFound := true
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND info_hash = ? AND peer_id = ?", u.ID, req.InfoHash, req.PeerID).
			First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prevFound = false
		} else if err != nil {
			return fmt.Errorf("读取会话记录失败: %w", err)
		}

		var prevUploadedSession, prevUploadedTotal int64
		var prevDownloadedSession, prevDownloadedTotal int64
		if prevFound {
			prevUploadedSession = prev.UploadedSession
			prevUploadedTotal = prev.UploadedTotal
			prevDownloadedSession = prev.DownloadedSession
			prevDownloadedTotal = prev.DownloadedTotal
		}

		// 3. 计算增量，负增量按0处理
		uploadDelta := req.Uploaded - prevUploadedSession
		if uploadDelta < 0 {
			uploadDelta = 0
		}
		downloadDelta := req.Downloaded - prevDownloadedSession
		if downloadDelta < 0 {
			downloadDelta = 0
		}

		// 4. freeleech时下载量不入账，上传量不受影响
		if freeleech {
			downloadDelta = 0
		}

		// 积分水位线的"前"值：已清扫基线 + 本次入账前的会话总和
		before, err := sumProgressTotals(tx, u.ID)
		if err != nil {
			return fmt.Errorf("聚合用户流量失败: %w", err)
		}
		lifetimeUploadedBefore := u.ReapedUploaded + before.Up

		// 5. 以复合键原子upsert会话记录
		next := Progress{
			UserID:            u.ID,
			InfoHash:          req.InfoHash,
			PeerID:            req.PeerID,
			UploadedSession:   req.Uploaded,
			UploadedTotal:     prevUploadedTotal + uploadDelta,
			DownloadedSession: req.Downloaded,
			DownloadedTotal:   prevDownloadedTotal + downloadDelta,
			Left:              req.Left,
			LastSeen:          now,
		}
		if freeleech {
			next.DownloadedSession = 0
			next.DownloadedTotal = 0
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "info_hash"}, {Name: "peer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"uploaded_session", "uploaded_total",
				"downloaded_session", "downloaded_total",
				"bytes_left", "last_seen", "updated_at",
			}),
		}).Create(&next).Error; err != nil {
			return fmt.Errorf("写入会话记录失败: %w", err)
		}

		// 6. 重新聚合并写回用户流量汇总
		after, err := sumProgressTotals(tx, u.ID)
		if err != nil {
			return fmt.Errorf("聚合用户流量失败: %w", err)
		}
		if err := tx.Model(&user.User{}).Where("id = ?", u.ID).UpdateColumns(map[string]interface{}{
			"uploaded":   u.ReapedUploaded + after.Up,
			"downloaded": u.ReapedDownloaded + after.Down,
		}).Error; err != nil {
			return fmt.Errorf("写回用户流量汇总失败: %w", err)
		}
		if err := user.TouchLastSeen(tx, u.ID, now); err != nil {
			return fmt.Errorf("更新用户最后活跃时间失败: %w", err)
		}

		// 7. GB水位线结算积分。
		// 前后值都在本事务持有用户行锁的情况下读取，
		// 两个peer同时跨过同一条GB线时只会有一个事务看到跨越。
		lifetimeUploadedAfter := lifetimeUploadedBefore + uploadDelta
		gbCrossed := lifetimeUploadedAfter/BytesPerGB - lifetimeUploadedBefore/BytesPerGB
		var bonus int64
		if gbCrossed > 0 {
			bonus = gbCrossed * cfg.BonusPointsPerGB
			if err := user.IncrementCounters(tx, u.ID, 0, 0, bonus); err != nil {
				return fmt.Errorf("结算奖励积分失败: %w", err)
			}
		}

		// 8. completed事件累加种子的下载完成计数
		if req.Event == EventCompleted {
			if err := torrent.IncrementDownloadCounter(tx, req.Torrent, u.ID, u.Username, now); err != nil {
				return err
			}
		}

		summary.UploadDelta = uploadDelta
		summary.DownloadDelta = downloadDelta
		summary.BonusCredited = bonus
		summary.UserUploaded = u.ReapedUploaded + after.Up
		summary.UserDownloaded = u.ReapedDownloaded + after.Down
		return nil
	})

	if err != nil {
		return nil, newStorageFailure(err)
	}
	return summary, nil
}
