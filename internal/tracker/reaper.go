package tracker

import (
	"fmt"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"github.com/sqtracker/tracker-backend/internal/user"
	"github.com/sqtracker/tracker-backend/pkg/lifecycle"
	"gorm.io/gorm"
)

// StartReaper 启动失效peer清扫器的主循环。
// 它独立于请求处理，按固定间隔扫描账本存储；
// 生命周期与优雅停机信号绑定，最后一轮扫描由停机协调器负责。
func StartReaper(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("失效peer清扫器 (Stale-Peer Reaper) 已启动。")

	for {
		if err := handle.Sleep(config.Cfg.Tracker.ReaperInterval()); err != nil {
			fmt.Println("Stale-Peer Reaper: 收到停机信号，主循环退出。")
			return
		}
		removed, err := SweepOnce(time.Now())
		if err != nil {
			fmt.Printf("Stale-Peer Reaper: 本轮扫描失败: %v\n", err)
			continue
		}
		fmt.Printf("Stale-Peer Reaper: 本轮清理了 %d 条失效peer记录。\n", removed)
	}
}

// SweepOnce 执行一轮完整的清扫，返回删除的会话记录数。
//
// 清扫对象：lastSeen超出保留窗口、且最近一次announce的session计数
// 全为零的记录——session非零说明上一轮还有在途流量，多留一个窗口，
// 避免删掉仍有意义的账。删除条件以lastSeen为界，而在途announce总是
// 先刷新lastSeen，所以清扫永远不会碰到正在更新的键。
//
// 删除前把这批记录的total折算进所属用户的流量基线（和删除同一个
// 事务），保证即使聚合被跳过也不丢一个字节。
func SweepOnce(now time.Time) (int64, error) {
	cutoff := now.Add(-config.Cfg.Tracker.PeerRetention())
	var removed int64

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 按用户聚合待删记录的total
		type foldRow struct {
			UserID uint
			Up     int64
			Down   int64
		}
		var folds []foldRow
		if err := tx.Model(&Progress{}).
			Select("user_id, COALESCE(SUM(uploaded_total), 0) AS up, COALESCE(SUM(downloaded_total), 0) AS down").
			Where("last_seen < ? AND uploaded_session = 0 AND downloaded_session = 0", cutoff).
			Group("user_id").
			Scan(&folds).Error; err != nil {
			return fmt.Errorf("聚合待清扫记录失败: %w", err)
		}

		// 2. 折算进用户的已清扫基线
		for _, fold := range folds {
			if err := user.IncrementReapedTotals(tx, fold.UserID, fold.Up, fold.Down); err != nil {
				return fmt.Errorf("折算用户流量基线失败: %w", err)
			}
		}

		// 3. 删除失效记录
		result := tx.Where("last_seen < ? AND uploaded_session = 0 AND downloaded_session = 0", cutoff).
			Delete(&Progress{})
		if result.Error != nil {
			return fmt.Errorf("删除失效记录失败: %w", result.Error)
		}
		removed = result.RowsAffected

		// 4. 数据卫生：复合键理论上唯一，这里仍然防御性去重，
		// 同键多条时保留最新创建的一条。去重删掉的行也计入本轮清理数
		deduped, err := dedupeProgress(tx)
		if err != nil {
			return err
		}
		removed += deduped
		return nil
	})
	if err != nil {
		return 0, err
	}

	// 5. 顺带清理swarm里的过期成员。Redis故障不影响账本清扫的结果
	if err := TrimSwarm(now); err != nil {
		fmt.Printf("Stale-Peer Reaper: 清理swarm失败: %v\n", err)
	}

	return removed, nil
}

// dedupeProgress 清理同一 (用户,种子,peer) 键下的重复记录，
// 返回删除的行数。
func dedupeProgress(tx *gorm.DB) (int64, error) {
	type dupGroup struct {
		UserID   uint
		InfoHash string
		PeerID   string
	}
	var dups []dupGroup
	if err := tx.Model(&Progress{}).
		Select("user_id, info_hash, peer_id").
		Group("user_id, info_hash, peer_id").
		Having("COUNT(*) > 1").
		Scan(&dups).Error; err != nil {
		return 0, fmt.Errorf("查找重复记录失败: %w", err)
	}

	var deleted int64
	for _, dup := range dups {
		var keep Progress
		if err := tx.Where("user_id = ? AND info_hash = ? AND peer_id = ?", dup.UserID, dup.InfoHash, dup.PeerID).
			Order("created_at DESC, id DESC").
			First(&keep).Error; err != nil {
			return deleted, fmt.Errorf("定位保留记录失败: %w", err)
		}
		result := tx.Where("user_id = ? AND info_hash = ? AND peer_id = ? AND id <> ?",
			dup.UserID, dup.InfoHash, dup.PeerID, keep.ID).
			Delete(&Progress{})
		if result.Error != nil {
			return deleted, fmt.Errorf("删除重复记录失败: %w", result.Error)
		}
		deleted += result.RowsAffected
	}
	return deleted, nil
}
