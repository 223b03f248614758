package tracker

import (
	"testing"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"gorm.io/gorm"
)

func createProgress(t *testing.T, p *Progress) *Progress {
	t.Helper()
	if err := database.DB.Create(p).Error; err != nil {
		t.Fatalf("创建会话记录失败: %v", err)
	}
	return p
}

func TestSweepRemovesOnlyStaleZeroSessionRecords(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-sweep")
	now := time.Now()
	stale := now.Add(-25 * time.Hour)

	// 失效且session归零：应被清扫
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xa1), PeerID: testPeerID(0x01),
		UploadedTotal: 500, DownloadedTotal: 400, LastSeen: stale,
	})
	// 仍然活跃：保留
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xa2), PeerID: testPeerID(0x01),
		UploadedTotal: 100, LastSeen: now,
	})
	// 失效但session非零（上一轮还有在途流量）：多留一个窗口
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xa3), PeerID: testPeerID(0x01),
		UploadedSession: 10, UploadedTotal: 10, LastSeen: stale,
	})

	removed, err := SweepOnce(now)
	if err != nil {
		t.Fatalf("SweepOnce失败: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if n := countProgress(t); n != 2 {
		t.Errorf("剩余记录数 = %d, want 2", n)
	}

	// 被删记录的total折算进了用户的已清扫基线
	after := loadUser(t, u.ID)
	if after.ReapedUploaded != 500 || after.ReapedDownloaded != 400 {
		t.Errorf("基线 = %d/%d, want 500/400", after.ReapedUploaded, after.ReapedDownloaded)
	}
}

func TestSweepPreservesUserTotals(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-keep")
	now := time.Now()
	stale := now.Add(-25 * time.Hour)

	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xb1), PeerID: testPeerID(0x01),
		UploadedTotal: 700, DownloadedTotal: 300, LastSeen: stale,
	})
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xb2), PeerID: testPeerID(0x01),
		UploadedTotal: 50, DownloadedTotal: 20, LastSeen: now,
	})

	before, err := GetUserTotals(u.ID)
	if err != nil {
		t.Fatalf("GetUserTotals失败: %v", err)
	}
	if _, err := SweepOnce(now); err != nil {
		t.Fatalf("SweepOnce失败: %v", err)
	}
	after, err := GetUserTotals(u.ID)
	if err != nil {
		t.Fatalf("GetUserTotals失败: %v", err)
	}

	// 清扫改变记录数，但不改变对外的流量视图
	if after.Uploaded != before.Uploaded || after.Downloaded != before.Downloaded {
		t.Errorf("清扫前后流量不一致: %d/%d -> %d/%d",
			before.Uploaded, before.Downloaded, after.Uploaded, after.Downloaded)
	}
	if before.Uploaded != 750 || before.Downloaded != 320 {
		t.Errorf("总量 = %d/%d, want 750/320", before.Uploaded, before.Downloaded)
	}
}

func TestDedupeKeepsNewestRecord(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-dup")

	// 复合唯一索引在正常路径下杜绝重复；这里先卸掉索引，
	// 模拟历史数据里已经存在的脏重复
	if err := database.DB.Exec("DROP INDEX idx_progress_peer").Error; err != nil {
		t.Fatalf("删除索引失败: %v", err)
	}

	infoHash := testInfoHash(0xc1)
	peerID := testPeerID(0x02)
	older := createProgress(t, &Progress{
		UserID: u.ID, InfoHash: infoHash, PeerID: peerID,
		UploadedTotal: 100, LastSeen: time.Now(),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})
	newer := createProgress(t, &Progress{
		UserID: u.ID, InfoHash: infoHash, PeerID: peerID,
		UploadedTotal: 999, LastSeen: time.Now(),
		CreatedAt: time.Now().Add(-1 * time.Hour),
	})

	var deleted int64
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var dedupeErr error
		deleted, dedupeErr = dedupeProgress(tx)
		return dedupeErr
	})
	if err != nil {
		t.Fatalf("dedupeProgress失败: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if n := countProgress(t); n != 1 {
		t.Fatalf("去重后记录数 = %d, want 1", n)
	}
	survivor := loadProgress(t, u.ID, infoHash, peerID)
	if survivor.ID != newer.ID {
		t.Errorf("保留的记录ID = %d, want %d (最新的一条)", survivor.ID, newer.ID)
	}
	var gone int64
	database.DB.Model(&Progress{}).Where("id = ?", older.ID).Count(&gone)
	if gone != 0 {
		t.Errorf("旧记录未被删除")
	}
}

func TestSweepCountIncludesDedupedRows(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-dup2")
	now := time.Now()

	if err := database.DB.Exec("DROP INDEX idx_progress_peer").Error; err != nil {
		t.Fatalf("删除索引失败: %v", err)
	}

	// 一条失效记录 + 一对重复记录，本轮应报告总共清理2条
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xc2), PeerID: testPeerID(0x02),
		LastSeen: now.Add(-25 * time.Hour),
	})
	infoHash := testInfoHash(0xc3)
	peerID := testPeerID(0x02)
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: infoHash, PeerID: peerID,
		LastSeen: now, CreatedAt: now.Add(-2 * time.Hour),
	})
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: infoHash, PeerID: peerID,
		LastSeen: now, CreatedAt: now.Add(-1 * time.Hour),
	})

	removed, err := SweepOnce(now)
	if err != nil {
		t.Fatalf("SweepOnce失败: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2 (1条失效 + 1条重复)", removed)
	}
	if n := countProgress(t); n != 1 {
		t.Errorf("剩余记录数 = %d, want 1", n)
	}
}

func TestHitNRunCount(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-hnr")
	now := time.Now()
	stale := now.Add(-25 * time.Hour)

	// 下载完成、早已离开、上传未回到1:1：计数
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xd1), PeerID: testPeerID(0x03),
		UploadedTotal: 50, DownloadedTotal: 100, Left: 0, LastSeen: stale,
	})
	// 下载完成但已经把账还清：不计
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xd2), PeerID: testPeerID(0x03),
		UploadedTotal: 200, DownloadedTotal: 100, Left: 0, LastSeen: stale,
	})
	// 下载完成且仍在做种：不计
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xd3), PeerID: testPeerID(0x03),
		UploadedTotal: 10, DownloadedTotal: 100, Left: 0, LastSeen: now,
	})
	// 没下载完就走了：不属于hit'n'run
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xd4), PeerID: testPeerID(0x03),
		UploadedTotal: 10, DownloadedTotal: 100, Left: 500, LastSeen: stale,
	})

	count, err := GetHitNRunCount(u.ID, now)
	if err != nil {
		t.Fatalf("GetHitNRunCount失败: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
