package tracker

import (
	"testing"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

func TestUserTotalsRatioSentinelWithoutDownloads(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-sent")

	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xe1), PeerID: testPeerID(0x04),
		UploadedTotal: 1000, DownloadedTotal: 0, LastSeen: time.Now(),
	})

	totals, err := GetUserTotals(u.ID)
	if err != nil {
		t.Fatalf("GetUserTotals失败: %v", err)
	}
	if totals.Uploaded != 1000 {
		t.Errorf("Uploaded = %d, want 1000", totals.Uploaded)
	}
	if totals.Ratio != RatioUndefined {
		t.Errorf("Ratio = %v, want 哨兵值%v", totals.Ratio, RatioUndefined)
	}
}

func TestUserTotalsRatioRoundedToTwoDecimals(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-round")

	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xe2), PeerID: testPeerID(0x04),
		UploadedTotal: 1, DownloadedTotal: 3, LastSeen: time.Now(),
	})

	totals, err := GetUserTotals(u.ID)
	if err != nil {
		t.Fatalf("GetUserTotals失败: %v", err)
	}
	if totals.Ratio != 0.33 {
		t.Errorf("Ratio = %v, want 0.33", totals.Ratio)
	}
}

func TestUserTotalsIncludeReapedBaseline(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-base")

	// 基线来自清扫器折算的历史记录
	err := database.DB.Model(u).Updates(map[string]interface{}{
		"reaped_uploaded":   2000,
		"reaped_downloaded": 1000,
	}).Error
	if err != nil {
		t.Fatalf("设置基线失败: %v", err)
	}
	createProgress(t, &Progress{
		UserID: u.ID, InfoHash: testInfoHash(0xe3), PeerID: testPeerID(0x04),
		UploadedTotal: 500, DownloadedTotal: 500, LastSeen: time.Now(),
	})

	totals, err := GetUserTotals(u.ID)
	if err != nil {
		t.Fatalf("GetUserTotals失败: %v", err)
	}
	if totals.Uploaded != 2500 || totals.Downloaded != 1500 {
		t.Errorf("总量 = %d/%d, want 2500/1500", totals.Uploaded, totals.Downloaded)
	}
}

func TestUserSessionCount(t *testing.T) {
	setupTestDB(t)
	u := createTestUser(t, "pk-cnt")
	other := createTestUser(t, "pk-cnt2")

	createProgress(t, &Progress{UserID: u.ID, InfoHash: testInfoHash(0xe4), PeerID: testPeerID(0x05), LastSeen: time.Now()})
	createProgress(t, &Progress{UserID: u.ID, InfoHash: testInfoHash(0xe5), PeerID: testPeerID(0x05), LastSeen: time.Now()})
	createProgress(t, &Progress{UserID: other.ID, InfoHash: testInfoHash(0xe4), PeerID: testPeerID(0x06), LastSeen: time.Now()})

	count, err := GetUserSessionCount(u.ID)
	if err != nil {
		t.Fatalf("GetUserSessionCount失败: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
