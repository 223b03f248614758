package tracker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
	"github.com/sqtracker/tracker-backend/internal/torrent"
	"github.com/sqtracker/tracker-backend/internal/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestConfig 安装一份带默认策略参数的测试配置
func setupTestConfig() {
	config.Cfg = &config.Config{
		Tracker: config.TrackerConfig{
			AnnounceInterval:      30,
			MinInterval:           30,
			MinimumRatio:          0.75,
			MaximumHitNRuns:       3,
			SiteWideFreeleech:     false,
			BonusPointsPerGB:      3,
			ReaperIntervalMinutes: 60,
			PeerRetentionMinutes:  24 * 60,
			MaxNumWant:            50,
		},
	}
}

// setupTestDB 为单个测试创建独立的内存SQLite数据库并完成迁移
func setupTestDB(t *testing.T) {
	t.Helper()
	setupTestConfig()

	// 每个测试用独立的命名内存库；cache=shared让连接池里的
	// 所有连接看到同一份数据
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}, &torrent.Torrent{}, &torrent.ProtectedDownload{}, &Progress{}); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
	database.DB = db

	// 指向一个不可达地址：账本测试不依赖Redis，
	// swarm相关调用会快速失败并走降级路径
	database.RDB = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func createTestUser(t *testing.T, name string) *user.User {
	t.Helper()
	passkey, err := user.CreatePasskey()
	if err != nil {
		t.Fatalf("生成passkey失败: %v", err)
	}
	u := &user.User{
		Username:      "tester-" + name,
		Passkey:       passkey,
		EmailVerified: true,
	}
	if err := database.DB.Create(u).Error; err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}
	return u
}

func createTestTorrent(t *testing.T, infoHash string, freeleech, isProtected bool) *torrent.Torrent {
	t.Helper()
	tor := &torrent.Torrent{
		InfoHash:    infoHash,
		Name:        "test torrent " + infoHash[:8],
		Freeleech:   freeleech,
		IsProtected: isProtected,
	}
	if err := database.DB.Create(tor).Error; err != nil {
		t.Fatalf("创建测试种子失败: %v", err)
	}
	return tor
}

// testInfoHash / testPeerID 生成40字符十六进制标识
func testInfoHash(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 20)
}

func testPeerID(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 20)
}

func newAnnounce(u *user.User, tor *torrent.Torrent, peerID string, uploaded, downloaded, left int64, event string) *AnnounceRequest {
	return &AnnounceRequest{
		User:       u,
		Torrent:    tor,
		InfoHash:   tor.InfoHash,
		PeerID:     peerID,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
		Event:      event,
		NumWant:    50,
		IP:         "192.168.1.10",
	}
}

func mustApply(t *testing.T, req *AnnounceRequest, now time.Time) *AnnounceSummary {
	t.Helper()
	summary, fail := ApplyAnnounce(req, now)
	if fail != nil {
		t.Fatalf("ApplyAnnounce失败: %v (wrapped: %v)", fail, fail.Err)
	}
	return summary
}

func loadProgress(t *testing.T, userID uint, infoHash, peerID string) *Progress {
	t.Helper()
	var p Progress
	err := database.DB.Where("user_id = ? AND info_hash = ? AND peer_id = ?", userID, infoHash, peerID).First(&p).Error
	if err != nil {
		t.Fatalf("读取会话记录失败: %v", err)
	}
	return &p
}

func countProgress(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := database.DB.Model(&Progress{}).Count(&n).Error; err != nil {
		t.Fatalf("统计会话记录失败: %v", err)
	}
	return n
}

func loadUser(t *testing.T, id uint) *user.User {
	t.Helper()
	var u user.User
	if err := database.DB.Where("id = ?", id).First(&u).Error; err != nil {
		t.Fatalf("读取用户失败: %v", err)
	}
	return &u
}
