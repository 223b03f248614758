package tracker

import (
	"time"
)

// BytesPerGB 是积分结算用的GB换算基数（十进制）。
const BytesPerGB int64 = 1_000_000_000

// Progress 定义了peer会话记录在SQLite数据库中的持久化模型，
// 每个 (用户, 种子, peer) 三元组一条，由复合唯一索引保证。
//
// session列是客户端自己上报的计数器快照，客户端重开会话时会归零；
// total列是跨重连累计给该用户的字节数，生命周期内单调不减。
type Progress struct {
	ID uint `gorm:"primarykey"`

	UserID   uint   `gorm:"uniqueIndex:idx_progress_peer"`
	InfoHash string `gorm:"uniqueIndex:idx_progress_peer;type:varchar(40)"`
	PeerID   string `gorm:"uniqueIndex:idx_progress_peer;type:varchar(40)"`

	UploadedSession   int64
	UploadedTotal     int64
	DownloadedSession int64
	DownloadedTotal   int64

	// Left 是客户端上报的剩余下载字节数。0表示做种。
	// 列名避开SQL关键字LEFT。
	Left int64 `gorm:"column:bytes_left"`

	// LastSeen 是该peer最近一次announce的时间，清扫器以它判定失效。
	LastSeen time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
